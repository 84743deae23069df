package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// CycleStore implements domain.CycleStore. Each report becomes one row in
// cycles with the summary columns broken out and the full report as JSONB.
type CycleStore struct {
	db DB
}

// NewCycleStore creates a new CycleStore.
func NewCycleStore(db DB) *CycleStore {
	return &CycleStore{db: db}
}

// Name implements domain.ReportSink.
func (s *CycleStore) Name() string { return "postgres" }

// Record inserts r. Re-recording the same cycle id is a no-op.
func (s *CycleStore) Record(ctx context.Context, r *domain.CycleReport) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("postgres: marshal report: %w", err)
	}

	var (
		varAsset, profitAsset *string
		varPct, profit        *decimal.Decimal
	)
	if r.BestVariance != nil {
		a := r.BestVariance.Asset.String()
		varAsset, varPct = &a, &r.BestVariance.VariancePct
	}
	if r.BestProfit != nil {
		a := r.BestProfit.Asset.String()
		profitAsset, profit = &a, &r.BestProfit.ProjectedProfit
	}

	const query = `
		INSERT INTO cycles (id, started_at, finished_at, budget_after_fee,
			best_variance_asset, best_variance_pct, best_profit_asset, best_profit,
			excluded, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`

	_, err = s.db.Exec(ctx, query,
		r.ID, r.StartedAt, r.FinishedAt, r.BudgetAfterFee,
		varAsset, varPct, profitAsset, profit,
		len(r.Excluded), payload,
	)
	if err != nil {
		return fmt.Errorf("postgres: record cycle %s: %w", r.ID, err)
	}
	return nil
}

// ListRecent returns up to limit cycles, newest first.
func (s *CycleStore) ListRecent(ctx context.Context, limit int) ([]domain.CycleRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT id::text, started_at, finished_at, budget_after_fee::text,
			COALESCE(best_variance_asset, ''), COALESCE(best_variance_pct, 0)::text,
			COALESCE(best_profit_asset, ''), COALESCE(best_profit, 0)::text,
			excluded
		FROM cycles
		ORDER BY started_at DESC
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list cycles: %w", err)
	}
	defer rows.Close()

	var out []domain.CycleRecord
	for rows.Next() {
		var (
			rec                        domain.CycleRecord
			budget, varPct, bestProfit string
		)
		if err := rows.Scan(&rec.ID, &rec.StartedAt, &rec.FinishedAt, &budget,
			&rec.BestVarianceAsset, &varPct, &rec.BestProfitAsset, &bestProfit,
			&rec.Excluded); err != nil {
			return nil, fmt.Errorf("postgres: scan cycle: %w", err)
		}
		if rec.BudgetAfterFee, err = decimal.NewFromString(budget); err != nil {
			return nil, fmt.Errorf("postgres: parse budget of %s: %w", rec.ID, err)
		}
		if rec.BestVariancePct, err = decimal.NewFromString(varPct); err != nil {
			return nil, fmt.Errorf("postgres: parse variance of %s: %w", rec.ID, err)
		}
		if rec.BestProfit, err = decimal.NewFromString(bestProfit); err != nil {
			return nil, fmt.Errorf("postgres: parse profit of %s: %w", rec.ID, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list cycles rows: %w", err)
	}
	return out, nil
}

var _ domain.CycleStore = (*CycleStore)(nil)
