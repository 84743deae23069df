package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// ReportSink receives every finished cycle report. Sinks are best effort: a
// failing sink is logged and never aborts the cycle.
type ReportSink interface {
	Name() string
	Record(ctx context.Context, report *CycleReport) error
}

// ReportReader exposes the most recent cycle report.
type ReportReader interface {
	Latest(ctx context.Context) (*CycleReport, error)
}

// CycleRecord is the persisted summary of one cycle.
type CycleRecord struct {
	ID                string          `json:"id"`
	StartedAt         time.Time       `json:"started_at"`
	FinishedAt        time.Time       `json:"finished_at"`
	BudgetAfterFee    decimal.Decimal `json:"budget_after_fee"`
	BestVarianceAsset string          `json:"best_variance_asset,omitempty"`
	BestVariancePct   decimal.Decimal `json:"best_variance_pct"`
	BestProfitAsset   string          `json:"best_profit_asset,omitempty"`
	BestProfit        decimal.Decimal `json:"best_profit"`
	Excluded          int             `json:"excluded"`
}

// CycleStore persists cycle summaries.
type CycleStore interface {
	ReportSink
	ListRecent(ctx context.Context, limit int) ([]CycleRecord, error)
}

// AuditEntry is one operational event worth keeping, such as an aborted
// cycle.
type AuditEntry struct {
	ID        int64           `json:"id"`
	Event     string          `json:"event"`
	Detail    json.RawMessage `json:"detail,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuditLog appends and lists audit entries.
type AuditLog interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, limit int) ([]AuditEntry, error)
}
