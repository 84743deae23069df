// Package service runs the report cycle: fetch prices, compute spreads,
// record the report and raise alerts.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/arbwatch/internal/arbitrage"
	"github.com/alanyoungcy/arbwatch/internal/domain"
	"github.com/alanyoungcy/arbwatch/internal/metrics"
	"github.com/alanyoungcy/arbwatch/internal/report"
)

// Source labels used for fetch error metrics and logs.
const (
	SourceReference = "reference"
	SourceRetail    = "retail"
	SourceVenue     = "venue"
)

// PushTitle is the title given to push alerts; most push channels ignore it.
const PushTitle = "ARB variance"

// Observer receives cycle measurements. *metrics.Recorder implements it.
type Observer interface {
	ObserveFetchError(source string, err error)
	ObserveExcluded(asset domain.Asset)
	ObserveCycle(outcome string, elapsed time.Duration, report *domain.CycleReport)
}

var _ Observer = (*metrics.Recorder)(nil)

// CycleConfig holds the per-run parameters of the report cycle.
type CycleConfig struct {
	Assets              []domain.Asset
	ReferenceCurrencies []domain.Currency
	QuoteCurrency       domain.Currency
	PaymentMethodIndex  int

	DesktopEnabled   bool
	DesktopThreshold decimal.Decimal

	PushEnabled   bool
	PushThreshold decimal.Decimal
	MinBudget     decimal.Decimal
}

// CycleDeps groups the collaborators of a CycleService. Reference, Desktop,
// Push, Observer and Audit may be nil.
type CycleDeps struct {
	Venue      domain.VenuePriceSource
	Retail     domain.RetailPriceSource
	Reference  domain.ReferencePriceSource
	Calculator arbitrage.Calculator
	Sinks      []domain.ReportSink
	Desktop    domain.Notifier
	Push       domain.Notifier
	Observer   Observer
	Audit      domain.AuditLog
}

// CycleService runs one report cycle per Run call and keeps the most recent
// successful report in memory.
type CycleService struct {
	deps   CycleDeps
	cfg    CycleConfig
	logger *slog.Logger

	now   func() time.Time
	newID func() string

	mu     sync.RWMutex
	latest *domain.CycleReport
}

// NewCycleService creates a CycleService.
func NewCycleService(deps CycleDeps, cfg CycleConfig, logger *slog.Logger) *CycleService {
	if len(cfg.Assets) == 0 {
		cfg.Assets = domain.AllAssets()
	}
	if len(cfg.ReferenceCurrencies) == 0 {
		cfg.ReferenceCurrencies = domain.AllCurrencies()
	}
	if cfg.QuoteCurrency == "" {
		cfg.QuoteCurrency = domain.AUD
	}
	return &CycleService{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "cycle_service")),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
}

// Run executes one cycle. It returns an error only when the cycle could not
// produce a report at all: the allowance fetch failed, or a credential was
// rejected. Failures confined to one asset exclude that asset instead.
func (s *CycleService) Run(ctx context.Context) (*domain.CycleReport, error) {
	started := s.now()
	r := &domain.CycleReport{
		ID:            s.newID(),
		StartedAt:     started,
		QuoteCurrency: s.cfg.QuoteCurrency,
		Assets:        append([]domain.Asset(nil), s.cfg.Assets...),
		Currencies:    append([]domain.Currency(nil), s.cfg.ReferenceCurrencies...),
		Reference:     make(map[domain.Asset]map[domain.Currency]decimal.Decimal),
		RetailQuotes:  make(map[domain.Asset]domain.PriceQuote),
		VenueQuotes:   make(map[domain.Asset]domain.PriceQuote),
		Results:       make(map[domain.Asset]domain.VarianceResult),
		Excluded:      make(map[domain.Asset]string),
	}
	log := s.logger.With(slog.String("cycle_id", r.ID))

	s.fetchReferences(ctx, r)

	allowance, err := s.deps.Retail.RemainingAllowance(ctx, s.cfg.PaymentMethodIndex)
	if err != nil {
		s.observeFetchError(SourceRetail, err)
		return nil, s.abort(ctx, log, r.ID, started, fmt.Errorf("service: cycle: allowance: %w", err))
	}
	if allowance.Currency != "" && allowance.Currency != s.cfg.QuoteCurrency {
		return nil, s.abort(ctx, log, r.ID, started, fmt.Errorf("service: cycle: allowance in %s, quote currency %s: %w",
			allowance.Currency, s.cfg.QuoteCurrency, domain.ErrConfig))
	}
	r.Allowance = allowance
	r.BudgetAfterFee = s.deps.Calculator.BudgetAfterFee(allowance.Remaining)

	for _, asset := range r.Assets {
		if err := s.priceAsset(ctx, r, asset); err != nil {
			if domain.IsCycleFatal(err) {
				return nil, s.abort(ctx, log, r.ID, started, fmt.Errorf("service: cycle: %s: %w", asset, err))
			}
			r.Excluded[asset] = err.Error()
			s.observeExcluded(asset)
			log.WarnContext(ctx, "asset excluded from cycle",
				slog.String("asset", asset.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	results := r.OrderedResults()
	if best, ok := arbitrage.MaxVariance(results); ok {
		r.BestVariance = &best
	}
	if best, ok := arbitrage.MaxProfit(results); ok {
		r.BestProfit = &best
	}
	r.FinishedAt = s.now()

	s.mu.Lock()
	s.latest = r
	s.mu.Unlock()

	s.record(ctx, log, r)
	s.alert(ctx, log, r)

	if s.deps.Observer != nil {
		outcome := metrics.OutcomeOK
		if len(r.Results) == 0 {
			outcome = metrics.OutcomeFailed
		}
		s.deps.Observer.ObserveCycle(outcome, r.FinishedAt.Sub(started), r)
	}

	attrs := []any{
		slog.Int("results", len(r.Results)),
		slog.Int("excluded", len(r.Excluded)),
		slog.String("budget_after_fee", r.BudgetAfterFee.StringFixed(2)),
	}
	if r.BestVariance != nil {
		attrs = append(attrs,
			slog.String("best_variance_asset", r.BestVariance.Asset.String()),
			slog.String("best_variance_pct", r.BestVariance.VariancePct.StringFixed(2)),
		)
	}
	log.InfoContext(ctx, "cycle complete", attrs...)

	return r, nil
}

// Latest returns the most recent successful report.
func (s *CycleService) Latest(_ context.Context) (*domain.CycleReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, fmt.Errorf("service: latest report: %w", domain.ErrNotFound)
	}
	return s.latest, nil
}

// fetchReferences queries every asset's reference prices concurrently. The
// prices are informational; a failure only leaves that asset's cells empty.
func (s *CycleService) fetchReferences(ctx context.Context, r *domain.CycleReport) {
	if s.deps.Reference == nil {
		return
	}

	fetched := make([]map[domain.Currency]domain.PriceQuote, len(r.Assets))
	var g errgroup.Group
	for i, asset := range r.Assets {
		g.Go(func() error {
			quotes, err := s.deps.Reference.Prices(ctx, asset, r.Currencies)
			if err != nil {
				s.observeFetchError(SourceReference, err)
				s.logger.WarnContext(ctx, "reference prices unavailable",
					slog.String("asset", asset.String()),
					slog.String("error", err.Error()),
				)
				return nil
			}
			fetched[i] = quotes
			return nil
		})
	}
	_ = g.Wait()

	for i, asset := range r.Assets {
		if fetched[i] == nil {
			continue
		}
		prices := make(map[domain.Currency]decimal.Decimal, len(fetched[i]))
		for cur, q := range fetched[i] {
			prices[cur] = q.Amount
		}
		r.Reference[asset] = prices
	}
}

// priceAsset fetches both prices for asset and stores the computed result.
func (s *CycleService) priceAsset(ctx context.Context, r *domain.CycleReport, asset domain.Asset) error {
	retail, err := s.deps.Retail.BuyPrice(ctx, asset, s.cfg.QuoteCurrency)
	if err != nil {
		s.observeFetchError(SourceRetail, err)
		return err
	}
	venue, err := s.deps.Venue.LastPrice(ctx, asset)
	if err != nil {
		s.observeFetchError(SourceVenue, err)
		return err
	}
	if retail.Currency != venue.Currency {
		return fmt.Errorf("service: %s: retail quoted in %s, venue in %s: %w",
			asset, retail.Currency, venue.Currency, domain.ErrInvalidPrice)
	}

	res, err := s.deps.Calculator.Compute(asset, retail.Amount, venue.Amount, r.BudgetAfterFee)
	if err != nil {
		return err
	}
	r.RetailQuotes[asset] = retail
	r.VenueQuotes[asset] = venue
	r.Results[asset] = res
	return nil
}

// record fans the report out to every sink. Sink failures never fail the
// cycle.
func (s *CycleService) record(ctx context.Context, log *slog.Logger, r *domain.CycleReport) {
	for _, sink := range s.deps.Sinks {
		if err := sink.Record(ctx, r); err != nil {
			log.ErrorContext(ctx, "report sink failed",
				slog.String("sink", sink.Name()),
				slog.String("error", err.Error()),
			)
		}
	}
}

// alert raises the desktop and push alerts whose thresholds the best
// variance crosses.
func (s *CycleService) alert(ctx context.Context, log *slog.Logger, r *domain.CycleReport) {
	if r.BestVariance == nil {
		return
	}
	best := r.BestVariance.VariancePct

	if s.cfg.DesktopEnabled && s.deps.Desktop != nil && best.GreaterThan(s.cfg.DesktopThreshold) {
		if title, msg, ok := report.Summary(r); ok {
			if err := s.deps.Desktop.Notify(ctx, domain.EventVarianceAlert, title, msg); err != nil {
				log.WarnContext(ctx, "desktop alert failed", slog.String("error", err.Error()))
			}
		}
	}

	if s.cfg.PushEnabled && s.deps.Push != nil &&
		best.GreaterThan(s.cfg.PushThreshold) &&
		r.BudgetAfterFee.GreaterThanOrEqual(s.cfg.MinBudget) {
		if err := s.deps.Push.Notify(ctx, domain.EventVarianceAlert, PushTitle, report.PushContent(r)); err != nil {
			log.WarnContext(ctx, "push alert failed", slog.String("error", err.Error()))
		}
	}
}

// abort logs a cycle that produced no report and tells the push channel.
func (s *CycleService) abort(ctx context.Context, log *slog.Logger, id string, started time.Time, err error) error {
	log.ErrorContext(ctx, "cycle aborted", slog.String("error", err.Error()))
	if s.deps.Audit != nil {
		detail := map[string]any{"cycle_id": id, "error": err.Error()}
		if aerr := s.deps.Audit.Log(ctx, "cycle_aborted", detail); aerr != nil {
			log.WarnContext(ctx, "audit log failed", slog.String("error", aerr.Error()))
		}
	}
	if s.deps.Observer != nil {
		s.deps.Observer.ObserveCycle(metrics.OutcomeAborted, s.now().Sub(started), nil)
	}
	if s.deps.Push != nil && !errors.Is(err, context.Canceled) {
		if nerr := s.deps.Push.Notify(ctx, domain.EventCycleFailed, "ARB: cycle failed", err.Error()); nerr != nil {
			log.WarnContext(ctx, "failure notification failed", slog.String("error", nerr.Error()))
		}
	}
	return err
}

func (s *CycleService) observeFetchError(source string, err error) {
	if s.deps.Observer != nil {
		s.deps.Observer.ObserveFetchError(source, err)
	}
}

func (s *CycleService) observeExcluded(asset domain.Asset) {
	if s.deps.Observer != nil {
		s.deps.Observer.ObserveExcluded(asset)
	}
}
