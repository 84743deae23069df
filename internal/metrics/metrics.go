// Package metrics exposes cycle outcomes as Prometheus metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Cycle outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeFailed  = "failed"
	OutcomeAborted = "aborted"
)

// Recorder records cycle metrics on its own registry.
type Recorder struct {
	registry *prometheus.Registry

	cyclesTotal    *prometheus.CounterVec
	fetchErrors    *prometheus.CounterVec
	excludedAssets *prometheus.CounterVec
	variance       *prometheus.GaugeVec
	profit         *prometheus.GaugeVec
	budget         prometheus.Gauge
	cycleDuration  prometheus.Histogram
	lastCycle      prometheus.Gauge
}

// New creates a Recorder and registers its collectors, plus the Go and
// process collectors, on a fresh registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Recorder{
		registry: reg,
		cyclesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arbwatch_cycles_total",
			Help: "Report cycles run, by outcome",
		}, []string{"outcome"}),
		fetchErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arbwatch_fetch_errors_total",
			Help: "Failed price or allowance fetches, by source and error kind",
		}, []string{"source", "kind"}),
		excludedAssets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "arbwatch_excluded_assets_total",
			Help: "Assets left out of a cycle because a price was unavailable",
		}, []string{"asset"}),
		variance: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "arbwatch_variance_percent",
			Help: "Latest fee-adjusted venue/retail variance in percent",
		}, []string{"asset"}),
		profit: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "arbwatch_projected_profit",
			Help: "Latest projected profit for the configured budget",
		}, []string{"asset"}),
		budget: f.NewGauge(prometheus.GaugeOpts{
			Name: "arbwatch_budget_after_fee",
			Help: "Spendable retail allowance after the card fee",
		}),
		cycleDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "arbwatch_cycle_duration_seconds",
			Help:    "Wall time of a report cycle",
			Buckets: prometheus.DefBuckets,
		}),
		lastCycle: f.NewGauge(prometheus.GaugeOpts{
			Name: "arbwatch_last_cycle_timestamp_seconds",
			Help: "Unix time the last successful cycle started",
		}),
	}
}

// Registry returns the registry the collectors live on.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// ObserveFetchError counts a failed fetch from source.
func (r *Recorder) ObserveFetchError(source string, err error) {
	r.fetchErrors.WithLabelValues(source, ErrorKind(err)).Inc()
}

// ObserveExcluded counts an asset dropped from a cycle.
func (r *Recorder) ObserveExcluded(asset domain.Asset) {
	r.excludedAssets.WithLabelValues(asset.String()).Inc()
}

// ObserveCycle records the outcome of a finished cycle. report may be nil
// when the cycle aborted.
func (r *Recorder) ObserveCycle(outcome string, elapsed time.Duration, report *domain.CycleReport) {
	r.cyclesTotal.WithLabelValues(outcome).Inc()
	r.cycleDuration.Observe(elapsed.Seconds())
	if report == nil {
		return
	}
	r.lastCycle.Set(float64(report.StartedAt.Unix()))
	r.budget.Set(report.BudgetAfterFee.InexactFloat64())
	for _, res := range report.OrderedResults() {
		r.variance.WithLabelValues(res.Asset.String()).Set(res.VariancePct.InexactFloat64())
		r.profit.WithLabelValues(res.Asset.String()).Set(res.ProjectedProfit.InexactFloat64())
	}
}

// ErrorKind maps an error onto a low-cardinality label value.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, domain.ErrAuth):
		return "auth"
	case errors.Is(err, domain.ErrConfig):
		return "config"
	case errors.Is(err, domain.ErrNetwork):
		return "network"
	case errors.Is(err, domain.ErrParse):
		return "parse"
	case errors.Is(err, domain.ErrMissingField):
		return "missing_field"
	case errors.Is(err, domain.ErrInvalidPrice):
		return "invalid_price"
	default:
		return "other"
	}
}
