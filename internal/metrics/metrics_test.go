package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func TestObserveCycle(t *testing.T) {
	r := New()
	report := &domain.CycleReport{
		StartedAt:      time.Unix(1700000000, 0),
		Assets:         []domain.Asset{domain.BTC, domain.ETH},
		BudgetAfterFee: decimal.RequireFromString("499.25"),
		Results: map[domain.Asset]domain.VarianceResult{
			domain.BTC: {Asset: domain.BTC, VariancePct: decimal.RequireFromString("-1.5"), ProjectedProfit: decimal.RequireFromString("-8.33")},
		},
	}

	r.ObserveCycle(OutcomeOK, 2*time.Second, report)
	r.ObserveCycle(OutcomeAborted, time.Second, nil)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.cyclesTotal.WithLabelValues(OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.cyclesTotal.WithLabelValues(OutcomeAborted)))
	assert.Equal(t, -1.5, testutil.ToFloat64(r.variance.WithLabelValues("BTC")))
	assert.Equal(t, -8.33, testutil.ToFloat64(r.profit.WithLabelValues("BTC")))
	assert.Equal(t, 499.25, testutil.ToFloat64(r.budget))
	assert.Equal(t, 1700000000.0, testutil.ToFloat64(r.lastCycle))
	assert.Equal(t, 1, testutil.CollectAndCount(r.variance))
}

func TestObserveFetchError(t *testing.T) {
	r := New()
	r.ObserveFetchError("coinbase", fmt.Errorf("wrap: %w", domain.ErrAuth))
	r.ObserveFetchError("coinbase", domain.ErrNetwork)
	r.ObserveFetchError("btcmarkets", domain.ErrNetwork)
	r.ObserveExcluded(domain.LTC)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetchErrors.WithLabelValues("coinbase", "auth")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.fetchErrors.WithLabelValues("btcmarkets", "network")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.excludedAssets.WithLabelValues("LTC")))
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, "none", ErrorKind(nil))
	assert.Equal(t, "missing_field", ErrorKind(fmt.Errorf("x: %w", domain.ErrMissingField)))
	assert.Equal(t, "other", ErrorKind(errors.New("boom")))
}
