package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCycleReportRow(t *testing.T) {
	d := decimal.RequireFromString
	r := &CycleReport{
		StartedAt:  time.Date(2024, 3, 1, 9, 30, 5, 0, time.UTC),
		Assets:     []Asset{BTC, ETH},
		Currencies: []Currency{AUD, USD},
		Reference: map[Asset]map[Currency]decimal.Decimal{
			BTC: {AUD: d("10012.5"), USD: d("7801")},
			ETH: {AUD: d("450")},
		},
		Results: map[Asset]VarianceResult{
			BTC: {Asset: BTC, RetailPrice: d("10399"), VenuePrice: d("10222.75"), VariancePct: d("-1.694874")},
		},
	}

	row := r.Row(time.UTC)
	require.Len(t, row, 1+3*2+2*2)
	assert.Equal(t, []any{
		"2024-03-01 09:30:05",
		"10399.00", "",
		"10222.75", "",
		"-1.69", "",
		"10012.5", "7801", "450", "",
	}, row)
}

func TestCycleReportResultAndOrder(t *testing.T) {
	r := &CycleReport{
		Assets: []Asset{BTC, ETH, LTC},
		Results: map[Asset]VarianceResult{
			LTC: {Asset: LTC},
			BTC: {Asset: BTC},
		},
	}
	_, ok := r.Result(ETH)
	assert.False(t, ok)
	res, ok := r.Result(LTC)
	assert.True(t, ok)
	assert.Equal(t, LTC, res.Asset)

	ordered := r.OrderedResults()
	require.Len(t, ordered, 2)
	assert.Equal(t, BTC, ordered[0].Asset)
	assert.Equal(t, LTC, ordered[1].Asset)
}

func TestParseAssetAndCurrency(t *testing.T) {
	a, err := ParseAsset(" eth ")
	require.NoError(t, err)
	assert.Equal(t, ETH, a)

	_, err = ParseAsset("DOGE")
	require.ErrorIs(t, err, ErrConfig)

	c, err := ParseCurrency("gbp")
	require.NoError(t, err)
	assert.Equal(t, "£", c.Symbol())

	_, err = ParseCurrency("EUR")
	require.ErrorIs(t, err, ErrConfig)
}

func TestIsCycleFatal(t *testing.T) {
	assert.True(t, IsCycleFatal(ErrAuth))
	assert.True(t, IsCycleFatal(ErrConfig))
	assert.False(t, IsCycleFatal(ErrNetwork))
	assert.False(t, IsCycleFatal(nil))
}
