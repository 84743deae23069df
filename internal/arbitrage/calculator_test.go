package arbitrage

import (
	"math/rand/v2"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestComputeWithDefaultFees(t *testing.T) {
	c := NewCalculator(DefaultRetailFee, DefaultVenueFee)

	res, err := c.Compute(domain.BTC, d("10000"), d("10300"), d("500"))
	require.NoError(t, err)

	assert.True(t, d("10399").Equal(res.RetailPrice), res.RetailPrice.String())
	assert.True(t, d("10222.75").Equal(res.VenuePrice), res.VenuePrice.String())
	assert.Equal(t, "-1.69", res.VariancePct.StringFixed(2))
	assert.Equal(t, "0.0481", res.UnitsPurchasable.StringFixed(4))
	assert.True(t, d("-8.33").Equal(res.ProjectedProfit), res.ProjectedProfit.String())
	assert.Equal(t, domain.BTC, res.Asset)
}

func TestComputeWithoutFees(t *testing.T) {
	c := NewCalculator(decimal.Zero, decimal.Zero)

	res, err := c.Compute(domain.ETH, d("100"), d("110"), d("1000"))
	require.NoError(t, err)

	assert.True(t, d("10").Equal(res.VariancePct))
	assert.True(t, d("10").Equal(res.UnitsPurchasable))
	assert.Equal(t, "110.00", res.ProjectedProfit.StringFixed(2))
}

func TestComputeIsPure(t *testing.T) {
	c := NewCalculator(DefaultRetailFee, DefaultVenueFee)

	a, err := c.Compute(domain.LTC, d("83.12"), d("85.40"), d("499.25"))
	require.NoError(t, err)
	b, err := c.Compute(domain.LTC, d("83.12"), d("85.40"), d("499.25"))
	require.NoError(t, err)

	assert.True(t, a.VariancePct.Equal(b.VariancePct))
	assert.True(t, a.ProjectedProfit.Equal(b.ProjectedProfit))
	assert.True(t, a.UnitsPurchasable.Equal(b.UnitsPurchasable))
}

func TestComputeInvalidInputs(t *testing.T) {
	c := NewCalculator(DefaultRetailFee, DefaultVenueFee)

	cases := map[string][3]string{
		"zero retail":     {"0", "100", "10"},
		"negative retail": {"-5", "100", "10"},
		"negative venue":  {"100", "-1", "10"},
		"negative budget": {"100", "100", "-10"},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Compute(domain.BTC, d(in[0]), d(in[1]), d(in[2]))
			require.ErrorIs(t, err, domain.ErrInvalidPrice)
		})
	}
}

func TestComputeZeroBudget(t *testing.T) {
	c := NewCalculator(DefaultRetailFee, DefaultVenueFee)

	res, err := c.Compute(domain.BCH, d("1000"), d("1100"), decimal.Zero)
	require.NoError(t, err)
	assert.True(t, res.UnitsPurchasable.IsZero())
	assert.True(t, res.ProjectedProfit.IsZero())
}

func TestBudgetAfterFee(t *testing.T) {
	c := NewCalculator(DefaultRetailFee, DefaultVenueFee)
	assert.True(t, d("499.252").Equal(c.BudgetAfterFee(d("520"))))

	free := NewCalculator(decimal.Zero, decimal.Zero)
	assert.True(t, d("520").Equal(free.BudgetAfterFee(d("520"))))
}

func TestFeeAdjustments(t *testing.T) {
	c := NewCalculator(d("10"), d("10"))
	assert.True(t, d("110").Equal(c.RetailAfterFee(d("100"))))
	assert.True(t, d("90").Equal(c.VenueAfterFee(d("100"))))
}

func TestComputeMatchesClosedForm(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	one := decimal.NewFromInt(1)
	tolerance := d("0.000000001")

	for i := 0; i < 500; i++ {
		retailRaw := decimal.New(rng.Int64N(10_000_000)+1, -2)
		venueRaw := decimal.New(rng.Int64N(10_000_000), -2)
		retailFee := decimal.New(rng.Int64N(1000), -2)
		venueFee := decimal.New(rng.Int64N(1000), -2)
		budget := decimal.New(rng.Int64N(500_000), -2)

		res, err := NewCalculator(retailFee, venueFee).Compute(domain.BTC, retailRaw, venueRaw, budget)
		require.NoError(t, err)

		// ((V*(1-Fv/100)) / (R*(1+Fr/100)) - 1) * 100
		venue := venueRaw.Mul(one.Sub(venueFee.Div(hundred)))
		retail := retailRaw.Mul(one.Add(retailFee.Div(hundred)))
		want := venue.Div(retail).Sub(one).Mul(hundred)

		assert.True(t, res.VariancePct.Sub(want).Abs().LessThan(tolerance),
			"R=%s V=%s Fr=%s Fv=%s: got %s want %s", retailRaw, venueRaw, retailFee, venueFee, res.VariancePct, want)

		profit := budget.Div(retail).Mul(want).Div(hundred).Mul(venue)
		assert.True(t, res.ProjectedProfit.Sub(profit).Abs().LessThanOrEqual(d("0.01")),
			"profit got %s want about %s", res.ProjectedProfit, profit)
	}
}
