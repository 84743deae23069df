// Package arbitrage computes the fee-adjusted spread between the retail
// on-ramp buy price and the venue sell price.
package arbitrage

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Default fees, in percent.
var (
	DefaultRetailFee = decimal.RequireFromString("3.99")
	DefaultVenueFee  = decimal.RequireFromString("0.75")
)

var hundred = decimal.NewFromInt(100)

// Calculator turns raw prices into VarianceResults. It holds no state beyond
// the two fee entries and may be copied freely.
type Calculator struct {
	Retail domain.FeeScheduleEntry
	Venue  domain.FeeScheduleEntry
}

// NewCalculator builds a Calculator from the two fee percentages.
func NewCalculator(retailFee, venueFee decimal.Decimal) Calculator {
	return Calculator{
		Retail: domain.FeeScheduleEntry{Venue: "retail", Percentage: retailFee},
		Venue:  domain.FeeScheduleEntry{Venue: "venue", Percentage: venueFee},
	}
}

// RetailAfterFee is what one unit costs once the card fee is added.
func (c Calculator) RetailAfterFee(raw decimal.Decimal) decimal.Decimal {
	return raw.Mul(hundred.Add(c.Retail.Percentage)).Div(hundred)
}

// VenueAfterFee is what one unit sells for once the trading fee is taken.
func (c Calculator) VenueAfterFee(raw decimal.Decimal) decimal.Decimal {
	return raw.Mul(hundred.Sub(c.Venue.Percentage)).Div(hundred)
}

// BudgetAfterFee is the spendable part of allowance once the retail fee is
// reserved out of it.
func (c Calculator) BudgetAfterFee(allowance decimal.Decimal) decimal.Decimal {
	return allowance.Sub(allowance.Div(hundred).Mul(c.Retail.Percentage))
}

// Compute derives the variance and projected profit of buying budget worth
// of asset at retail and selling it on the venue.
func (c Calculator) Compute(asset domain.Asset, retailRaw, venueRaw, budget decimal.Decimal) (domain.VarianceResult, error) {
	retail := c.RetailAfterFee(retailRaw)
	if !retail.IsPositive() {
		return domain.VarianceResult{}, fmt.Errorf("arbitrage: %s retail price after fee %s: %w", asset, retail, domain.ErrInvalidPrice)
	}
	if venueRaw.IsNegative() {
		return domain.VarianceResult{}, fmt.Errorf("arbitrage: %s venue price %s: %w", asset, venueRaw, domain.ErrInvalidPrice)
	}
	if budget.IsNegative() {
		return domain.VarianceResult{}, fmt.Errorf("arbitrage: budget %s: %w", budget, domain.ErrInvalidPrice)
	}

	venue := c.VenueAfterFee(venueRaw)
	variance := venue.Div(retail).Mul(hundred).Sub(hundred)
	units := budget.Div(retail)
	gain := units.Mul(variance).Div(hundred)

	return domain.VarianceResult{
		Asset:            asset,
		RetailPrice:      retail,
		VenuePrice:       venue,
		VariancePct:      variance,
		UnitsPurchasable: units,
		ProjectedProfit:  gain.Mul(venue).Round(2),
	}, nil
}
