package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceQuote is a point-in-time price for one asset in one currency.
type PriceQuote struct {
	Asset    Asset           `json:"asset"`
	Currency Currency        `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
	Source   string          `json:"source"`
	At       time.Time       `json:"at"`
}

// FeeScheduleEntry is the percentage fee a venue charges on every trade.
type FeeScheduleEntry struct {
	Venue      string          `json:"venue"`
	Percentage decimal.Decimal `json:"percentage"`
}

// PurchaseAllowance is the amount the retail account may still spend with a
// payment method in the current limit period.
type PurchaseAllowance struct {
	Remaining     decimal.Decimal `json:"remaining"`
	Currency      Currency        `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
}

// VarianceResult is the outcome of comparing the fee-adjusted retail buy price
// with the fee-adjusted venue sell price for one asset.
type VarianceResult struct {
	Asset            Asset           `json:"asset"`
	RetailPrice      decimal.Decimal `json:"retail_price"`
	VenuePrice       decimal.Decimal `json:"venue_price"`
	VariancePct      decimal.Decimal `json:"variance_pct"`
	UnitsPurchasable decimal.Decimal `json:"units_purchasable"`
	ProjectedProfit  decimal.Decimal `json:"projected_profit"`
}
