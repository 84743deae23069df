package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RowTimeLayout is the timestamp format of the first spreadsheet column.
const RowTimeLayout = "2006-01-02 15:04:05"

// CycleReport is everything a single polling cycle produced. It is built once
// by the cycle service and treated as read-only afterwards.
type CycleReport struct {
	ID             string                                 `json:"id"`
	StartedAt      time.Time                              `json:"started_at"`
	FinishedAt     time.Time                              `json:"finished_at"`
	QuoteCurrency  Currency                               `json:"quote_currency"`
	Assets         []Asset                                `json:"assets"`
	Currencies     []Currency                             `json:"currencies"`
	Allowance      PurchaseAllowance                      `json:"allowance"`
	BudgetAfterFee decimal.Decimal                        `json:"budget_after_fee"`
	Reference      map[Asset]map[Currency]decimal.Decimal `json:"reference"`
	RetailQuotes   map[Asset]PriceQuote                   `json:"retail_quotes"`
	VenueQuotes    map[Asset]PriceQuote                   `json:"venue_quotes"`
	Results        map[Asset]VarianceResult               `json:"results"`
	Excluded       map[Asset]string                       `json:"excluded,omitempty"`
	BestVariance   *VarianceResult                        `json:"best_variance,omitempty"`
	BestProfit     *VarianceResult                        `json:"best_profit,omitempty"`
}

// Result returns the variance result for a, if one was computed this cycle.
func (r *CycleReport) Result(a Asset) (VarianceResult, bool) {
	res, ok := r.Results[a]
	return res, ok
}

// OrderedResults returns the computed results in cycle asset order.
func (r *CycleReport) OrderedResults() []VarianceResult {
	out := make([]VarianceResult, 0, len(r.Results))
	for _, a := range r.Assets {
		if res, ok := r.Results[a]; ok {
			out = append(out, res)
		}
	}
	return out
}

// Row flattens the report into the ordered spreadsheet row: timestamp,
// retail prices, venue prices and variances per asset (2dp), then reference
// prices per asset per currency. Missing values become empty cells so the
// column layout never shifts.
func (r *CycleReport) Row(loc *time.Location) []any {
	if loc == nil {
		loc = time.UTC
	}
	row := make([]any, 0, 1+3*len(r.Assets)+len(r.Assets)*len(r.Currencies))
	row = append(row, r.StartedAt.In(loc).Format(RowTimeLayout))

	cell := func(a Asset, pick func(VarianceResult) decimal.Decimal) any {
		res, ok := r.Results[a]
		if !ok {
			return ""
		}
		return pick(res).StringFixed(2)
	}
	for _, a := range r.Assets {
		row = append(row, cell(a, func(v VarianceResult) decimal.Decimal { return v.RetailPrice }))
	}
	for _, a := range r.Assets {
		row = append(row, cell(a, func(v VarianceResult) decimal.Decimal { return v.VenuePrice }))
	}
	for _, a := range r.Assets {
		row = append(row, cell(a, func(v VarianceResult) decimal.Decimal { return v.VariancePct }))
	}
	for _, a := range r.Assets {
		for _, c := range r.Currencies {
			p, ok := r.Reference[a][c]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, p.String())
		}
	}
	return row
}
