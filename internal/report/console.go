// Package report renders cycle reports for people: the console report and
// the short strings carried by alerts.
package report

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

const rule = "========================================="

// Console writes the human-readable cycle report to an io.Writer. It also
// satisfies domain.ReportSink so it can sit in the sink fan-out.
type Console struct {
	w   io.Writer
	loc *time.Location
}

// NewConsole returns a Console writing to w with timestamps in loc (nil
// means local time).
func NewConsole(w io.Writer, loc *time.Location) *Console {
	if loc == nil {
		loc = time.Local
	}
	return &Console{w: w, loc: loc}
}

// Name implements domain.ReportSink.
func (c *Console) Name() string { return "console" }

// Record implements domain.ReportSink.
func (c *Console) Record(_ context.Context, r *domain.CycleReport) error {
	return c.Write(r)
}

// Write renders r.
func (c *Console) Write(r *domain.CycleReport) error {
	bw := bufio.NewWriter(c.w)
	quote := r.QuoteCurrency.Symbol()

	fmt.Fprintln(bw, rule)
	fmt.Fprintf(bw, "           %s\n", r.StartedAt.In(c.loc).Format(domain.RowTimeLayout))
	fmt.Fprintln(bw, rule)

	fmt.Fprintln(bw, "Reference prices:")
	for _, a := range r.Assets {
		refs, ok := r.Reference[a]
		if !ok {
			fmt.Fprintf(bw, "    %s: unavailable\n", a)
			continue
		}
		parts := make([]string, 0, len(r.Currencies))
		for _, cur := range r.Currencies {
			if p, ok := refs[cur]; ok {
				parts = append(parts, cur.String()+p.String())
			}
		}
		fmt.Fprintf(bw, "    %s: %s\n", a, strings.Join(parts, " "))
	}

	fmt.Fprintf(bw, "Retail buy limit: %s%s", quote, r.Allowance.Remaining.StringFixed(2))
	if r.Allowance.PaymentMethod != "" {
		fmt.Fprintf(bw, " (%s)", r.Allowance.PaymentMethod)
	}
	fmt.Fprintln(bw)
	fmt.Fprintf(bw, "Retail buy amount after fee: %s%s\n\n", quote, r.BudgetAfterFee.StringFixed(2))

	section := func(title string, value func(domain.VarianceResult) string) {
		fmt.Fprintln(bw, title)
		for _, a := range r.Assets {
			if res, ok := r.Results[a]; ok {
				fmt.Fprintf(bw, "    %s: %s\n", a, value(res))
			}
		}
		fmt.Fprintln(bw)
	}
	section("Retail buy prices (after fee):", func(v domain.VarianceResult) string {
		return quote + v.RetailPrice.StringFixed(2)
	})
	section("Venue sell prices (after fee):", func(v domain.VarianceResult) string {
		return quote + v.VenuePrice.StringFixed(2)
	})
	section("Variances:", func(v domain.VarianceResult) string {
		return v.VariancePct.StringFixed(2) + "%"
	})
	section("Units purchasable:", func(v domain.VarianceResult) string {
		return v.UnitsPurchasable.StringFixed(8)
	})
	section("Expected profit:", func(v domain.VarianceResult) string {
		return quote + v.ProjectedProfit.StringFixed(2)
	})

	if len(r.Excluded) > 0 {
		fmt.Fprintln(bw, "Excluded:")
		for _, a := range r.Assets {
			if reason, ok := r.Excluded[a]; ok {
				fmt.Fprintf(bw, "    %s: %s\n", a, reason)
			}
		}
		fmt.Fprintln(bw)
	}

	if r.BestVariance != nil {
		fmt.Fprintf(bw, "Max variance: %s%% (%s)\n", r.BestVariance.VariancePct.StringFixed(2), r.BestVariance.Asset)
	}
	if r.BestProfit != nil {
		fmt.Fprintf(bw, "Max profit: %s%s (%s)\n", quote, r.BestProfit.ProjectedProfit.StringFixed(2), r.BestProfit.Asset)
	}
	fmt.Fprintln(bw, rule)
	fmt.Fprintln(bw)

	return bw.Flush()
}
