package report

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

// Summary returns the desktop alert title and message for r. ok is false
// when the cycle produced no results.
func Summary(r *domain.CycleReport) (title, message string, ok bool) {
	if r.BestVariance == nil || r.BestProfit == nil {
		return "", "", false
	}
	quote := r.QuoteCurrency.Symbol()
	title = fmt.Sprintf("ARB: Can buy %s%s", quote, r.Allowance.Remaining.StringFixed(2))
	message = fmt.Sprintf("Max Profit: %s%s (%s)\nMax Variance: %s%% (%s)",
		quote, r.BestProfit.ProjectedProfit.StringFixed(2), r.BestProfit.Asset,
		r.BestVariance.VariancePct.StringFixed(2), r.BestVariance.Asset)
	return title, message, true
}

// PushContent returns the compact per-asset variance line sent as a push
// notification, e.g. "BTC:1.23%  ETH:-0.50%". Excluded assets are omitted.
func PushContent(r *domain.CycleReport) string {
	parts := make([]string, 0, len(r.Assets))
	for _, res := range r.OrderedResults() {
		parts = append(parts, fmt.Sprintf("%s:%s%%", res.Asset, res.VariancePct.StringFixed(2)))
	}
	return strings.Join(parts, "  ")
}
