package arbitrage

import "github.com/alanyoungcy/arbwatch/internal/domain"

// MaxVariance returns the result with the highest variance. Ties go to the
// earlier entry. ok is false for an empty slice.
func MaxVariance(results []domain.VarianceResult) (domain.VarianceResult, bool) {
	return maxBy(results, func(a, b domain.VarianceResult) bool {
		return a.VariancePct.GreaterThan(b.VariancePct)
	})
}

// MaxProfit returns the result with the highest projected profit. Ties go to
// the earlier entry.
func MaxProfit(results []domain.VarianceResult) (domain.VarianceResult, bool) {
	return maxBy(results, func(a, b domain.VarianceResult) bool {
		return a.ProjectedProfit.GreaterThan(b.ProjectedProfit)
	})
}

func maxBy(results []domain.VarianceResult, better func(a, b domain.VarianceResult) bool) (domain.VarianceResult, bool) {
	if len(results) == 0 {
		return domain.VarianceResult{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if better(r, best) {
			best = r
		}
	}
	return best, true
}
