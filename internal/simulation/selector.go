// Package simulation implements the top-K long-only backtest simulators.
//
// The Selector picks the assets to hold on one date. The vectorized
// simulator estimates each day's return independently and ignores costs;
// the exact simulator carries wealth and holdings from day to day and
// charges turnover-based transaction costs.
package simulation

import (
	"sort"

	"quant-backtest-lab/internal/domain"
)

// Selection is the result of a top-K pick for one date.
type Selection struct {
	// Rows are the selected prediction rows in rank order (best first).
	Rows []*domain.PredictionRow
	// Weights maps asset ID to equal target weight 1/len(Rows).
	// Nil when nothing is selected.
	Weights map[string]float64
}

// Len returns the number of selected assets.
func (s Selection) Len() int {
	return len(s.Rows)
}

// Assets returns the selected asset IDs sorted lexicographically.
func (s Selection) Assets() []string {
	if len(s.Rows) == 0 {
		return nil
	}
	assets := make([]string, len(s.Rows))
	for i, r := range s.Rows {
		assets[i] = r.AssetID
	}
	sort.Strings(assets)
	return assets
}

// Select chooses up to k assets from one date's predictions.
//
// Rows with YPred <= threshold are dropped when threshold is non-nil.
// Remaining rows are ranked by YPred descending; equal predictions keep
// their input order. The top min(k, n) rows are selected and equally
// weighted. k <= 0 or an empty candidate set yields an empty Selection.
func Select(day []*domain.PredictionRow, k int, threshold *float64) Selection {
	if k <= 0 {
		return Selection{}
	}

	candidates := eligible(day, threshold)
	if len(candidates) == 0 {
		return Selection{}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].YPred > candidates[j].YPred
	})

	if k < len(candidates) {
		candidates = candidates[:k]
	}

	w := 1.0 / float64(len(candidates))
	weights := make(map[string]float64, len(candidates))
	for _, r := range candidates {
		weights[r.AssetID] = w
	}

	return Selection{Rows: candidates, Weights: weights}
}

// eligible returns a fresh slice of complete rows passing the threshold,
// preserving input order.
func eligible(day []*domain.PredictionRow, threshold *float64) []*domain.PredictionRow {
	out := make([]*domain.PredictionRow, 0, len(day))
	for _, r := range day {
		if r == nil || !r.Complete() {
			continue
		}
		if threshold != nil && !(r.YPred > *threshold) {
			continue
		}
		out = append(out, r)
	}
	return out
}
