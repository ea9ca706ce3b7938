package simulation

import (
	"sort"
	"time"

	"quant-backtest-lab/internal/domain"
)

// dayGroup holds the complete prediction rows of one date.
type dayGroup struct {
	Date time.Time
	Rows []*domain.PredictionRow
}

// groupByDate drops incomplete rows, orders the rest by (date, asset_id)
// and splits them into ascending date groups.
// The (date, asset_id) ordering is what makes equal-prediction ties resolve
// by asset ID regardless of how the caller ordered the input.
func groupByDate(rows []*domain.PredictionRow) []dayGroup {
	usable := make([]*domain.PredictionRow, 0, len(rows))
	for _, r := range rows {
		if r != nil && r.Complete() {
			usable = append(usable, r)
		}
	}
	if len(usable) == 0 {
		return nil
	}

	sort.SliceStable(usable, func(i, j int) bool {
		if !usable[i].Date.Equal(usable[j].Date) {
			return usable[i].Date.Before(usable[j].Date)
		}
		return usable[i].AssetID < usable[j].AssetID
	})

	var groups []dayGroup
	start := 0
	for i := 1; i <= len(usable); i++ {
		if i == len(usable) || !usable[i].Date.Equal(usable[start].Date) {
			groups = append(groups, dayGroup{
				Date: usable[start].Date,
				Rows: usable[start:i],
			})
			start = i
		}
	}
	return groups
}

// hasEligible reports whether any row passes the threshold.
func hasEligible(rows []*domain.PredictionRow, threshold *float64) bool {
	if threshold == nil {
		return len(rows) > 0
	}
	for _, r := range rows {
		if r.YPred > *threshold {
			return true
		}
	}
	return false
}
