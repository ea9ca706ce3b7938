package domain

import (
	"math"
	"time"
)

// PredictionRow is one (asset, date) prediction with its realized outcome.
// YTrue and YPred are next-period log returns already aligned to Date.
// A missing value is represented as NaN.
type PredictionRow struct {
	AssetID string
	Date    time.Time // UTC midnight
	YTrue   float64   // realized next-period log return
	YPred   float64   // predicted next-period log return
}

// Complete reports whether both returns are present and finite.
func (p *PredictionRow) Complete() bool {
	return isFinite(p.YTrue) && isFinite(p.YPred)
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// NormalizeDate truncates t to UTC midnight.
func NormalizeDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
