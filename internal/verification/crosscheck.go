package verification

import (
	"time"

	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/simulation"
)

// CrossCheckResult is the outcome of CrossCheck.
type CrossCheckResult struct {
	DaysCompared int
	Divergences  []FieldDivergence
}

// Match reports whether no compared day diverged.
func (r *CrossCheckResult) Match() bool {
	return len(r.Divergences) == 0
}

// CrossCheck runs both simulators over rows with cfg and compares RetPort
// on the dates where the two must agree: the exact simulator held at most
// one asset, did not trade, and still had positive equity.
// Expected is the vectorized value and Actual the exact one.
func CrossCheck(rows []*domain.PredictionRow, cfg domain.SimulationConfig) *CrossCheckResult {
	vec := make(map[time.Time]float64)
	for _, d := range simulation.Vectorized(rows, cfg) {
		vec[d.Date] = d.RetPort
	}

	res := &CrossCheckResult{}
	for _, rec := range simulation.Exact(rows, cfg) {
		if rec.Turnover != 0 || len(rec.Holdings) > 1 || rec.Equity <= 0 {
			continue
		}
		want, ok := vec[rec.Date]
		if !ok {
			continue
		}
		res.DaysCompared++
		if !floatEquals(want, rec.RetPort) {
			res.Divergences = append(res.Divergences, FieldDivergence{
				Date:     rec.Date,
				Field:    "RetPort",
				Expected: want,
				Actual:   rec.RetPort,
			})
		}
	}
	return res
}
