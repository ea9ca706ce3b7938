package simulation

import (
	"math"
	"time"

	"quant-backtest-lab/internal/domain"
)

// Exact runs the stateful daily-rebalance simulation.
//
// Dates are processed strictly in ascending order; each date's costs depend
// on the holdings and wealth left by the previous date. An empty input
// yields no records.
func Exact(rows []*domain.PredictionRow, cfg domain.SimulationConfig) []*domain.DailyRecord {
	groups := groupByDate(rows)
	out := make([]*domain.DailyRecord, 0, len(groups))

	state := NewPortfolioState(cfg.InitialCapital)
	for _, g := range groups {
		sel := Select(g.Rows, cfg.K, cfg.Threshold)
		var rec *domain.DailyRecord
		state, rec = Step(state, g.Date, sel, cfg)
		out = append(out, rec)
	}
	return out
}

// Step applies one date's rebalance to state and returns the next state
// together with the emitted record. state is not modified.
func Step(state PortfolioState, date time.Time, sel Selection, cfg domain.SimulationConfig) (PortfolioState, *domain.DailyRecord) {
	gross := grossSimpleReturn(sel)

	names := unionAssets(state.Holdings, sel)
	l1 := 0.0
	trades := 0
	for _, a := range names {
		diff := math.Abs(sel.Weights[a] - state.weight(a))
		l1 += diff
		if isTrade(diff, cfg.TradeEpsilon) {
			trades++
		}
	}
	turnover := 0.5 * l1

	tradeNotional := state.Wealth * turnover
	slippageCost := tradeNotional * cfg.SlippageBps / 10_000.0
	commissionCost := float64(trades) * cfg.CommissionPerTrade
	totalCost := slippageCost + commissionCost

	afterCosts := math.Max(state.Wealth-totalCost, 0)
	wealthNext := afterCosts * (1 + gross)

	holdings := sel.Assets()
	rec := &domain.DailyRecord{
		Date:      date,
		RetPort:   logGrowth(state.Wealth, wealthNext),
		Equity:    wealthNext,
		Holdings:  holdings,
		Turnover:  turnover,
		CostValue: totalCost,
	}

	next := PortfolioState{
		Wealth:   wealthNext,
		Holdings: holdings,
		Weights:  sel.Weights,
	}
	return next, rec
}

// grossSimpleReturn is the equal-weight mean of exp(YTrue)-1 over the selection.
func grossSimpleReturn(sel Selection) float64 {
	n := sel.Len()
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, r := range sel.Rows {
		sum += math.Expm1(r.YTrue)
	}
	return sum / float64(n)
}

// isTrade reports whether a weight change counts as a trade.
// With eps == 0 any non-zero change counts.
func isTrade(diff, eps float64) bool {
	if eps <= 0 {
		return diff != 0
	}
	return diff > eps
}

// logGrowth returns ln(to/from), or 0 when either side is not positive.
func logGrowth(from, to float64) float64 {
	if from <= 0 || to <= 0 {
		return 0
	}
	return math.Log(to / from)
}
