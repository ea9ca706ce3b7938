package domain

import (
	"fmt"
	"strings"
)

// Mode selects the simulator.
type Mode string

// Mode constants.
const (
	ModeVectorized Mode = "vectorized"
	ModeExact      Mode = "exact"
)

// ParseMode parses a mode name, case-insensitive.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeVectorized, "vec":
		return ModeVectorized, nil
	case ModeExact:
		return ModeExact, nil
	default:
		return "", fmt.Errorf("unknown mode %q: must be vectorized or exact", s)
	}
}

// SimulationConfig holds the knobs of a top-K backtest.
// InitialCapital, SlippageBps, CommissionPerTrade and TradeEpsilon are used
// by the exact simulator only.
type SimulationConfig struct {
	K         int      // max concurrent holdings
	Threshold *float64 // minimum YPred to be eligible (exclusive), nil = no filter

	InitialCapital     float64
	SlippageBps        float64 // 1 bp = 0.0001 of traded notional
	CommissionPerTrade float64 // flat, per changed position
	TradeEpsilon       float64 // weight change must exceed this to count as a trade
}

// Default simulation parameters.
const (
	DefaultK                  = 5
	DefaultInitialCapital     = 100_000.0
	DefaultSlippageBps        = 5.0
	DefaultCommissionPerTrade = 0.0
	DefaultPeriodsPerYear     = 252
)

// DefaultSimulationConfig returns K=5, 100k capital, 5 bps slippage and no commission.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		K:                  DefaultK,
		InitialCapital:     DefaultInitialCapital,
		SlippageBps:        DefaultSlippageBps,
		CommissionPerTrade: DefaultCommissionPerTrade,
	}
}

// ThresholdLabel renders the threshold the way run labels use it:
// "none" or "%.0e" (e.g. 1e-03).
func (c SimulationConfig) ThresholdLabel() string {
	if c.Threshold == nil {
		return "none"
	}
	return fmt.Sprintf("%.0e", *c.Threshold)
}

// Label returns a human-readable run label such as "exact_k5_thr1e-03".
func (c SimulationConfig) Label(mode Mode) string {
	prefix := "vec"
	if mode == ModeExact {
		prefix = "exact"
	}
	return fmt.Sprintf("%s_k%d_thr%s", prefix, c.K, c.ThresholdLabel())
}
