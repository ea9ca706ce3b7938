package domain

import "time"

// MetricsSummary is the reduction of a daily log-return series.
type MetricsSummary struct {
	CAGR        float64
	Sharpe      float64
	MaxDrawdown float64 // <= 0
	N           int     // number of days
}

// BacktestRun describes one simulation execution.
// Corresponds to the backtest_runs table.
type BacktestRun struct {
	RunID   string // deterministic hash, see idhash.ComputeRunID
	BatchID string // groups runs of one sweep
	Label   string // e.g. "exact_k5_thrnone"
	Mode    Mode
	Config  SimulationConfig

	StartDate time.Time // first simulated date, zero when no records
	EndDate   time.Time
	Days      int

	// FinalEquity is set for exact runs only.
	FinalEquity *float64
	CreatedAt   time.Time
}

// BacktestSummary is the persisted metrics of a run.
// Corresponds to the backtest_summaries table.
type BacktestSummary struct {
	RunID   string
	Label   string
	Mode    Mode
	Metrics MetricsSummary

	// Benchmark is the same reduction over the benchmark series restricted
	// to the run's dates; nil when no benchmark was supplied.
	Benchmark *MetricsSummary
}
