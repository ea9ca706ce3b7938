package reporting

import (
	"time"

	"quant-backtest-lab/internal/domain"
)

// Report compares stored backtest runs.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	BatchID     string // empty when the report covers every stored run

	// Runs sorted by (mode, label)
	Runs []RunRow

	// Highest-Sharpe run per mode, in mode order
	Best []BestRow
}

// RunRow is one line of the comparison table.
type RunRow struct {
	RunID       string
	Label       string
	Mode        domain.Mode
	Days        int
	StartDate   time.Time
	EndDate     time.Time
	FinalEquity *float64 // exact mode only
	Metrics     domain.MetricsSummary
	Benchmark   *domain.MetricsSummary
}

// BestRow names the best run of a mode.
type BestRow struct {
	Mode   domain.Mode
	Label  string
	Sharpe float64
	CAGR   float64
}
