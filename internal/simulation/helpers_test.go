package simulation

import (
	"math"
	"time"

	"quant-backtest-lab/internal/domain"
)

const tol = 1e-12

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func row(asset string, d int, yTrue, yPred float64) *domain.PredictionRow {
	return &domain.PredictionRow{AssetID: asset, Date: day(d), YTrue: yTrue, YPred: yPred}
}

func ptrFloat(v float64) *float64 {
	return &v
}

func approxEqual(a, b, eps float64) bool {
	return math.Abs(a-b) <= eps
}

// threeAssetScenario is the two-date rotation fixture:
// date 1 picks A, date 2 rotates fully into C.
func threeAssetScenario() []*domain.PredictionRow {
	return []*domain.PredictionRow{
		row("A", 0, 0.01, 0.02),
		row("B", 0, 0.00, 0.01),
		row("A", 1, -0.01, 0.00),
		row("C", 1, 0.02, 0.03),
	}
}

func zeroCostConfig(k int) domain.SimulationConfig {
	return domain.SimulationConfig{K: k, InitialCapital: 100_000}
}
