package simulation

import (
	"context"
	"errors"
	"fmt"

	"quant-backtest-lab/internal/domain"
)

// ErrUnknownMode is returned by Run for a mode it cannot simulate.
var ErrUnknownMode = errors.New("unknown simulation mode")

// Run dispatches to the simulator for mode and returns one DailyRecord per
// emitted date. Vectorized results carry only Date and RetPort. With
// workers > 1 the vectorized mode spreads dates over goroutines; the exact
// mode is always a single sequential pass.
func Run(ctx context.Context, mode domain.Mode, rows []*domain.PredictionRow, cfg domain.SimulationConfig, workers int) ([]*domain.DailyRecord, error) {
	switch mode {
	case domain.ModeExact:
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return Exact(rows, cfg), nil

	case domain.ModeVectorized:
		var daily []*domain.DailyReturn
		if workers > 1 {
			var err error
			daily, err = VectorizedParallel(ctx, rows, cfg, workers)
			if err != nil {
				return nil, fmt.Errorf("vectorized simulation: %w", err)
			}
		} else {
			daily = Vectorized(rows, cfg)
		}
		records := make([]*domain.DailyRecord, len(daily))
		for i, d := range daily {
			records[i] = d.AsRecord()
		}
		return records, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
