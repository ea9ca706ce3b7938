package simulation

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"quant-backtest-lab/internal/domain"
)

// Vectorized runs the cost-free top-K estimate.
//
// For every date with at least one eligible row, RetPort is the arithmetic
// mean of the raw YTrue log returns of the selected assets (0 when k <= 0).
// Dates with no eligible rows are omitted. Output is ordered by date.
func Vectorized(rows []*domain.PredictionRow, cfg domain.SimulationConfig) []*domain.DailyReturn {
	groups := groupByDate(rows)
	out := make([]*domain.DailyReturn, 0, len(groups))
	for _, g := range groups {
		if rec := vectorizedDay(g, cfg); rec != nil {
			out = append(out, rec)
		}
	}
	return out
}

// VectorizedParallel computes the same result as Vectorized, spreading
// dates over workers goroutines. workers <= 0 uses GOMAXPROCS.
// Returns ctx.Err() if the context is cancelled before all dates are done.
func VectorizedParallel(ctx context.Context, rows []*domain.PredictionRow, cfg domain.SimulationConfig, workers int) ([]*domain.DailyReturn, error) {
	groups := groupByDate(rows)
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	// Each slot is written by exactly one goroutine; the slice index is the
	// date key, so the merge is a compaction in date order.
	slots := make([]*domain.DailyReturn, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range groups {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			slots[i] = vectorizedDay(groups[i], cfg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]*domain.DailyReturn, 0, len(slots))
	for _, rec := range slots {
		if rec != nil {
			out = append(out, rec)
		}
	}
	return out, nil
}

func vectorizedDay(g dayGroup, cfg domain.SimulationConfig) *domain.DailyReturn {
	if !hasEligible(g.Rows, cfg.Threshold) {
		return nil
	}

	sel := Select(g.Rows, cfg.K, cfg.Threshold)
	ret := 0.0
	if n := sel.Len(); n > 0 {
		sum := 0.0
		for _, r := range sel.Rows {
			sum += r.YTrue
		}
		ret = sum / float64(n)
	}

	return &domain.DailyReturn{Date: g.Date, RetPort: ret}
}
