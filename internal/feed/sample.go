package feed

import (
	"fmt"
	"math/rand/v2"
	"time"

	"quant-backtest-lab/internal/domain"
)

// SampleOptions configures GenerateSample.
type SampleOptions struct {
	Assets    []string  // asset IDs; generated as A00, A01, ... when empty
	NumAssets int       // used when Assets is empty
	Days      int       // business days
	Start     time.Time // first date, rolled forward to a weekday
	Seed      uint64

	Drift  float64 // mean daily log return
	Vol    float64 // daily log-return stddev
	Signal float64 // weight of the realized return in the prediction
	Noise  float64 // stddev of prediction noise
}

// DefaultSampleOptions returns 5 assets over 60 business days with seed 42.
func DefaultSampleOptions() SampleOptions {
	return SampleOptions{
		NumAssets: 5,
		Days:      60,
		Start:     time.Date(2024, 12, 2, 0, 0, 0, 0, time.UTC),
		Seed:      42,
		Drift:     0.0003,
		Vol:       0.01,
		Signal:    0.3,
		Noise:     0.01,
	}
}

// GenerateSample produces a deterministic synthetic prediction table.
// Each asset follows a Gaussian log-return walk; YTrue is the next day's
// return and YPred is a noisy scaled copy of it. Output is in canonical order.
func GenerateSample(opts SampleOptions) []*domain.PredictionRow {
	assets := opts.Assets
	if len(assets) == 0 {
		assets = make([]string, opts.NumAssets)
		for i := range assets {
			assets[i] = fmt.Sprintf("A%02d", i)
		}
	}
	if opts.Days <= 0 || len(assets) == 0 {
		return nil
	}

	dates := businessDays(domain.NormalizeDate(opts.Start), opts.Days)
	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))

	rows := make([]*domain.PredictionRow, 0, len(assets)*len(dates))
	for _, asset := range assets {
		for _, d := range dates {
			yTrue := opts.Drift + opts.Vol*rng.NormFloat64()
			yPred := opts.Signal*yTrue + opts.Noise*rng.NormFloat64()
			rows = append(rows, &domain.PredictionRow{
				AssetID: asset,
				Date:    d,
				YTrue:   yTrue,
				YPred:   yPred,
			})
		}
	}

	SortCanonical(rows)
	return rows
}

func businessDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	for d := start; len(out) < n; d = d.AddDate(0, 0, 1) {
		if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}
