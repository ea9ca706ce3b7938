package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"quant-backtest-lab/internal/config"
	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/verification"
)

// ErrVerificationFailed is returned when a replayed run diverges from storage.
var ErrVerificationFailed = errors.New("verification failed")

func newVerifyCmd(a *app) *cobra.Command {
	var (
		batchID    string
		crossCheck bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Replay stored runs and compare them with their persisted daily records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.cfg.Storage.Backend == config.BackendMemory {
				return fmt.Errorf("verify reads stored runs; set storage.backend to %s", config.BackendDatabase)
			}

			ctx := cmd.Context()
			s, err := a.openStores(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if err := a.verifyRuns(ctx, s, batchID); err != nil {
				return err
			}
			if crossCheck {
				rows, err := s.predictions.GetAll(ctx)
				if err != nil {
					return fmt.Errorf("load predictions: %w", err)
				}
				return a.crossCheck(rows)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&batchID, "batch", "", "Restrict to one sweep batch (default: all runs)")
	cmd.Flags().BoolVar(&crossCheck, "cross-check", false, "Also compare vectorized and exact returns on days without turnover")
	return cmd
}

// verifyRuns replays the runs of batchID (all runs when empty).
func (a *app) verifyRuns(ctx context.Context, s *stores, batchID string) error {
	v := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		PredictionStore: s.predictions,
		RunStore:        s.runs,
		RecordStore:     s.records,
		SummaryStore:    s.summaries,
		PeriodsPerYear:  a.cfg.Simulation.PeriodsPerYear,
		Workers:         a.cfg.Sweep.Concurrency,
	})

	var (
		report *verification.VerificationReport
		err    error
	)
	if batchID != "" {
		report, err = v.VerifyBatch(ctx, batchID)
	} else {
		report, err = v.VerifyAll(ctx)
	}
	if err != nil {
		return err
	}

	for _, r := range report.Results {
		if r.Match {
			continue
		}
		for _, d := range r.Divergences {
			a.logger.Warn().
				Str("label", r.Label).
				Str("run_id", r.RunID).
				Time("date", d.Date).
				Str("field", d.Field).
				Interface("stored", d.Expected).
				Interface("replayed", d.Actual).
				Msg("run diverged")
		}
	}
	a.logger.Info().
		Int("runs", report.TotalRuns).
		Int("matched", report.MatchedRuns).
		Int("divergent", report.DivergentRuns).
		Msg("verification complete")

	if report.DivergentRuns > 0 {
		return fmt.Errorf("%w: %d of %d runs diverged", ErrVerificationFailed, report.DivergentRuns, report.TotalRuns)
	}
	return nil
}

// crossCheck compares the two simulators over rows using the configured
// simulation parameters.
func (a *app) crossCheck(rows []*domain.PredictionRow) error {
	res := verification.CrossCheck(rows, a.cfg.SimulationParams())
	for _, d := range res.Divergences {
		a.logger.Warn().
			Time("date", d.Date).
			Float64("vectorized", d.Expected.(float64)).
			Float64("exact", d.Actual.(float64)).
			Msg("simulators disagree")
	}
	a.logger.Info().Int("days", res.DaysCompared).Bool("match", res.Match()).Msg("cross-check complete")

	if !res.Match() {
		return fmt.Errorf("%w: simulators disagree on %d days", ErrVerificationFailed, len(res.Divergences))
	}
	return nil
}
