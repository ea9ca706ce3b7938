package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"quant-backtest-lab/internal/orchestrator"
)

func newSweepCmd(a *app) *cobra.Command {
	var (
		predictions string
		out         string
		concurrency int
		verify      bool
	)

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Run the configured K x threshold x mode grid and write a comparison report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			fl := cmd.Flags()
			if fl.Changed("predictions") {
				a.cfg.Predictions.Path = predictions
			}
			if fl.Changed("out") {
				a.cfg.Output.Dir = out
			}
			if fl.Changed("concurrency") {
				a.cfg.Sweep.Concurrency = concurrency
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			return a.runSweep(cmd, verify)
		},
	}

	cmd.Flags().StringVar(&predictions, "predictions", "", "Prediction CSV (defaults to predictions.path)")
	cmd.Flags().StringVar(&out, "out", "", "Output directory (defaults to output.dir)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Runs in flight (defaults to sweep.concurrency)")
	cmd.Flags().BoolVar(&verify, "verify", false, "Replay every run of the batch and cross-check the simulators")
	return cmd
}

func (a *app) runSweep(cmd *cobra.Command, verify bool) error {
	ctx := cmd.Context()

	specs := orchestrator.Grid(
		a.cfg.SimulationParams(),
		a.cfg.SweepModes(),
		a.cfg.Sweep.K,
		a.cfg.Sweep.Thresholds,
	)
	if len(specs) == 0 {
		return fmt.Errorf("sweep grid is empty")
	}
	if err := ensureDir(a.cfg.Output.Dir); err != nil {
		return err
	}

	benchmark, err := a.loadBenchmark()
	if err != nil {
		return err
	}

	s, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	orch := a.newOrchestrator(s, benchmark)
	rows, err := a.ingestPredictions(ctx, orch, a.cfg.Predictions.Path)
	if err != nil {
		return err
	}

	a.logger.Info().Int("runs", len(specs)).Int("concurrency", a.cfg.Sweep.Concurrency).Msg("sweep started")
	results, err := orch.SweepPredictions(ctx, specs, rows, a.cfg.Sweep.Concurrency)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	for _, res := range results {
		if err := a.writeDaily(a.cfg.Output.Dir, res); err != nil {
			return err
		}
	}
	batchID := results[0].Run.BatchID
	if err := a.writeReport(ctx, s, a.cfg.Output.Dir, batchID); err != nil {
		return err
	}

	if verify {
		if err := a.verifyRuns(ctx, s, batchID); err != nil {
			return err
		}
		return a.crossCheck(rows)
	}
	return nil
}
