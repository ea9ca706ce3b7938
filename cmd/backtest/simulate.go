package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"quant-backtest-lab/internal/config"
	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/orchestrator"
)

type simulateFlags struct {
	predictions    string
	mode           string
	k              int
	threshold      float64
	noThreshold    bool
	initialCapital float64
	slippageBps    float64
	commission     float64
	out            string
}

func newSimulateCmd(a *app) *cobra.Command {
	f := &simulateFlags{}

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run a single backtest and write its daily table and summary",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runSimulate(cmd, f)
		},
	}

	f.bind(cmd.Flags())
	return cmd
}

func (f *simulateFlags) bind(fs *pflag.FlagSet) {
	fs.StringVar(&f.predictions, "predictions", "", "Prediction CSV (date,asset_id,y_pred,y_true)")
	fs.StringVar(&f.mode, "mode", string(domain.ModeExact), "Simulator: exact or vectorized")
	fs.IntVar(&f.k, "k", domain.DefaultK, "Max holdings per day")
	fs.Float64Var(&f.threshold, "threshold", 0, "Minimum y_pred to be eligible (exclusive)")
	fs.BoolVar(&f.noThreshold, "no-threshold", false, "Disable the threshold set in the config")
	fs.Float64Var(&f.initialCapital, "initial-capital", domain.DefaultInitialCapital, "Starting equity (exact mode)")
	fs.Float64Var(&f.slippageBps, "slippage-bps", domain.DefaultSlippageBps, "Slippage in basis points of traded notional (exact mode)")
	fs.Float64Var(&f.commission, "commission", domain.DefaultCommissionPerTrade, "Flat commission per changed position (exact mode)")
	fs.StringVar(&f.out, "out", "", "Output directory (defaults to output.dir)")
}

// apply overlays explicitly set flags onto cfg and revalidates it.
func (f *simulateFlags) apply(fl *pflag.FlagSet, cfg *config.Config) error {
	sim := &cfg.Simulation
	if fl.Changed("predictions") {
		cfg.Predictions.Path = f.predictions
	}
	if fl.Changed("k") {
		sim.K = f.k
	}
	if fl.Changed("threshold") {
		v := f.threshold
		sim.Threshold = &v
	}
	if f.noThreshold {
		sim.Threshold = nil
	}
	if fl.Changed("initial-capital") {
		sim.InitialCapital = f.initialCapital
	}
	if fl.Changed("slippage-bps") {
		sim.SlippageBps = f.slippageBps
	}
	if fl.Changed("commission") {
		sim.CommissionPerTrade = f.commission
	}
	if fl.Changed("out") {
		cfg.Output.Dir = f.out
	}
	return cfg.Validate()
}

func (a *app) runSimulate(cmd *cobra.Command, f *simulateFlags) error {
	ctx := cmd.Context()

	if err := f.apply(cmd.Flags(), a.cfg); err != nil {
		return err
	}
	mode, err := domain.ParseMode(f.mode)
	if err != nil {
		return err
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

	res, err := orch.RunPredictions(ctx, orchestrator.RunSpec{
		Mode:   mode,
		Config: a.cfg.SimulationParams(),
	}, rows)
	if err != nil {
		return fmt.Errorf("simulate: %w", err)
	}

	if err := a.writeDaily(a.cfg.Output.Dir, res); err != nil {
		return err
	}
	if err := a.writeReport(ctx, s, a.cfg.Output.Dir, res.Run.BatchID); err != nil {
		return err
	}

	m := res.Summary.Metrics
	a.logger.Info().
		Str("label", res.Run.Label).
		Int("days", m.N).
		Float64("cagr", m.CAGR).
		Float64("sharpe", m.Sharpe).
		Float64("max_drawdown", m.MaxDrawdown).
		Msg("simulation complete")
	return nil
}
