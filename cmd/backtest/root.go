package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"quant-backtest-lab/internal/config"
	"quant-backtest-lab/internal/logging"
	"quant-backtest-lab/internal/observability"
)

// app carries state shared by subcommands after PersistentPreRunE.
type app struct {
	configPath  string
	logLevel    string
	metricsAddr string

	cfg      *config.Config
	logger   zerolog.Logger
	metrics  *observability.Metrics
	registry *prometheus.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "backtest",
		Short:         "Top-K long-only backtests over model predictions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "YAML config file (defaults apply when empty)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	pf.StringVar(&a.metricsAddr, "metrics-addr", "", "Serve Prometheus /metrics on this address (e.g. :9090)")

	root.AddCommand(
		newSimulateCmd(a),
		newSweepCmd(a),
		newReportCmd(a),
		newVerifyCmd(a),
		newSampleCmd(a),
	)
	return root
}

func (a *app) init(cmd *cobra.Command) error {
	cfg := config.Default()
	if a.configPath != "" {
		loaded, err := config.Load(a.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Metrics.Addr = a.metricsAddr
	}
	a.cfg = cfg

	logger, err := logging.Setup(cfg.Logging.Level, cfg.Logging.Pretty)
	if err != nil {
		return err
	}
	a.logger = logger
	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = observability.NewMetrics("", a.registry)

	if cfg.Metrics.Addr != "" {
		go a.serveMetrics(cmd.Context(), cfg.Metrics.Addr)
	}
	return nil
}
