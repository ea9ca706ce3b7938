// Package config loads the backtest YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"quant-backtest-lab/internal/domain"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendDatabase = "postgres+clickhouse"
)

// Config is the root configuration document.
type Config struct {
	Predictions PredictionsConfig `yaml:"predictions"`
	Simulation  SimulationConfig  `yaml:"simulation"`
	Sweep       SweepConfig       `yaml:"sweep"`
	Storage     StorageConfig     `yaml:"storage"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
	Metrics     MetricsConfig     `yaml:"metrics"`
}

// PredictionsConfig points at the prediction table and optional benchmark CSV.
type PredictionsConfig struct {
	Path      string `yaml:"path"`
	Benchmark string `yaml:"benchmark"`
}

// SimulationConfig holds the parameters of a single run.
type SimulationConfig struct {
	K                  int      `yaml:"k"`
	Threshold          *float64 `yaml:"threshold"`
	InitialCapital     float64  `yaml:"initial_capital"`
	SlippageBps        float64  `yaml:"slippage_bps"`
	CommissionPerTrade float64  `yaml:"commission_per_trade"`
	TradeEpsilon       float64  `yaml:"trade_epsilon"`
	PeriodsPerYear     int      `yaml:"periods_per_year"`
}

// SweepConfig lists the parameter grid. A null entry in Thresholds means
// "no threshold".
type SweepConfig struct {
	K           []int      `yaml:"k"`
	Thresholds  []*float64 `yaml:"thresholds"`
	Modes       []string   `yaml:"modes"`
	Concurrency int        `yaml:"concurrency"`
}

// StorageConfig selects the store backend and its connection strings.
type StorageConfig struct {
	Backend       string `yaml:"backend"`
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// OutputConfig sets where daily tables and reports are written.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig controls zerolog level and console output.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Pretty bool   `yaml:"pretty"`
}

// MetricsConfig sets the Prometheus listen address. Empty disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	sim := domain.DefaultSimulationConfig()
	return &Config{
		Predictions: PredictionsConfig{Path: "data/predictions.csv"},
		Simulation: SimulationConfig{
			K:                  sim.K,
			InitialCapital:     sim.InitialCapital,
			SlippageBps:        sim.SlippageBps,
			CommissionPerTrade: sim.CommissionPerTrade,
			TradeEpsilon:       sim.TradeEpsilon,
			PeriodsPerYear:     domain.DefaultPeriodsPerYear,
		},
		Sweep: SweepConfig{
			K:           []int{sim.K},
			Thresholds:  []*float64{nil},
			Modes:       []string{string(domain.ModeVectorized), string(domain.ModeExact)},
			Concurrency: 4,
		},
		Storage: StorageConfig{Backend: BackendMemory},
		Output:  OutputConfig{Dir: "reports"},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a YAML file over Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over Default and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges. K <= 0 is allowed and yields empty selections.
func (c *Config) Validate() error {
	s := c.Simulation
	if s.InitialCapital <= 0 {
		return fmt.Errorf("%w: initial_capital must be positive, got %v", ErrInvalidConfig, s.InitialCapital)
	}
	if s.SlippageBps < 0 {
		return fmt.Errorf("%w: slippage_bps must be non-negative, got %v", ErrInvalidConfig, s.SlippageBps)
	}
	if s.CommissionPerTrade < 0 {
		return fmt.Errorf("%w: commission_per_trade must be non-negative, got %v", ErrInvalidConfig, s.CommissionPerTrade)
	}
	if s.TradeEpsilon < 0 {
		return fmt.Errorf("%w: trade_epsilon must be non-negative, got %v", ErrInvalidConfig, s.TradeEpsilon)
	}
	if s.PeriodsPerYear <= 0 {
		return fmt.Errorf("%w: periods_per_year must be positive, got %d", ErrInvalidConfig, s.PeriodsPerYear)
	}
	for _, m := range c.Sweep.Modes {
		if _, err := domain.ParseMode(m); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if c.Sweep.Concurrency < 0 {
		return fmt.Errorf("%w: sweep.concurrency must be non-negative", ErrInvalidConfig)
	}
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendDatabase:
		if c.Storage.PostgresDSN == "" || c.Storage.ClickhouseDSN == "" {
			return fmt.Errorf("%w: backend %s needs postgres_dsn and clickhouse_dsn", ErrInvalidConfig, c.Storage.Backend)
		}
	default:
		return fmt.Errorf("%w: unknown storage backend %q", ErrInvalidConfig, c.Storage.Backend)
	}
	return nil
}

// SimulationParams converts the simulation section to the core config.
func (c *Config) SimulationParams() domain.SimulationConfig {
	s := c.Simulation
	return domain.SimulationConfig{
		K:                  s.K,
		Threshold:          s.Threshold,
		InitialCapital:     s.InitialCapital,
		SlippageBps:        s.SlippageBps,
		CommissionPerTrade: s.CommissionPerTrade,
		TradeEpsilon:       s.TradeEpsilon,
	}
}

// SweepModes returns the parsed sweep modes.
func (c *Config) SweepModes() []domain.Mode {
	out := make([]domain.Mode, 0, len(c.Sweep.Modes))
	for _, m := range c.Sweep.Modes {
		mode, err := domain.ParseMode(m)
		if err != nil {
			continue
		}
		out = append(out, mode)
	}
	return out
}
