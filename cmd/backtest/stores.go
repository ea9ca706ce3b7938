package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"quant-backtest-lab/internal/config"
	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/feed"
	"quant-backtest-lab/internal/orchestrator"
	"quant-backtest-lab/internal/storage"
	chstore "quant-backtest-lab/internal/storage/clickhouse"
	"quant-backtest-lab/internal/storage/memory"
	"quant-backtest-lab/internal/storage/migrations"
	pgstore "quant-backtest-lab/internal/storage/postgres"
)

// stores bundles the four stores with a close hook.
type stores struct {
	predictions storage.PredictionStore
	runs        storage.BacktestRunStore
	records     storage.DailyRecordStore
	summaries   storage.SummaryStore
	close       func()
}

// openStores builds in-memory stores, or PostgreSQL (runs, summaries) plus
// ClickHouse (predictions, daily records) with migrations applied.
func (a *app) openStores(ctx context.Context) (*stores, error) {
	switch a.cfg.Storage.Backend {
	case config.BackendMemory:
		return &stores{
			predictions: memory.NewPredictionStore(),
			runs:        memory.NewBacktestRunStore(),
			records:     memory.NewDailyRecordStore(),
			summaries:   memory.NewSummaryStore(),
			close:       func() {},
		}, nil

	case config.BackendDatabase:
		pool, err := pgstore.NewPool(ctx, a.cfg.Storage.PostgresDSN,
			pgstore.WithMaxConns(a.cfg.Sweep.Concurrency+1),
			pgstore.WithConnectTimeout(10*time.Second),
		)
		if err != nil {
			return nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool, a.logger); err != nil {
			pool.Close()
			return nil, err
		}

		conn, err := migrations.RunClickhouseMigrations(ctx, a.cfg.Storage.ClickhouseDSN, a.logger)
		if err != nil {
			pool.Close()
			return nil, err
		}

		return &stores{
			predictions: chstore.NewPredictionStore(conn),
			runs:        pgstore.NewBacktestRunStore(pool),
			records:     chstore.NewDailyRecordStore(conn),
			summaries:   pgstore.NewSummaryStore(pool),
			close: func() {
				_ = conn.Close()
				pool.Close()
			},
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, a.cfg.Storage.Backend)
	}
}

// newOrchestrator wires stores, metrics, logging and the optional benchmark.
func (a *app) newOrchestrator(s *stores, benchmark []*domain.DailyReturn) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Options{
		PredictionStore: s.predictions,
		RunStore:        s.runs,
		RecordStore:     s.records,
		SummaryStore:    s.summaries,
		Metrics:         a.metrics,
		Logger:          a.logger,
		Benchmark:       benchmark,
		PeriodsPerYear:  a.cfg.Simulation.PeriodsPerYear,
		Workers:         a.cfg.Sweep.Concurrency,
	})
}

// ingestPredictions reads the prediction CSV, stores the rows not stored
// yet and returns the file's rows. Runs simulate exactly these rows.
func (a *app) ingestPredictions(ctx context.Context, orch *orchestrator.Orchestrator, path string) ([]*domain.PredictionRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open predictions: %w", err)
	}
	defer f.Close()

	rows, err := feed.ReadPredictions(f)
	if err != nil {
		return nil, fmt.Errorf("read predictions %s: %w", path, err)
	}
	a.logger.Info().Str("path", path).Int("rows", len(rows)).Msg("predictions loaded")

	if err := orch.Ingest(ctx, rows); err != nil {
		return nil, fmt.Errorf("ingest %s: %w", path, err)
	}
	return rows, nil
}

// loadBenchmark reads the configured benchmark CSV, if any.
func (a *app) loadBenchmark() ([]*domain.DailyReturn, error) {
	path := a.cfg.Predictions.Benchmark
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open benchmark: %w", err)
	}
	defer f.Close()

	bench, err := feed.ReadBenchmark(f)
	if err != nil {
		return nil, fmt.Errorf("read benchmark %s: %w", path, err)
	}
	a.logger.Info().Str("path", path).Int("days", len(bench)).Msg("benchmark loaded")
	return bench, nil
}
