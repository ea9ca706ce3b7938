package storage

import (
	"context"
	"time"

	"quant-backtest-lab/internal/domain"
)

// PredictionStore provides access to predictions storage.
type PredictionStore interface {
	// InsertBulk adds multiple rows atomically. Fails entire batch on duplicate (asset_id, date).
	InsertBulk(ctx context.Context, rows []*domain.PredictionRow) error

	// GetAll retrieves all rows ordered by date ASC, asset_id ASC.
	GetAll(ctx context.Context) ([]*domain.PredictionRow, error)

	// GetByDateRange retrieves rows with date within [start, end] (inclusive), same order as GetAll.
	GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.PredictionRow, error)
}

// BacktestRunStore provides access to backtest_runs storage.
type BacktestRunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.BacktestRun) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error)

	// GetByBatch retrieves all runs of a sweep, ordered by label ASC.
	GetByBatch(ctx context.Context, batchID string) ([]*domain.BacktestRun, error)

	// GetAll retrieves all runs ordered by created_at ASC, run_id ASC.
	GetAll(ctx context.Context) ([]*domain.BacktestRun, error)
}

// DailyRecordStore provides access to daily_records storage.
// Vectorized runs store only Date and RetPort; the remaining columns are zero.
type DailyRecordStore interface {
	// InsertBulk appends records of a run atomically. Fails entire batch on duplicate (run_id, date).
	InsertBulk(ctx context.Context, runID string, records []*domain.DailyRecord) error

	// GetByRunID retrieves all records of a run ordered by date ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.DailyRecord, error)
}

// SummaryStore provides access to backtest_summaries storage.
type SummaryStore interface {
	// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, s *domain.BacktestSummary) error

	// GetByRunID retrieves the summary of a run. Returns ErrNotFound if not exists.
	GetByRunID(ctx context.Context, runID string) (*domain.BacktestSummary, error)

	// GetAll retrieves all summaries ordered by mode ASC, label ASC.
	GetAll(ctx context.Context) ([]*domain.BacktestSummary, error)
}
