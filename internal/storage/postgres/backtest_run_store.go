package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/storage"
)

// BacktestRunStore implements storage.BacktestRunStore using PostgreSQL.
// final_equity is NUMERIC and travels as decimal.Decimal. Simulation inputs
// are DOUBLE PRECISION so a replay sees the exact stored config.
type BacktestRunStore struct {
	pool *Pool
}

// NewBacktestRunStore creates a new BacktestRunStore.
func NewBacktestRunStore(pool *Pool) *BacktestRunStore {
	return &BacktestRunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BacktestRunStore = (*BacktestRunStore)(nil)

const backtestRunColumns = `
	run_id, batch_id, label, mode,
	k, threshold, initial_capital, slippage_bps, commission_per_trade, trade_epsilon,
	start_date, end_date, days, final_equity, created_at
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestRunStore) Insert(ctx context.Context, r *domain.BacktestRun) error {
	if r == nil || r.RunID == "" || r.Mode == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO backtest_runs (` + backtestRunColumns + `) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15
		)
	`

	var finalEquity *decimal.Decimal
	if r.FinalEquity != nil {
		d := decimal.NewFromFloat(*r.FinalEquity)
		finalEquity = &d
	}

	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.BatchID, r.Label, string(r.Mode),
		r.Config.K, r.Config.Threshold,
		r.Config.InitialCapital, r.Config.SlippageBps, r.Config.CommissionPerTrade,
		r.Config.TradeEpsilon,
		nullableDate(r.StartDate), nullableDate(r.EndDate), r.Days, finalEquity, createdAt,
	)
	if err != nil {
		return storeError("insert backtest run", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *BacktestRunStore) GetByID(ctx context.Context, runID string) (*domain.BacktestRun, error) {
	query := `SELECT ` + backtestRunColumns + ` FROM backtest_runs WHERE run_id = $1`

	r, err := scanBacktestRun(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		return nil, storeError("get backtest run by id", err)
	}
	return r, nil
}

// GetByBatch retrieves all runs of a sweep, ordered by label ASC.
func (s *BacktestRunStore) GetByBatch(ctx context.Context, batchID string) ([]*domain.BacktestRun, error) {
	query := `SELECT ` + backtestRunColumns + `
		FROM backtest_runs
		WHERE batch_id = $1
		ORDER BY label ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query, batchID)
	if err != nil {
		return nil, fmt.Errorf("get backtest runs by batch: %w", err)
	}
	defer rows.Close()

	return scanBacktestRuns(rows)
}

// GetAll retrieves all runs ordered by created_at ASC, run_id ASC.
func (s *BacktestRunStore) GetAll(ctx context.Context) ([]*domain.BacktestRun, error) {
	query := `SELECT ` + backtestRunColumns + `
		FROM backtest_runs
		ORDER BY created_at ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all backtest runs: %w", err)
	}
	defer rows.Close()

	return scanBacktestRuns(rows)
}

// scanBacktestRun scans a single row into a BacktestRun.
func scanBacktestRun(row pgx.Row) (*domain.BacktestRun, error) {
	var (
		r                  domain.BacktestRun
		mode               string
		finalEquity        decimal.NullDecimal
		startDate, endDate *time.Time
	)

	err := row.Scan(
		&r.RunID, &r.BatchID, &r.Label, &mode,
		&r.Config.K, &r.Config.Threshold,
		&r.Config.InitialCapital, &r.Config.SlippageBps, &r.Config.CommissionPerTrade, &r.Config.TradeEpsilon,
		&startDate, &endDate, &r.Days, &finalEquity, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Mode = domain.Mode(mode)
	if startDate != nil {
		r.StartDate = domain.NormalizeDate(*startDate)
	}
	if endDate != nil {
		r.EndDate = domain.NormalizeDate(*endDate)
	}
	if finalEquity.Valid {
		v := finalEquity.Decimal.InexactFloat64()
		r.FinalEquity = &v
	}
	r.CreatedAt = r.CreatedAt.UTC()

	return &r, nil
}

// scanBacktestRuns scans multiple rows into a slice of BacktestRun.
func scanBacktestRuns(rows pgx.Rows) ([]*domain.BacktestRun, error) {
	var runs []*domain.BacktestRun

	for rows.Next() {
		r, err := scanBacktestRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest run row: %w", err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest run rows: %w", err)
	}

	return runs, nil
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	d := domain.NormalizeDate(t)
	return &d
}
