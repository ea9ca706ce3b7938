package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/storage"
)

// SummaryStore implements storage.SummaryStore using PostgreSQL.
type SummaryStore struct {
	pool *Pool
}

// NewSummaryStore creates a new SummaryStore.
func NewSummaryStore(pool *Pool) *SummaryStore {
	return &SummaryStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SummaryStore = (*SummaryStore)(nil)

const summaryColumns = `
	run_id, label, mode,
	cagr, sharpe, max_drawdown, n,
	bench_cagr, bench_sharpe, bench_max_drawdown, bench_n
`

// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
func (s *SummaryStore) Insert(ctx context.Context, sum *domain.BacktestSummary) error {
	if sum == nil || sum.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO backtest_summaries (` + summaryColumns + `) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7,
			$8, $9, $10, $11
		)
	`

	var benchCAGR, benchSharpe, benchMaxDD *float64
	var benchN *int
	if b := sum.Benchmark; b != nil {
		benchCAGR, benchSharpe, benchMaxDD, benchN = &b.CAGR, &b.Sharpe, &b.MaxDrawdown, &b.N
	}

	_, err := s.pool.Exec(ctx, query,
		sum.RunID, sum.Label, string(sum.Mode),
		sum.Metrics.CAGR, sum.Metrics.Sharpe, sum.Metrics.MaxDrawdown, sum.Metrics.N,
		benchCAGR, benchSharpe, benchMaxDD, benchN,
	)
	if err != nil {
		return storeError("insert backtest summary", err)
	}
	return nil
}

// GetByRunID retrieves the summary of a run. Returns ErrNotFound if not exists.
func (s *SummaryStore) GetByRunID(ctx context.Context, runID string) (*domain.BacktestSummary, error) {
	query := `SELECT ` + summaryColumns + ` FROM backtest_summaries WHERE run_id = $1`

	sum, err := scanSummary(s.pool.QueryRow(ctx, query, runID))
	if err != nil {
		return nil, storeError("get backtest summary by run id", err)
	}
	return sum, nil
}

// GetAll retrieves all summaries ordered by mode ASC, label ASC.
func (s *SummaryStore) GetAll(ctx context.Context) ([]*domain.BacktestSummary, error) {
	query := `SELECT ` + summaryColumns + `
		FROM backtest_summaries
		ORDER BY mode ASC, label ASC, run_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all backtest summaries: %w", err)
	}
	defer rows.Close()

	var result []*domain.BacktestSummary
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest summary row: %w", err)
		}
		result = append(result, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest summary rows: %w", err)
	}
	return result, nil
}

// scanSummary scans a single row into a BacktestSummary.
func scanSummary(row pgx.Row) (*domain.BacktestSummary, error) {
	var (
		sum                                domain.BacktestSummary
		mode                               string
		benchCAGR, benchSharpe, benchMaxDD *float64
		benchN                             *int
	)

	err := row.Scan(
		&sum.RunID, &sum.Label, &mode,
		&sum.Metrics.CAGR, &sum.Metrics.Sharpe, &sum.Metrics.MaxDrawdown, &sum.Metrics.N,
		&benchCAGR, &benchSharpe, &benchMaxDD, &benchN,
	)
	if err != nil {
		return nil, err
	}

	sum.Mode = domain.Mode(mode)
	if benchN != nil {
		sum.Benchmark = &domain.MetricsSummary{N: *benchN}
		if benchCAGR != nil {
			sum.Benchmark.CAGR = *benchCAGR
		}
		if benchSharpe != nil {
			sum.Benchmark.Sharpe = *benchSharpe
		}
		if benchMaxDD != nil {
			sum.Benchmark.MaxDrawdown = *benchMaxDD
		}
	}

	return &sum, nil
}
