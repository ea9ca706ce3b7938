package clickhouse

import (
	"context"
	"fmt"
	"time"

	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/storage"
)

// DailyRecordStore implements storage.DailyRecordStore using ClickHouse.
// Holdings are stored as Array(String) in ascending order.
type DailyRecordStore struct {
	conn *Conn
}

// NewDailyRecordStore creates a new DailyRecordStore.
func NewDailyRecordStore(conn *Conn) *DailyRecordStore {
	return &DailyRecordStore{conn: conn}
}

// Compile-time interface check.
var _ storage.DailyRecordStore = (*DailyRecordStore)(nil)

// InsertBulk appends records of a run atomically. Fails entire batch on duplicate (run_id, date).
func (s *DailyRecordStore) InsertBulk(ctx context.Context, runID string, records []*domain.DailyRecord) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(records) == 0 {
		return nil
	}

	existing, err := s.dates(ctx, runID)
	if err != nil {
		return fmt.Errorf("check existing records: %w", err)
	}
	for _, r := range records {
		if r == nil || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := domain.NormalizeDate(r.Date).Unix()
		if _, exists := existing[key]; exists {
			return storage.ErrDuplicateKey
		}
		existing[key] = struct{}{}
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO daily_records (
			run_id, date, ret_port, equity, holdings, turnover, cost_value
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range records {
		holdings := r.Holdings
		if holdings == nil {
			holdings = []string{}
		}
		err := batch.Append(
			runID, domain.NormalizeDate(r.Date), r.RetPort, r.Equity,
			holdings, r.Turnover, r.CostValue,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByRunID retrieves all records of a run ordered by date ASC.
func (s *DailyRecordStore) GetByRunID(ctx context.Context, runID string) ([]*domain.DailyRecord, error) {
	query := `
		SELECT date, ret_port, equity, holdings, turnover, cost_value
		FROM daily_records FINAL
		WHERE run_id = ?
		ORDER BY date ASC
	`

	rows, err := s.conn.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query daily records: %w", err)
	}
	defer rows.Close()

	var result []*domain.DailyRecord
	for rows.Next() {
		var r domain.DailyRecord
		if err := rows.Scan(&r.Date, &r.RetPort, &r.Equity, &r.Holdings, &r.Turnover, &r.CostValue); err != nil {
			return nil, fmt.Errorf("scan daily record row: %w", err)
		}
		r.Date = domain.NormalizeDate(r.Date)
		if len(r.Holdings) == 0 {
			r.Holdings = nil
		}
		result = append(result, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate daily record rows: %w", err)
	}
	return result, nil
}

// dates returns the stored dates of a run as unix seconds.
func (s *DailyRecordStore) dates(ctx context.Context, runID string) (map[int64]struct{}, error) {
	rows, err := s.conn.Query(ctx, `SELECT date FROM daily_records FINAL WHERE run_id = ?`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64]struct{})
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out[domain.NormalizeDate(d).Unix()] = struct{}{}
	}
	return out, rows.Err()
}
