package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/storage"
)

// PredictionStore implements storage.PredictionStore using ClickHouse.
// The table is a ReplacingMergeTree; uniqueness of (date, asset_id) is
// checked before insert to keep append-only semantics.
type PredictionStore struct {
	conn *Conn
}

// NewPredictionStore creates a new PredictionStore.
func NewPredictionStore(conn *Conn) *PredictionStore {
	return &PredictionStore{conn: conn}
}

// Compile-time interface check.
var _ storage.PredictionStore = (*PredictionStore)(nil)

type predictionKey struct {
	assetID string
	date    int64
}

// InsertBulk adds multiple rows atomically. Fails entire batch on duplicate (asset_id, date).
func (s *PredictionStore) InsertBulk(ctx context.Context, rows []*domain.PredictionRow) error {
	if len(rows) == 0 {
		return nil
	}

	// Check for intra-batch duplicates and collect the date span
	seen := make(map[predictionKey]struct{}, len(rows))
	var minDate, maxDate time.Time
	for _, r := range rows {
		if r == nil || r.AssetID == "" || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		d := domain.NormalizeDate(r.Date)
		key := predictionKey{assetID: r.AssetID, date: d.Unix()}
		if _, exists := seen[key]; exists {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
		if minDate.IsZero() || d.Before(minDate) {
			minDate = d
		}
		if d.After(maxDate) {
			maxDate = d
		}
	}

	// Check for duplicates against existing rows in the span
	existing, err := s.GetByDateRange(ctx, minDate, maxDate)
	if err != nil {
		return fmt.Errorf("check existing predictions: %w", err)
	}
	for _, r := range existing {
		if _, exists := seen[predictionKey{assetID: r.AssetID, date: r.Date.Unix()}]; exists {
			return storage.ErrDuplicateKey
		}
	}

	batch, err := s.conn.PrepareBatch(ctx, `INSERT INTO predictions (asset_id, date, y_true, y_pred)`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for _, r := range rows {
		if err := batch.Append(r.AssetID, domain.NormalizeDate(r.Date), r.YTrue, r.YPred); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetAll retrieves all rows ordered by date ASC, asset_id ASC.
func (s *PredictionStore) GetAll(ctx context.Context) ([]*domain.PredictionRow, error) {
	query := `
		SELECT asset_id, date, y_true, y_pred
		FROM predictions FINAL
		ORDER BY date ASC, asset_id ASC
	`

	rows, err := s.conn.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query predictions: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

// GetByDateRange retrieves rows with date within [start, end] (inclusive).
func (s *PredictionStore) GetByDateRange(ctx context.Context, start, end time.Time) ([]*domain.PredictionRow, error) {
	query := `
		SELECT asset_id, date, y_true, y_pred
		FROM predictions FINAL
		WHERE date >= ? AND date <= ?
		ORDER BY date ASC, asset_id ASC
	`

	rows, err := s.conn.Query(ctx, query, domain.NormalizeDate(start), domain.NormalizeDate(end))
	if err != nil {
		return nil, fmt.Errorf("query predictions by date range: %w", err)
	}
	defer rows.Close()

	return scanPredictions(rows)
}

func scanPredictions(rows driver.Rows) ([]*domain.PredictionRow, error) {
	var result []*domain.PredictionRow
	for rows.Next() {
		var p domain.PredictionRow
		if err := rows.Scan(&p.AssetID, &p.Date, &p.YTrue, &p.YPred); err != nil {
			return nil, fmt.Errorf("scan prediction row: %w", err)
		}
		p.Date = domain.NormalizeDate(p.Date)
		result = append(result, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate prediction rows: %w", err)
	}
	return result, nil
}
