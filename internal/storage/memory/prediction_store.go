package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/storage"
)

// PredictionStore is an in-memory implementation of storage.PredictionStore.
type PredictionStore struct {
	mu   sync.RWMutex
	data map[predictionKey]*domain.PredictionRow
}

type predictionKey struct {
	assetID string
	date    int64 // unix seconds of UTC midnight
}

// NewPredictionStore creates a new in-memory prediction store.
func NewPredictionStore() *PredictionStore {
	return &PredictionStore{
		data: make(map[predictionKey]*domain.PredictionRow),
	}
}

func keyOf(r *domain.PredictionRow) predictionKey {
	return predictionKey{assetID: r.AssetID, date: domain.NormalizeDate(r.Date).Unix()}
}

// InsertBulk adds multiple rows atomically. Fails entire batch on any duplicate.
func (s *PredictionStore) InsertBulk(_ context.Context, rows []*domain.PredictionRow) error {
	if len(rows) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[predictionKey]struct{}, len(rows))
	for _, r := range rows {
		if r == nil || r.AssetID == "" || r.Date.IsZero() {
			return storage.ErrInvalidInput
		}
		key := keyOf(r)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, r := range rows {
		rowCopy := *r
		rowCopy.Date = domain.NormalizeDate(r.Date)
		s.data[keyOf(r)] = &rowCopy
	}
	return nil
}

// GetAll retrieves all rows ordered by date, asset_id.
func (s *PredictionStore) GetAll(_ context.Context) ([]*domain.PredictionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.PredictionRow, 0, len(s.data))
	for _, r := range s.data {
		rowCopy := *r
		result = append(result, &rowCopy)
	}
	sortPredictions(result)
	return result, nil
}

// GetByDateRange retrieves rows within [start, end] (inclusive).
func (s *PredictionStore) GetByDateRange(_ context.Context, start, end time.Time) ([]*domain.PredictionRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start, end = domain.NormalizeDate(start), domain.NormalizeDate(end)

	var result []*domain.PredictionRow
	for _, r := range s.data {
		if r.Date.Before(start) || r.Date.After(end) {
			continue
		}
		rowCopy := *r
		result = append(result, &rowCopy)
	}
	sortPredictions(result)
	return result, nil
}

func sortPredictions(rows []*domain.PredictionRow) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].AssetID < rows[j].AssetID
	})
}

var _ storage.PredictionStore = (*PredictionStore)(nil)
