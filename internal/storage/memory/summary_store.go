package memory

import (
	"context"
	"sort"
	"sync"

	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/storage"
)

// SummaryStore is an in-memory implementation of storage.SummaryStore.
type SummaryStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BacktestSummary // keyed by run_id
}

// NewSummaryStore creates a new in-memory summary store.
func NewSummaryStore() *SummaryStore {
	return &SummaryStore{
		data: make(map[string]*domain.BacktestSummary),
	}
}

// Insert adds a new summary. Returns ErrDuplicateKey if run_id exists.
func (s *SummaryStore) Insert(_ context.Context, sum *domain.BacktestSummary) error {
	if sum == nil || sum.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sum.RunID]; exists {
		return storage.ErrDuplicateKey
	}
	s.data[sum.RunID] = copySummary(sum)
	return nil
}

// GetByRunID retrieves the summary of a run. Returns ErrNotFound if not exists.
func (s *SummaryStore) GetByRunID(_ context.Context, runID string) (*domain.BacktestSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sum, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copySummary(sum), nil
}

// GetAll retrieves all summaries ordered by mode, label.
func (s *SummaryStore) GetAll(_ context.Context) ([]*domain.BacktestSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.BacktestSummary, 0, len(s.data))
	for _, sum := range s.data {
		result = append(result, copySummary(sum))
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Mode != result[j].Mode {
			return result[i].Mode < result[j].Mode
		}
		if result[i].Label != result[j].Label {
			return result[i].Label < result[j].Label
		}
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}

func copySummary(s *domain.BacktestSummary) *domain.BacktestSummary {
	c := *s
	if s.Benchmark != nil {
		bm := *s.Benchmark
		c.Benchmark = &bm
	}
	return &c
}

var _ storage.SummaryStore = (*SummaryStore)(nil)
