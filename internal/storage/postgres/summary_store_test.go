package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/storage"
)

func TestSummaryStore_InsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSummaryStore(pool)
	ctx := context.Background()

	sum := &domain.BacktestSummary{
		RunID:     "run-1",
		Label:     "exact_k5_thrnone",
		Mode:      domain.ModeExact,
		Metrics:   domain.MetricsSummary{CAGR: 0.12, Sharpe: 1.4, MaxDrawdown: -0.08, N: 250},
		Benchmark: &domain.MetricsSummary{CAGR: 0.09, Sharpe: 0.9, MaxDrawdown: -0.11, N: 248},
	}
	require.NoError(t, store.Insert(ctx, sum))

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, sum.Label, got.Label)
	assert.Equal(t, domain.ModeExact, got.Mode)
	assert.Equal(t, sum.Metrics, got.Metrics)
	require.NotNil(t, got.Benchmark)
	assert.Equal(t, *sum.Benchmark, *got.Benchmark)

	assert.ErrorIs(t, store.Insert(ctx, sum), storage.ErrDuplicateKey)
}

func TestSummaryStore_NoBenchmark(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSummaryStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, &domain.BacktestSummary{RunID: "r", Label: "vec_k1_thrnone", Mode: domain.ModeVectorized}))

	got, err := store.GetByRunID(ctx, "r")
	require.NoError(t, err)
	assert.Nil(t, got.Benchmark)
	assert.Equal(t, domain.MetricsSummary{}, got.Metrics)

	_, err = store.GetByRunID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSummaryStore_GetAllOrdering(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewSummaryStore(pool)
	ctx := context.Background()

	for _, s := range []*domain.BacktestSummary{
		{RunID: "1", Label: "vec_k5_thrnone", Mode: domain.ModeVectorized},
		{RunID: "2", Label: "exact_k5_thrnone", Mode: domain.ModeExact},
		{RunID: "3", Label: "exact_k1_thrnone", Mode: domain.ModeExact},
	} {
		require.NoError(t, store.Insert(ctx, s))
	}

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"3", "2", "1"}, []string{all[0].RunID, all[1].RunID, all[2].RunID})
}
