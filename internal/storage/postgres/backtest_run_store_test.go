package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/storage"
)

func sampleRun(id, batch, label string, mode domain.Mode) *domain.BacktestRun {
	return &domain.BacktestRun{
		RunID:   id,
		BatchID: batch,
		Label:   label,
		Mode:    mode,
		Config: domain.SimulationConfig{
			K:                  3,
			Threshold:          ptr(0.001),
			InitialCapital:     100_000,
			SlippageBps:        5,
			CommissionPerTrade: 1.25,
		},
		StartDate:   day(0),
		EndDate:     day(9),
		Days:        10,
		FinalEquity: ptr(101_234.56),
		CreatedAt:   time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBacktestRunStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBacktestRunStore(pool)
	ctx := context.Background()

	run := sampleRun("run-1", "batch-1", "exact_k3_thr1e-03", domain.ModeExact)
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-1")
	require.NoError(t, err)

	assert.Equal(t, "batch-1", got.BatchID)
	assert.Equal(t, "exact_k3_thr1e-03", got.Label)
	assert.Equal(t, domain.ModeExact, got.Mode)
	assert.Equal(t, 3, got.Config.K)
	require.NotNil(t, got.Config.Threshold)
	assert.Equal(t, 0.001, *got.Config.Threshold)
	assert.Equal(t, 100_000.0, got.Config.InitialCapital)
	assert.Equal(t, 5.0, got.Config.SlippageBps)
	assert.Equal(t, 1.25, got.Config.CommissionPerTrade)
	assert.True(t, got.StartDate.Equal(day(0)))
	assert.True(t, got.EndDate.Equal(day(9)))
	assert.Equal(t, 10, got.Days)
	require.NotNil(t, got.FinalEquity)
	assert.InDelta(t, 101_234.56, *got.FinalEquity, 1e-6)
	assert.True(t, got.CreatedAt.Equal(run.CreatedAt))
}

func TestBacktestRunStore_SimulationInputsRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBacktestRunStore(pool)
	ctx := context.Background()

	run := sampleRun("run-precise", "batch-1", "exact_k3_thr1e-03", domain.ModeExact)
	run.Config.InitialCapital = 100_000.123456789
	run.Config.SlippageBps = 0.00005
	run.Config.CommissionPerTrade = 1.0000001
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-precise")
	require.NoError(t, err)

	// Replays rebuild the config from these columns; any rounding shows up
	// as a false divergence.
	assert.Equal(t, run.Config.InitialCapital, got.Config.InitialCapital)
	assert.Equal(t, run.Config.SlippageBps, got.Config.SlippageBps)
	assert.Equal(t, run.Config.CommissionPerTrade, got.Config.CommissionPerTrade)
}

func TestBacktestRunStore_NullableColumns(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBacktestRunStore(pool)
	ctx := context.Background()

	run := &domain.BacktestRun{
		RunID:  "run-empty",
		Label:  "vec_k5_thrnone",
		Mode:   domain.ModeVectorized,
		Config: domain.DefaultSimulationConfig(),
	}
	require.NoError(t, store.Insert(ctx, run))

	got, err := store.GetByID(ctx, "run-empty")
	require.NoError(t, err)
	assert.Nil(t, got.Config.Threshold)
	assert.Nil(t, got.FinalEquity)
	assert.True(t, got.StartDate.IsZero())
	assert.True(t, got.EndDate.IsZero())
	assert.False(t, got.CreatedAt.IsZero())
}

func TestBacktestRunStore_Duplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBacktestRunStore(pool)
	ctx := context.Background()

	run := sampleRun("run-1", "b", "x", domain.ModeExact)
	require.NoError(t, store.Insert(ctx, run))
	assert.ErrorIs(t, store.Insert(ctx, run), storage.ErrDuplicateKey)
	assert.ErrorIs(t, store.Insert(ctx, &domain.BacktestRun{}), storage.ErrInvalidInput)
}

func TestBacktestRunStore_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewBacktestRunStore(pool).GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestBacktestRunStore_GetByBatchAndAll(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewBacktestRunStore(pool)
	ctx := context.Background()

	r1 := sampleRun("r1", "b1", "vec_k5_thrnone", domain.ModeVectorized)
	r2 := sampleRun("r2", "b1", "exact_k5_thrnone", domain.ModeExact)
	r3 := sampleRun("r3", "b2", "exact_k1_thrnone", domain.ModeExact)
	r2.CreatedAt = r1.CreatedAt.Add(time.Second)
	r3.CreatedAt = r1.CreatedAt.Add(2 * time.Second)
	for _, r := range []*domain.BacktestRun{r3, r1, r2} {
		require.NoError(t, store.Insert(ctx, r))
	}

	batch, err := store.GetByBatch(ctx, "b1")
	require.NoError(t, err)
	require.Len(t, batch, 2)
	assert.Equal(t, "r2", batch[0].RunID)
	assert.Equal(t, "r1", batch[1].RunID)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"r1", "r2", "r3"}, []string{all[0].RunID, all[1].RunID, all[2].RunID})
}
