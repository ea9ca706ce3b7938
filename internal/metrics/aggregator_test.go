package metrics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/storage"
	"quant-backtest-lab/internal/storage/memory"
)

func setupAggregator(t *testing.T) (*Aggregator, *memory.SummaryStore) {
	t.Helper()
	ctx := context.Background()

	runStore := memory.NewBacktestRunStore()
	recordStore := memory.NewDailyRecordStore()
	summaryStore := memory.NewSummaryStore()

	run := &domain.BacktestRun{RunID: "run-1", Label: "exact_k1_thrnone", Mode: domain.ModeExact}
	if err := runStore.Insert(ctx, run); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}
	empty := &domain.BacktestRun{RunID: "run-empty", Label: "vec_k1_thrnone", Mode: domain.ModeVectorized}
	if err := runStore.Insert(ctx, empty); err != nil {
		t.Fatalf("Insert run failed: %v", err)
	}

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []*domain.DailyRecord{
		{Date: base, RetPort: math.Log(2)},
		{Date: base.AddDate(0, 0, 1), RetPort: math.Log(0.5)},
		{Date: base.AddDate(0, 0, 2), RetPort: 0.01},
	}
	if err := recordStore.InsertBulk(ctx, "run-1", records); err != nil {
		t.Fatalf("Insert records failed: %v", err)
	}

	return NewAggregator(runStore, recordStore, summaryStore), summaryStore
}

func TestAggregator_ComputeAndStore(t *testing.T) {
	agg, summaries := setupAggregator(t)
	ctx := context.Background()

	sum, err := agg.ComputeAndStore(ctx, "run-1", nil)
	if err != nil {
		t.Fatalf("ComputeAndStore failed: %v", err)
	}

	if sum.Metrics.N != 3 {
		t.Errorf("expected N=3, got %d", sum.Metrics.N)
	}
	if !almost(sum.Metrics.MaxDrawdown, -0.5) {
		t.Errorf("expected MaxDrawdown -0.5, got %v", sum.Metrics.MaxDrawdown)
	}
	if sum.Label != "exact_k1_thrnone" || sum.Mode != domain.ModeExact {
		t.Errorf("run metadata not copied: %+v", sum)
	}
	if sum.Benchmark != nil {
		t.Error("expected no benchmark summary")
	}

	stored, err := summaries.GetByRunID(ctx, "run-1")
	if err != nil {
		t.Fatalf("summary not persisted: %v", err)
	}
	if stored.Metrics != sum.Metrics {
		t.Errorf("stored summary differs: %+v", stored.Metrics)
	}

	// Append-only
	if _, err := agg.ComputeAndStore(ctx, "run-1", nil); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestAggregator_EmptyRunYieldsZeroSummary(t *testing.T) {
	agg, _ := setupAggregator(t)

	sum, err := agg.ComputeSummary(context.Background(), "run-empty", nil)
	if err != nil {
		t.Fatalf("ComputeSummary failed: %v", err)
	}
	if sum.Metrics != (domain.MetricsSummary{}) {
		t.Errorf("expected zero metrics, got %+v", sum.Metrics)
	}
}

func TestAggregator_UnknownRun(t *testing.T) {
	agg, _ := setupAggregator(t)

	_, err := agg.ComputeSummary(context.Background(), "missing", nil)
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAggregator_Benchmark(t *testing.T) {
	agg, _ := setupAggregator(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	bench := []*domain.DailyReturn{
		{Date: base, RetPort: 0.002},
		{Date: base.AddDate(0, 0, 2), RetPort: 0.004},
		{Date: base.AddDate(0, 0, 9), RetPort: 0.5}, // outside the run
	}

	sum, err := agg.ComputeSummary(context.Background(), "run-1", bench)
	if err != nil {
		t.Fatalf("ComputeSummary failed: %v", err)
	}
	if sum.Benchmark == nil {
		t.Fatal("expected benchmark summary")
	}
	if sum.Benchmark.N != 2 {
		t.Errorf("expected 2 joined benchmark days, got %d", sum.Benchmark.N)
	}
}

func TestAggregator_PeriodsPerYear(t *testing.T) {
	agg, _ := setupAggregator(t)
	agg.WithPeriodsPerYear(12)

	sum, err := agg.ComputeSummary(context.Background(), "run-1", nil)
	if err != nil {
		t.Fatalf("ComputeSummary failed: %v", err)
	}
	want := CAGR([]float64{math.Log(2), math.Log(0.5), 0.01}, 12)
	if !almost(sum.Metrics.CAGR, want) {
		t.Errorf("expected CAGR %v, got %v", want, sum.Metrics.CAGR)
	}
}
