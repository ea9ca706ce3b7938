package metrics

import (
	"context"
	"time"

	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/storage"
)

// Aggregator reduces persisted daily records into run summaries.
type Aggregator struct {
	runStore     storage.BacktestRunStore
	recordStore  storage.DailyRecordStore
	summaryStore storage.SummaryStore

	periodsPerYear int
}

// NewAggregator creates a new metrics aggregator.
func NewAggregator(runStore storage.BacktestRunStore, recordStore storage.DailyRecordStore, summaryStore storage.SummaryStore) *Aggregator {
	return &Aggregator{
		runStore:       runStore,
		recordStore:    recordStore,
		summaryStore:   summaryStore,
		periodsPerYear: domain.DefaultPeriodsPerYear,
	}
}

// WithPeriodsPerYear overrides the annualization factor.
func (a *Aggregator) WithPeriodsPerYear(n int) *Aggregator {
	if n > 0 {
		a.periodsPerYear = n
	}
	return a
}

// ComputeSummary loads the run and its records and reduces them.
// A run without records yields the zero summary. Returns storage.ErrNotFound
// if the run does not exist. benchmark may be nil.
func (a *Aggregator) ComputeSummary(ctx context.Context, runID string, benchmark []*domain.DailyReturn) (*domain.BacktestSummary, error) {
	run, err := a.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, err
	}

	records, err := a.recordStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, err
	}

	summary := &domain.BacktestSummary{
		RunID:   run.RunID,
		Label:   run.Label,
		Mode:    run.Mode,
		Metrics: SummarizeWith(RecordReturns(records), a.periodsPerYear),
	}

	if len(benchmark) > 0 {
		dates := make([]time.Time, len(records))
		for i, r := range records {
			dates[i] = r.Date
		}
		bm := SummarizeWith(BenchmarkReturns(dates, benchmark), a.periodsPerYear)
		summary.Benchmark = &bm
	}

	return summary, nil
}

// ComputeAndStore computes and persists the summary.
// Returns storage.ErrDuplicateKey if the run was already summarized (append-only).
func (a *Aggregator) ComputeAndStore(ctx context.Context, runID string, benchmark []*domain.DailyReturn) (*domain.BacktestSummary, error) {
	summary, err := a.ComputeSummary(ctx, runID, benchmark)
	if err != nil {
		return nil, err
	}

	if err := a.summaryStore.Insert(ctx, summary); err != nil {
		return nil, err
	}

	return summary, nil
}
