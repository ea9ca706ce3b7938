package verification

import (
	"context"
	"errors"
	"fmt"

	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/metrics"
	"quant-backtest-lab/internal/simulation"
	"quant-backtest-lab/internal/storage"
)

// ErrRunNotFound is returned when run ID doesn't exist.
var ErrRunNotFound = errors.New("run not found")

// ReplayVerifier implements Verifier over the backtest stores.
type ReplayVerifier struct {
	predictionStore storage.PredictionStore
	runStore        storage.BacktestRunStore
	recordStore     storage.DailyRecordStore
	summaryStore    storage.SummaryStore // optional

	periodsPerYear int
	workers        int
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	PredictionStore storage.PredictionStore
	RunStore        storage.BacktestRunStore
	RecordStore     storage.DailyRecordStore
	SummaryStore    storage.SummaryStore // nil skips summary checks

	PeriodsPerYear int // 0 means domain.DefaultPeriodsPerYear
	Workers        int // vectorized replay parallelism
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	ppy := opts.PeriodsPerYear
	if ppy <= 0 {
		ppy = domain.DefaultPeriodsPerYear
	}
	return &ReplayVerifier{
		predictionStore: opts.PredictionStore,
		runStore:        opts.RunStore,
		recordStore:     opts.RecordStore,
		summaryStore:    opts.SummaryStore,
		periodsPerYear:  ppy,
		workers:         opts.Workers,
	}
}

// VerifyRun verifies a single run by replaying its simulation.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationResult, error) {
	run, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}
	return v.verify(ctx, run)
}

// VerifyBatch verifies every run of a sweep batch.
func (v *ReplayVerifier) VerifyBatch(ctx context.Context, batchID string) (*VerificationReport, error) {
	runs, err := v.runStore.GetByBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}
	return v.verifyRuns(ctx, runs)
}

// VerifyAll verifies all stored runs.
func (v *ReplayVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	runs, err := v.runStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return v.verifyRuns(ctx, runs)
}

func (v *ReplayVerifier) verifyRuns(ctx context.Context, runs []*domain.BacktestRun) (*VerificationReport, error) {
	report := &VerificationReport{
		TotalRuns: len(runs),
		Results:   make([]VerificationResult, 0, len(runs)),
	}

	for _, run := range runs {
		result, err := v.verify(ctx, run)
		if err != nil {
			return nil, fmt.Errorf("verify %s: %w", run.Label, err)
		}
		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
		}
	}

	return report, nil
}

func (v *ReplayVerifier) verify(ctx context.Context, run *domain.BacktestRun) (*VerificationResult, error) {
	stored, err := v.recordStore.GetByRunID(ctx, run.RunID)
	if err != nil {
		return nil, err
	}

	replayed, err := v.replay(ctx, run)
	if err != nil {
		return nil, err
	}

	divergences := CompareDailyRecords(stored, replayed)

	if v.summaryStore != nil {
		summary, err := v.summaryStore.GetByRunID(ctx, run.RunID)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			divergences = append(divergences, FieldDivergence{Field: "Summary", Expected: "stored summary", Actual: nil})
		case err != nil:
			return nil, err
		default:
			recomputed := metrics.SummarizeWith(metrics.RecordReturns(stored), v.periodsPerYear)
			divergences = append(divergences, CompareSummaries(summary.Metrics, recomputed)...)
		}
	}

	return &VerificationResult{
		RunID:        run.RunID,
		Label:        run.Label,
		Match:        len(divergences) == 0,
		Divergences:  divergences,
		StoredDays:   len(stored),
		ReplayedDays: len(replayed),
	}, nil
}

// replay re-simulates a run over the predictions between its first and
// last simulated date. Runs that emitted nothing replay to nothing.
func (v *ReplayVerifier) replay(ctx context.Context, run *domain.BacktestRun) ([]*domain.DailyRecord, error) {
	if run.Days == 0 {
		return nil, nil
	}

	rows, err := v.predictionStore.GetByDateRange(ctx, run.StartDate, run.EndDate)
	if err != nil {
		return nil, fmt.Errorf("load predictions: %w", err)
	}

	return simulation.Run(ctx, run.Mode, rows, run.Config, v.workers)
}
