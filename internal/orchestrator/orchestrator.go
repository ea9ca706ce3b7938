// Package orchestrator runs backtests end to end.
// It coordinates: predictions → simulation → persistence → metrics.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/idhash"
	"quant-backtest-lab/internal/metrics"
	"quant-backtest-lab/internal/observability"
	"quant-backtest-lab/internal/simulation"
	"quant-backtest-lab/internal/storage"
)

// ErrPredictionConflict is returned when ingested rows disagree with the
// predictions already stored for their date range.
var ErrPredictionConflict = errors.New("prediction conflict")

// Orchestrator coordinates backtest runs and sweeps.
type Orchestrator struct {
	predictionStore storage.PredictionStore
	runStore        storage.BacktestRunStore
	recordStore     storage.DailyRecordStore
	summaryStore    storage.SummaryStore
	aggregator      *metrics.Aggregator

	metrics   *observability.Metrics
	logger    zerolog.Logger
	benchmark []*domain.DailyReturn
	workers   int
	now       func() time.Time
}

// Options for creating Orchestrator.
type Options struct {
	// Required stores
	PredictionStore storage.PredictionStore
	RunStore        storage.BacktestRunStore
	RecordStore     storage.DailyRecordStore
	SummaryStore    storage.SummaryStore

	// Optional
	Metrics        *observability.Metrics
	Logger         zerolog.Logger        // zero value discards
	Benchmark      []*domain.DailyReturn // benchmark log returns joined into every summary
	PeriodsPerYear int                   // defaults to 252
	Workers        int                   // vectorized date-parallelism; <= 1 runs sequentially
	Clock          func() time.Time
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	logger := opts.Logger.With().Str("component", "orchestrator").Logger()
	now := opts.Clock
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	agg := metrics.NewAggregator(opts.RunStore, opts.RecordStore, opts.SummaryStore)
	if opts.PeriodsPerYear > 0 {
		agg = agg.WithPeriodsPerYear(opts.PeriodsPerYear)
	}

	return &Orchestrator{
		predictionStore: opts.PredictionStore,
		runStore:        opts.RunStore,
		recordStore:     opts.RecordStore,
		summaryStore:    opts.SummaryStore,
		aggregator:      agg,
		metrics:         opts.Metrics,
		logger:          logger,
		benchmark:       opts.Benchmark,
		workers:         opts.Workers,
		now:             now,
	}
}

// RunSpec describes one simulation run.
type RunSpec struct {
	Mode    domain.Mode
	Config  domain.SimulationConfig
	BatchID string // assigned when empty

	// Optional inclusive date range; zero values leave the side open.
	Start time.Time
	End   time.Time
}

// Label returns the run label, e.g. "exact_k5_thr1e-03".
func (s RunSpec) Label() string {
	return s.Config.Label(s.Mode)
}

// RunResult contains the persisted outcome of one run.
type RunResult struct {
	Run     *domain.BacktestRun
	Records []*domain.DailyRecord
	Summary *domain.BacktestSummary
}

// Ingest stores prediction rows that are not stored yet. Rows already stored
// with identical values are skipped, so re-ingesting a file is a no-op.
// Within the batch's date range the stored set must end up equal to the
// batch: a stored row with different values, or a stored row the batch
// lacks, fails with ErrPredictionConflict and nothing is written.
func (o *Orchestrator) Ingest(ctx context.Context, rows []*domain.PredictionRow) error {
	if len(rows) == 0 {
		return nil
	}

	start, end := dateSpan(rows)
	stored, err := o.predictionStore.GetByDateRange(ctx, start, end)
	if err != nil {
		return fmt.Errorf("load stored predictions: %w", err)
	}

	fresh, err := reconcile(stored, rows)
	if err != nil {
		return err
	}
	if err := o.predictionStore.InsertBulk(ctx, fresh); err != nil {
		return fmt.Errorf("store predictions: %w", err)
	}
	o.logger.Info().
		Int("rows", len(rows)).
		Int("inserted", len(fresh)).
		Int("already_stored", len(rows)-len(fresh)).
		Msg("predictions ingested")
	return nil
}

type predictionKey struct {
	assetID string
	date    int64
}

func keyOf(r *domain.PredictionRow) predictionKey {
	return predictionKey{assetID: r.AssetID, date: domain.NormalizeDate(r.Date).Unix()}
}

// reconcile returns the rows of batch missing from stored.
func reconcile(stored, batch []*domain.PredictionRow) ([]*domain.PredictionRow, error) {
	inBatch := make(map[predictionKey]*domain.PredictionRow, len(batch))
	for _, r := range batch {
		inBatch[keyOf(r)] = r
	}

	seen := make(map[predictionKey]struct{}, len(stored))
	for _, s := range stored {
		key := keyOf(s)
		r, ok := inBatch[key]
		if !ok {
			return nil, fmt.Errorf("%w: stored row %s@%s missing from input",
				ErrPredictionConflict, s.AssetID, s.Date.Format(time.DateOnly))
		}
		if !sameValue(r.YTrue, s.YTrue) || !sameValue(r.YPred, s.YPred) {
			return nil, fmt.Errorf("%w: %s@%s differs from stored row",
				ErrPredictionConflict, s.AssetID, s.Date.Format(time.DateOnly))
		}
		seen[key] = struct{}{}
	}

	fresh := make([]*domain.PredictionRow, 0, len(batch)-len(seen))
	for _, r := range batch {
		if _, ok := seen[keyOf(r)]; !ok {
			fresh = append(fresh, r)
		}
	}
	return fresh, nil
}

// sameValue treats two missing values as equal.
func sameValue(a, b float64) bool {
	return a == b || (math.IsNaN(a) && math.IsNaN(b))
}

func dateSpan(rows []*domain.PredictionRow) (time.Time, time.Time) {
	start := domain.NormalizeDate(rows[0].Date)
	end := start
	for _, r := range rows[1:] {
		d := domain.NormalizeDate(r.Date)
		if d.Before(start) {
			start = d
		}
		if d.After(end) {
			end = d
		}
	}
	return start, end
}

// Run loads predictions, simulates, persists the run with its daily records
// and stores its summary.
func (o *Orchestrator) Run(ctx context.Context, spec RunSpec) (*RunResult, error) {
	rows, err := o.loadPredictions(ctx, spec.Start, spec.End)
	if err != nil {
		return nil, err
	}
	return o.RunPredictions(ctx, spec, rows)
}

// RunPredictions simulates rows directly instead of loading them from the
// prediction store. spec.Start and spec.End are ignored.
func (o *Orchestrator) RunPredictions(ctx context.Context, spec RunSpec, rows []*domain.PredictionRow) (*RunResult, error) {
	if spec.BatchID == "" {
		spec.BatchID = uuid.NewString()
	}
	o.metrics.RecordPredictionsLoaded(len(rows))
	return o.run(ctx, spec, rows)
}

// Sweep executes independent runs concurrently over one shared, read-only
// prediction set. Each run owns its portfolio state. Results are in input
// order. The first failure cancels the remaining runs.
func (o *Orchestrator) Sweep(ctx context.Context, specs []RunSpec, concurrency int) ([]*RunResult, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	rows, err := o.loadPredictions(ctx, specs[0].Start, specs[0].End)
	if err != nil {
		return nil, err
	}
	return o.SweepPredictions(ctx, specs, rows, concurrency)
}

// SweepPredictions is Sweep over rows supplied by the caller.
func (o *Orchestrator) SweepPredictions(ctx context.Context, specs []RunSpec, rows []*domain.PredictionRow, concurrency int) ([]*RunResult, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	o.metrics.RecordPredictionsLoaded(len(rows))

	batchID := uuid.NewString()
	o.logger.Info().
		Str("batch_id", batchID).
		Int("runs", len(specs)).
		Int("concurrency", concurrency).
		Msg("sweep started")

	results := make([]*RunResult, len(specs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, spec := range specs {
		if spec.BatchID == "" {
			spec.BatchID = batchID
		}
		g.Go(func() error {
			o.metrics.SweepStarted()
			defer o.metrics.SweepFinished()

			res, err := o.run(gctx, spec, rows)
			if err != nil {
				return fmt.Errorf("run %s: %w", spec.Label(), err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	o.logger.Info().Str("batch_id", batchID).Int("runs", len(specs)).Msg("sweep completed")
	return results, nil
}

func (o *Orchestrator) loadPredictions(ctx context.Context, start, end time.Time) ([]*domain.PredictionRow, error) {
	var (
		rows []*domain.PredictionRow
		err  error
	)
	if start.IsZero() && end.IsZero() {
		rows, err = o.predictionStore.GetAll(ctx)
	} else {
		if end.IsZero() {
			end = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
		}
		rows, err = o.predictionStore.GetByDateRange(ctx, start, end)
	}
	if err != nil {
		return nil, fmt.Errorf("load predictions: %w", err)
	}
	return rows, nil
}

func (o *Orchestrator) run(ctx context.Context, spec RunSpec, rows []*domain.PredictionRow) (*RunResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	mode := string(spec.Mode)
	runID := idhash.ComputeRunID(spec.Mode, spec.Config, spec.BatchID)
	log := o.logger.With().
		Str("run_id", runID[:12]).
		Str("mode", mode).
		Int("k", spec.Config.K).
		Str("threshold", spec.Config.ThresholdLabel()).
		Logger()
	log.Debug().Int("rows", len(rows)).Msg("run started")

	records, err := simulation.Run(ctx, spec.Mode, rows, spec.Config, o.workers)
	if err != nil {
		o.metrics.RecordRun(mode, observability.StatusError, 0, time.Since(started))
		return nil, err
	}

	run := &domain.BacktestRun{
		RunID:     runID,
		BatchID:   spec.BatchID,
		Label:     spec.Label(),
		Mode:      spec.Mode,
		Config:    spec.Config,
		Days:      len(records),
		CreatedAt: o.now(),
	}
	if n := len(records); n > 0 {
		run.StartDate = records[0].Date
		run.EndDate = records[n-1].Date
		if spec.Mode == domain.ModeExact {
			equity := records[n-1].Equity
			run.FinalEquity = &equity
		}
	}

	summary, err := o.persist(ctx, run, records)
	if err != nil {
		o.metrics.RecordRun(mode, observability.StatusError, 0, time.Since(started))
		return nil, err
	}

	elapsed := time.Since(started)
	o.metrics.RecordRun(mode, observability.StatusSuccess, len(records), elapsed)
	if spec.Mode == domain.ModeExact {
		o.metrics.RecordCosts(tradingActivity(records))
	}
	log.Info().
		Str("label", run.Label).
		Int("days", run.Days).
		Float64("cagr", summary.Metrics.CAGR).
		Float64("sharpe", summary.Metrics.Sharpe).
		Float64("max_drawdown", summary.Metrics.MaxDrawdown).
		Dur("duration", elapsed).
		Msg("run completed")

	return &RunResult{Run: run, Records: records, Summary: summary}, nil
}

func (o *Orchestrator) persist(ctx context.Context, run *domain.BacktestRun, records []*domain.DailyRecord) (*domain.BacktestSummary, error) {
	if err := o.runStore.Insert(ctx, run); err != nil {
		return nil, fmt.Errorf("store run: %w", err)
	}
	if err := o.recordStore.InsertBulk(ctx, run.RunID, records); err != nil {
		return nil, fmt.Errorf("store daily records: %w", err)
	}
	summary, err := o.aggregator.ComputeAndStore(ctx, run.RunID, o.benchmark)
	if err != nil {
		return nil, fmt.Errorf("store summary: %w", err)
	}
	o.metrics.RecordSummary()
	return summary, nil
}

// tradingActivity counts days with turnover and sums their costs.
func tradingActivity(records []*domain.DailyRecord) (int, float64) {
	var days int
	var cost float64
	for _, r := range records {
		if r.Turnover > 0 {
			days++
		}
		cost += r.CostValue
	}
	return days, cost
}
