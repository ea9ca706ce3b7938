package reporting

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"quant-backtest-lab/internal/domain"
	"quant-backtest-lab/internal/storage"
)

// Generator produces reports from stored runs and summaries.
type Generator struct {
	runStore     storage.BacktestRunStore
	summaryStore storage.SummaryStore
	now          func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.BacktestRunStore, summaryStore storage.SummaryStore) *Generator {
	return &Generator{
		runStore:     runStore,
		summaryStore: summaryStore,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate builds a report over every summarized run.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	summaries, err := g.summaryStore.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load summaries: %w", err)
	}

	rows := make([]RunRow, 0, len(summaries))
	for _, s := range summaries {
		run, err := g.runStore.GetByID(ctx, s.RunID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("load run %s: %w", s.RunID, err)
		}
		rows = append(rows, buildRow(s, run))
	}

	return g.assemble("", rows), nil
}

// GenerateBatch builds a report over the runs of one sweep. Runs without a
// summary are skipped.
func (g *Generator) GenerateBatch(ctx context.Context, batchID string) (*Report, error) {
	runs, err := g.runStore.GetByBatch(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("load batch %s: %w", batchID, err)
	}

	rows := make([]RunRow, 0, len(runs))
	for _, run := range runs {
		s, err := g.summaryStore.GetByRunID(ctx, run.RunID)
		if errors.Is(err, storage.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load summary %s: %w", run.RunID, err)
		}
		rows = append(rows, buildRow(s, run))
	}

	return g.assemble(batchID, rows), nil
}

func (g *Generator) assemble(batchID string, rows []RunRow) *Report {
	sortRuns(rows)
	return &Report{
		GeneratedAt: g.now(),
		BatchID:     batchID,
		Runs:        rows,
		Best:        bestByMode(rows),
	}
}

// buildRow merges a summary with its run metadata. run may be nil.
func buildRow(s *domain.BacktestSummary, run *domain.BacktestRun) RunRow {
	row := RunRow{
		RunID:     s.RunID,
		Label:     s.Label,
		Mode:      s.Mode,
		Metrics:   s.Metrics,
		Benchmark: s.Benchmark,
	}
	if run != nil {
		row.Days = run.Days
		row.StartDate = run.StartDate
		row.EndDate = run.EndDate
		row.FinalEquity = run.FinalEquity
	}
	return row
}

// sortRuns orders rows by (mode, label, run_id).
func sortRuns(rows []RunRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Mode != rows[j].Mode {
			return rows[i].Mode < rows[j].Mode
		}
		if rows[i].Label != rows[j].Label {
			return rows[i].Label < rows[j].Label
		}
		return rows[i].RunID < rows[j].RunID
	})
}

// bestByMode picks the highest Sharpe per mode; ties keep the first in sort order.
func bestByMode(rows []RunRow) []BestRow {
	var best []BestRow
	for _, r := range rows {
		n := len(best)
		if n == 0 || best[n-1].Mode != r.Mode {
			best = append(best, BestRow{Mode: r.Mode, Label: r.Label, Sharpe: r.Metrics.Sharpe, CAGR: r.Metrics.CAGR})
			continue
		}
		if r.Metrics.Sharpe > best[n-1].Sharpe {
			best[n-1] = BestRow{Mode: r.Mode, Label: r.Label, Sharpe: r.Metrics.Sharpe, CAGR: r.Metrics.CAGR}
		}
	}
	return best
}
