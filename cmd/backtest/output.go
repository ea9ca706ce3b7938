package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"quant-backtest-lab/internal/orchestrator"
	"quant-backtest-lab/internal/reporting"
)

// writeDaily writes one run's daily table to dir/daily_<label>.csv.
func (a *app) writeDaily(dir string, res *orchestrator.RunResult) error {
	content, err := reporting.RenderDailyCSV(res.Run.Mode, res.Records)
	if err != nil {
		return fmt.Errorf("render daily %s: %w", res.Run.Label, err)
	}
	path := filepath.Join(dir, "daily_"+res.Run.Label+".csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	a.logger.Debug().Str("path", path).Int("days", len(res.Records)).Msg("daily table written")
	return nil
}

// writeReport builds the run comparison and writes report.md and summary.csv.
// An empty batchID covers every stored run.
func (a *app) writeReport(ctx context.Context, s *stores, dir, batchID string) error {
	gen := reporting.NewGenerator(s.runs, s.summaries)

	var (
		report *reporting.Report
		err    error
	)
	if batchID != "" {
		report, err = gen.GenerateBatch(ctx, batchID)
	} else {
		report, err = gen.Generate(ctx)
	}
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	mdPath := filepath.Join(dir, "report.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", mdPath, err)
	}
	csvPath := filepath.Join(dir, "summary.csv")
	if err := os.WriteFile(csvPath, []byte(reporting.RenderSummaryCSV(report.Runs)), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", csvPath, err)
	}

	a.metrics.RecordReport()
	a.logger.Info().
		Str("dir", dir).
		Str("batch_id", batchID).
		Int("runs", len(report.Runs)).
		Msg("report written")
	return nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	return nil
}
