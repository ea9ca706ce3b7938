package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) {
	t.Helper()
	root := newRootCmd()
	root.SetArgs(append(args, "--log-level", "error"))
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("backtest %s: %v", strings.Join(args, " "), err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func TestSampleThenSimulate(t *testing.T) {
	dir := t.TempDir()
	preds := filepath.Join(dir, "data", "predictions.csv")
	out := filepath.Join(dir, "out")

	execute(t, "sample", "--out", preds, "--assets", "4", "--days", "20", "--seed", "7")

	csv := readFile(t, preds)
	lines := strings.Split(strings.TrimSpace(csv), "\n")
	if len(lines) != 1+4*20 {
		t.Fatalf("expected %d lines, got %d", 1+4*20, len(lines))
	}

	execute(t, "simulate",
		"--predictions", preds,
		"--mode", "exact",
		"--k", "2",
		"--threshold", "0.001",
		"--out", out,
	)

	daily := readFile(t, filepath.Join(out, "daily_exact_k2_thr1e-03.csv"))
	if !strings.HasPrefix(daily, "date,ret_port,equity,holdings,turnover,cost_value\n") {
		t.Errorf("unexpected daily header: %q", strings.SplitN(daily, "\n", 2)[0])
	}

	report := readFile(t, filepath.Join(out, "report.md"))
	if !strings.Contains(report, "exact_k2_thr1e-03") {
		t.Errorf("report missing run label:\n%s", report)
	}
	if !strings.Contains(report, "Runs: 1") {
		t.Errorf("report should cover one run:\n%s", report)
	}

	summary := readFile(t, filepath.Join(out, "summary.csv"))
	if got := len(strings.Split(strings.TrimSpace(summary), "\n")); got != 2 {
		t.Errorf("expected header plus one summary row, got %d lines", got)
	}
}

func TestSweepWritesEveryRun(t *testing.T) {
	dir := t.TempDir()
	preds := filepath.Join(dir, "predictions.csv")
	out := filepath.Join(dir, "reports")

	cfgPath := filepath.Join(dir, "backtest.yaml")
	cfg := `
simulation:
  k: 2
sweep:
  k: [1, 2]
  thresholds: [null, 0.0]
  modes: [vectorized, exact]
  concurrency: 2
`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}

	execute(t, "sample", "--out", preds, "--days", "15")
	execute(t, "sweep", "--config", cfgPath, "--predictions", preds, "--out", out)

	for _, label := range []string{
		"vec_k1_thrnone", "vec_k1_thr0e+00", "vec_k2_thrnone", "vec_k2_thr0e+00",
		"exact_k1_thrnone", "exact_k1_thr0e+00", "exact_k2_thrnone", "exact_k2_thr0e+00",
	} {
		if _, err := os.Stat(filepath.Join(out, "daily_"+label+".csv")); err != nil {
			t.Errorf("missing daily table for %s: %v", label, err)
		}
	}

	report := readFile(t, filepath.Join(out, "report.md"))
	if !strings.Contains(report, "Runs: 8") {
		t.Errorf("report should cover eight runs:\n%s", report)
	}
}

func TestReportRequiresDatabaseBackend(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"report", "--out", t.TempDir(), "--log-level", "error"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected error for memory backend")
	}
}

func TestSimulateRejectsUnknownMode(t *testing.T) {
	dir := t.TempDir()
	preds := filepath.Join(dir, "p.csv")
	execute(t, "sample", "--out", preds, "--days", "5")

	root := newRootCmd()
	root.SetArgs([]string{"simulate", "--predictions", preds, "--mode", "intraday", "--out", dir, "--log-level", "error"})
	if err := root.ExecuteContext(context.Background()); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestSweepVerify(t *testing.T) {
	dir := t.TempDir()
	preds := filepath.Join(dir, "predictions.csv")

	execute(t, "sample", "--out", preds, "--days", "20", "--seed", "3")
	execute(t, "sweep", "--predictions", preds, "--out", filepath.Join(dir, "out"), "--verify")
}

func TestSimulateHeaderOnlyPredictions(t *testing.T) {
	dir := t.TempDir()
	preds := filepath.Join(dir, "empty.csv")
	if err := os.WriteFile(preds, []byte("date,asset_id,y_true,y_pred\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(dir, "out")

	execute(t, "simulate", "--predictions", preds, "--mode", "exact", "--k", "1", "--out", out)

	daily := readFile(t, filepath.Join(out, "daily_exact_k1_thrnone.csv"))
	if daily != "date,ret_port,equity,holdings,turnover,cost_value\n" {
		t.Errorf("expected header-only daily table, got %q", daily)
	}

	summary := readFile(t, filepath.Join(out, "summary.csv"))
	if got := len(strings.Split(strings.TrimSpace(summary), "\n")); got != 2 {
		t.Errorf("expected header plus one summary row, got %d lines", got)
	}
}
