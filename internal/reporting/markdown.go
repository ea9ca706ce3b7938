package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	if r.BatchID != "" {
		sb.WriteString(fmt.Sprintf("Batch: `%s`\n\n", r.BatchID))
	}
	sb.WriteString(fmt.Sprintf("Runs: %d\n\n", len(r.Runs)))

	// Comparison
	sb.WriteString("## Run Comparison\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Label | Mode | Days | Period | N | CAGR | Sharpe | MaxDD | Final Equity | Bench CAGR | Bench Sharpe | Bench MaxDD |\n")
		sb.WriteString("|-------|------|------|--------|---|------|--------|-------|--------------|------------|--------------|-------------|\n")
		for _, run := range r.Runs {
			period := "-"
			if !run.StartDate.IsZero() {
				period = run.StartDate.Format("2006-01-02") + " .. " + run.EndDate.Format("2006-01-02")
			}
			equity := "-"
			if run.FinalEquity != nil {
				equity = fmt.Sprintf("%.2f", *run.FinalEquity)
			}
			benchCAGR, benchSharpe, benchDD := "-", "-", "-"
			if b := run.Benchmark; b != nil {
				benchCAGR = fmt.Sprintf("%.4f", b.CAGR)
				benchSharpe = fmt.Sprintf("%.4f", b.Sharpe)
				benchDD = fmt.Sprintf("%.4f", b.MaxDrawdown)
			}
			sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s | %d | %.4f | %.4f | %.4f | %s | %s | %s | %s |\n",
				run.Label, run.Mode, run.Days, period, run.Metrics.N,
				run.Metrics.CAGR, run.Metrics.Sharpe, run.Metrics.MaxDrawdown,
				equity, benchCAGR, benchSharpe, benchDD))
		}
	} else {
		sb.WriteString("No runs available.\n")
	}
	sb.WriteString("\n")

	// Best per mode
	sb.WriteString("## Best Sharpe by Mode\n\n")
	if len(r.Best) > 0 {
		sb.WriteString("| Mode | Label | Sharpe | CAGR |\n")
		sb.WriteString("|------|-------|--------|------|\n")
		for _, b := range r.Best {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.4f | %.4f |\n", b.Mode, b.Label, b.Sharpe, b.CAGR))
		}
	} else {
		sb.WriteString("No runs available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
