package reporting

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"

	"quant-backtest-lab/internal/domain"
)

// RenderDailyCSV renders a run's daily table.
// Vectorized: date,ret_port. Exact: date,ret_port,equity,holdings,turnover,cost_value
// with holdings joined by "," and quoted.
func RenderDailyCSV(mode domain.Mode, records []*domain.DailyRecord) (string, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)

	exact := mode == domain.ModeExact
	header := []string{"date", "ret_port"}
	if exact {
		header = append(header, "equity", "holdings", "turnover", "cost_value")
	}
	if err := w.Write(header); err != nil {
		return "", fmt.Errorf("write header: %w", err)
	}

	for _, r := range records {
		rec := []string{r.Date.Format("2006-01-02"), formatFloat(r.RetPort)}
		if exact {
			rec = append(rec,
				formatFloat(r.Equity),
				domain.JoinHoldings(r.Holdings),
				formatFloat(r.Turnover),
				formatFloat(r.CostValue),
			)
		}
		if err := w.Write(rec); err != nil {
			return "", fmt.Errorf("write row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// RenderSummaryCSV renders the run comparison as CSV. Benchmark columns are
// empty for runs without a benchmark; final_equity is empty for vectorized runs.
func RenderSummaryCSV(rows []RunRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,label,mode,n,cagr,sharpe,max_drawdown,final_equity,")
	sb.WriteString("bench_n,bench_cagr,bench_sharpe,bench_max_drawdown\n")

	// Rows
	for _, r := range rows {
		finalEquity := ""
		if r.FinalEquity != nil {
			finalEquity = fmt.Sprintf("%.2f", *r.FinalEquity)
		}
		bench := ",,,"
		if b := r.Benchmark; b != nil {
			bench = fmt.Sprintf("%d,%.6f,%.6f,%.6f", b.N, b.CAGR, b.Sharpe, b.MaxDrawdown)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%.6f,%.6f,%.6f,%s,%s\n",
			r.RunID,
			r.Label,
			r.Mode,
			r.Metrics.N,
			r.Metrics.CAGR,
			r.Metrics.Sharpe,
			r.Metrics.MaxDrawdown,
			finalEquity,
			bench,
		))
	}

	return sb.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
