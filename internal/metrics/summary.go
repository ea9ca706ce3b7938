// Package metrics reduces daily log-return series to risk/return statistics.
package metrics

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"quant-backtest-lab/internal/domain"
)

// minYears floors the CAGR horizon so very short series do not divide by zero.
const minYears = 1e-9

// Summarize reduces daily log returns using 252 periods per year.
func Summarize(returns []float64) domain.MetricsSummary {
	return SummarizeWith(returns, domain.DefaultPeriodsPerYear)
}

// SummarizeWith reduces log returns sampled periodsPerYear times a year.
// Each statistic is computed independently from the same series; an empty
// series yields the zero summary.
func SummarizeWith(returns []float64, periodsPerYear int) domain.MetricsSummary {
	if len(returns) == 0 {
		return domain.MetricsSummary{}
	}
	return domain.MetricsSummary{
		CAGR:        CAGR(returns, periodsPerYear),
		Sharpe:      Sharpe(returns, periodsPerYear),
		MaxDrawdown: MaxDrawdown(EquityCurve(returns, 1.0)),
		N:           len(returns),
	}
}

// CAGR = exp(sum(r) / years) - 1 with years = n / periodsPerYear.
func CAGR(returns []float64, periodsPerYear int) float64 {
	if len(returns) == 0 || periodsPerYear <= 0 {
		return 0
	}
	years := float64(len(returns)) / float64(periodsPerYear)
	return math.Exp(floats.Sum(returns)/math.Max(years, minYears)) - 1
}

// Sharpe is the annualized mean over the annualized sample stddev.
// Returns 0 for fewer than two observations or zero dispersion.
func Sharpe(returns []float64, periodsPerYear int) float64 {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0
	}
	mean, std := stat.MeanStdDev(returns, nil)
	sigma := std * math.Sqrt(float64(periodsPerYear))
	if sigma == 0 || math.IsNaN(sigma) {
		return 0
	}
	return mean * float64(periodsPerYear) / sigma
}

// EquityCurve compounds log returns: initial * exp(cumsum(r)).
func EquityCurve(returns []float64, initial float64) []float64 {
	if len(returns) == 0 {
		return nil
	}
	cum := make([]float64, len(returns))
	floats.CumSum(cum, returns)
	for i, c := range cum {
		cum[i] = initial * math.Exp(c)
	}
	return cum
}

// MaxDrawdown returns min(equity / running_max - 1), a value <= 0.
// The running max starts at the first curve point.
func MaxDrawdown(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}
	peak := equity[0]
	worst := 0.0
	for _, e := range equity {
		if e > peak {
			peak = e
		}
		if peak <= 0 {
			continue
		}
		if dd := e/peak - 1; dd < worst {
			worst = dd
		}
	}
	return worst
}

// RecordReturns extracts RetPort from exact-mode records.
func RecordReturns(records []*domain.DailyRecord) []float64 {
	out := make([]float64, len(records))
	for i, r := range records {
		out[i] = r.RetPort
	}
	return out
}

// DailyReturns extracts RetPort from vectorized-mode records.
func DailyReturns(daily []*domain.DailyReturn) []float64 {
	out := make([]float64, len(daily))
	for i, d := range daily {
		out[i] = d.RetPort
	}
	return out
}

// BenchmarkReturns left-joins a benchmark series onto dates.
// Dates without a benchmark observation are skipped.
func BenchmarkReturns(dates []time.Time, bench []*domain.DailyReturn) []float64 {
	if len(bench) == 0 {
		return nil
	}
	byDate := make(map[time.Time]float64, len(bench))
	for _, b := range bench {
		if !math.IsNaN(b.RetPort) {
			byDate[domain.NormalizeDate(b.Date)] = b.RetPort
		}
	}

	out := make([]float64, 0, len(dates))
	for _, d := range dates {
		if v, ok := byDate[domain.NormalizeDate(d)]; ok {
			out = append(out, v)
		}
	}
	return out
}
