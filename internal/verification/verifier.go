// Package verification checks stored backtest runs against fresh
// simulations over the same predictions.
// It also cross-checks the vectorized and exact simulators against each other.
package verification

import (
	"context"
	"math"
	"time"

	"quant-backtest-lab/internal/domain"
)

// FloatTolerance is the relative tolerance for float64 comparisons.
const FloatTolerance = 1e-9

// FieldDivergence represents a mismatch between stored and replayed values.
// Date is zero for run-level fields.
type FieldDivergence struct {
	Date     time.Time
	Field    string      // field name
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	RunID        string
	Label        string
	Match        bool              // true if all fields match
	Divergences  []FieldDivergence // list of divergent fields
	StoredDays   int
	ReplayedDays int
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int
	MatchedRuns   int
	DivergentRuns int
	Results       []VerificationResult
}

// Verifier replays stored runs.
type Verifier interface {
	// VerifyRun re-simulates one stored run and compares every daily record.
	VerifyRun(ctx context.Context, runID string) (*VerificationResult, error)

	// VerifyBatch verifies all runs of one sweep batch.
	VerifyBatch(ctx context.Context, batchID string) (*VerificationReport, error)

	// VerifyAll verifies all stored runs.
	VerifyAll(ctx context.Context) (*VerificationReport, error)
}

// CompareDailyRecords compares two daily tables date by date.
// A length mismatch is reported once as "Days"; the common prefix is still compared.
func CompareDailyRecords(stored, replayed []*domain.DailyRecord) []FieldDivergence {
	var divergences []FieldDivergence

	if len(stored) != len(replayed) {
		divergences = append(divergences, FieldDivergence{
			Field:    "Days",
			Expected: len(stored),
			Actual:   len(replayed),
		})
	}

	n := min(len(stored), len(replayed))
	for i := 0; i < n; i++ {
		s, r := stored[i], replayed[i]

		if !s.Date.Equal(r.Date) {
			divergences = append(divergences, FieldDivergence{
				Date:     s.Date,
				Field:    "Date",
				Expected: s.Date,
				Actual:   r.Date,
			})
			continue
		}

		if !floatEquals(s.RetPort, r.RetPort) {
			divergences = append(divergences, FieldDivergence{Date: s.Date, Field: "RetPort", Expected: s.RetPort, Actual: r.RetPort})
		}
		if !floatEquals(s.Equity, r.Equity) {
			divergences = append(divergences, FieldDivergence{Date: s.Date, Field: "Equity", Expected: s.Equity, Actual: r.Equity})
		}
		if sh, rh := domain.JoinHoldings(s.Holdings), domain.JoinHoldings(r.Holdings); sh != rh {
			divergences = append(divergences, FieldDivergence{Date: s.Date, Field: "Holdings", Expected: sh, Actual: rh})
		}
		if !floatEquals(s.Turnover, r.Turnover) {
			divergences = append(divergences, FieldDivergence{Date: s.Date, Field: "Turnover", Expected: s.Turnover, Actual: r.Turnover})
		}
		if !floatEquals(s.CostValue, r.CostValue) {
			divergences = append(divergences, FieldDivergence{Date: s.Date, Field: "CostValue", Expected: s.CostValue, Actual: r.CostValue})
		}
	}

	return divergences
}

// CompareSummaries compares stored metrics with metrics recomputed from the
// stored daily records.
func CompareSummaries(stored, recomputed domain.MetricsSummary) []FieldDivergence {
	var divergences []FieldDivergence

	if stored.N != recomputed.N {
		divergences = append(divergences, FieldDivergence{Field: "Summary.N", Expected: stored.N, Actual: recomputed.N})
	}
	if !floatEquals(stored.CAGR, recomputed.CAGR) {
		divergences = append(divergences, FieldDivergence{Field: "Summary.CAGR", Expected: stored.CAGR, Actual: recomputed.CAGR})
	}
	if !floatEquals(stored.Sharpe, recomputed.Sharpe) {
		divergences = append(divergences, FieldDivergence{Field: "Summary.Sharpe", Expected: stored.Sharpe, Actual: recomputed.Sharpe})
	}
	if !floatEquals(stored.MaxDrawdown, recomputed.MaxDrawdown) {
		divergences = append(divergences, FieldDivergence{Field: "Summary.MaxDrawdown", Expected: stored.MaxDrawdown, Actual: recomputed.MaxDrawdown})
	}

	return divergences
}

// floatEquals compares within FloatTolerance, scaled by magnitude above 1.
func floatEquals(a, b float64) bool {
	scale := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= FloatTolerance*scale
}
