// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Run status label values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds all Prometheus metrics for the application.
// All methods are safe on a nil receiver.
type Metrics struct {
	// Run metrics
	RunsTotal     *prometheus.CounterVec
	RunDuration   *prometheus.HistogramVec
	DaysSimulated *prometheus.CounterVec
	TradesCounted prometheus.Counter
	CostTotal     prometheus.Counter

	// Sweep metrics
	SweepRunsInFlight prometheus.Gauge

	// Data metrics
	PredictionsLoaded prometheus.Counter
	SummariesComputed prometheus.Counter
	ReportsGenerated  prometheus.Counter
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a Metrics instance registered on reg.
// A nil reg means prometheus.DefaultRegisterer.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "quant_backtest_lab"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by mode and status",
		}, []string{"mode", "status"}),
		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "run_duration_seconds",
			Help:      "Backtest run duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"mode"}),
		DaysSimulated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "days_simulated_total",
			Help:      "Total number of simulated trading days by mode",
		}, []string{"mode"}),
		TradesCounted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "turnover_days_total",
			Help:      "Total number of exact-mode days with non-zero turnover",
		}),
		CostTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "cost_value_total",
			Help:      "Sum of exact-mode transaction costs in currency units",
		}),

		SweepRunsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweep",
			Name:      "runs_in_flight",
			Help:      "Number of sweep runs currently executing",
		}),

		PredictionsLoaded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "data",
			Name:      "predictions_loaded_total",
			Help:      "Total number of prediction rows loaded for runs",
		}),
		SummariesComputed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "data",
			Name:      "summaries_computed_total",
			Help:      "Total number of run summaries computed",
		}),
		ReportsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "data",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),
		LastSuccessfulRun: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful backtest run",
		}),
	}
}

// HandlerFor returns a /metrics handler serving the given gatherer.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// RecordRun records a finished run.
func (m *Metrics) RecordRun(mode, status string, days int, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(mode, status).Inc()
	m.RunDuration.WithLabelValues(mode).Observe(d.Seconds())
	if status == StatusSuccess {
		m.DaysSimulated.WithLabelValues(mode).Add(float64(days))
		m.LastSuccessfulRun.SetToCurrentTime()
	}
}

// RecordCosts records exact-mode trading activity for one run.
func (m *Metrics) RecordCosts(turnoverDays int, cost float64) {
	if m == nil {
		return
	}
	m.TradesCounted.Add(float64(turnoverDays))
	if cost > 0 {
		m.CostTotal.Add(cost)
	}
}

// RecordPredictionsLoaded adds n loaded prediction rows.
func (m *Metrics) RecordPredictionsLoaded(n int) {
	if m == nil {
		return
	}
	m.PredictionsLoaded.Add(float64(n))
}

// RecordSummary increments the computed summaries counter.
func (m *Metrics) RecordSummary() {
	if m == nil {
		return
	}
	m.SummariesComputed.Inc()
}

// RecordReport increments the reports generated counter.
func (m *Metrics) RecordReport() {
	if m == nil {
		return
	}
	m.ReportsGenerated.Inc()
}

// SweepStarted and SweepFinished bracket one sweep run.
func (m *Metrics) SweepStarted() {
	if m == nil {
		return
	}
	m.SweepRunsInFlight.Inc()
}

func (m *Metrics) SweepFinished() {
	if m == nil {
		return
	}
	m.SweepRunsInFlight.Dec()
}
