// Package metrics provides centralized Prometheus metrics registry for the picks engine.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "nhl_picks"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	DailyRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "daily_runs_total",
		Help:      "Total number of daily projection runs by status",
	}, []string{"status"})
	SourceErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "source_errors_total",
		Help:      "Data source failures by source and operation",
	}, []string{"source", "operation"})
	RowsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rows_rejected_total",
		Help:      "Ingested rows dropped by validation, by kind",
	}, []string{"kind"})
)

// Gauge metrics
var (
	LastSuccessfulRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_successful_run_timestamp_seconds",
		Help:      "Unix time of the last daily run that completed without a fetch failure",
	})
	SlateGames = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "slate_games",
		Help:      "Games on the most recently projected slate",
	})
)

// Histogram metrics
var (
	RunDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "run_duration_seconds",
		Help:      "Duration of scheduled and manual jobs in seconds",
		Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 600},
	}, []string{"job"})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(DailyRunsTotal)
		registry.MustRegister(SourceErrorsTotal)
		registry.MustRegister(RowsRejectedTotal)

		registry.MustRegister(LastSuccessfulRun)
		registry.MustRegister(SlateGames)

		registry.MustRegister(RunDuration)

		// Register projection metrics
		registry.MustRegister(ProjectionsTotal)
		registry.MustRegister(ProjectionsSkippedTotal)
		registry.MustRegister(MarketsNormalizedTotal)
		registry.MustRegister(PicksPublished)

		// Register backtest metrics
		registry.MustRegister(BacktestRunsTotal)
		registry.MustRegister(BrierScore)
		registry.MustRegister(LogLoss)
		registry.MustRegister(BacktestCompositeScore)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordDailyRun records the outcome of a daily run.
// status should be one of: "success", "degraded", "failure"
func RecordDailyRun(status string, durationSeconds float64) {
	DailyRunsTotal.WithLabelValues(status).Inc()
	RunDuration.WithLabelValues("daily").Observe(durationSeconds)
}

// RecordSourceError records a failed data source call.
func RecordSourceError(source, operation string) {
	SourceErrorsTotal.WithLabelValues(source, operation).Inc()
}

// RecordRowsRejected adds validation rejections for one kind of input.
func RecordRowsRejected(kind string, n int) {
	if n > 0 {
		RowsRejectedTotal.WithLabelValues(kind).Add(float64(n))
	}
}

// MarkSuccessfulRun stamps the last successful run gauge.
func MarkSuccessfulRun(unixSeconds float64) {
	LastSuccessfulRun.Set(unixSeconds)
}

// UpdateSlateGames updates the slate size gauge.
func UpdateSlateGames(count int) {
	SlateGames.Set(float64(count))
}
