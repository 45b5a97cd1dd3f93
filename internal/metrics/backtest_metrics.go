package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backtest counter vectors
var (
	BacktestRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "backtest_runs_total",
		Help:      "Total number of backtest runs by status",
	}, []string{"status"})
)

// Backtest gauge vectors
var (
	BrierScore = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "brier_score",
		Help:      "Brier score of the last backtest by stat",
	}, []string{"stat"})

	LogLoss = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "log_loss",
		Help:      "Log loss of the last backtest by stat",
	}, []string{"stat"})
)

// Backtest histogram vectors
var (
	BacktestCompositeScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "backtest_composite_score",
		Help:      "Composite calibration scores from backtest runs",
		Buckets:   []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})
)

// RecordBacktestRun records a backtest run event.
// status should be one of: "success", "failure"
func RecordBacktestRun(status string, durationSeconds float64) {
	BacktestRunsTotal.WithLabelValues(status).Inc()
	RunDuration.WithLabelValues("backtest").Observe(durationSeconds)
}

// RecordStatScores records the scoring rules for one stat.
func RecordStatScores(stat string, brier, logLoss float64) {
	BrierScore.WithLabelValues(stat).Set(brier)
	LogLoss.WithLabelValues(stat).Set(logLoss)
}

// RecordCompositeScore records a composite score from a backtest run.
func RecordCompositeScore(score float64) {
	BacktestCompositeScore.Observe(score)
}
