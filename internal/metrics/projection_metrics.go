package metrics

import "github.com/prometheus/client_golang/prometheus"

// Projection counter vectors
var (
	ProjectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "projections_total",
		Help:      "Total number of player projections by stat",
	}, []string{"stat"})

	ProjectionsSkippedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "projections_skipped_total",
		Help:      "Units of work dropped from a run by skip kind",
	}, []string{"reason"})

	MarketsNormalizedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "markets_normalized_total",
		Help:      "Odds markets processed by the normalizer by status",
	}, []string{"status"})
)

// Projection gauge vectors
var (
	PicksPublished = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "picks_published",
		Help:      "Picks written to the site by stat on the last run",
	}, []string{"stat"})
)

// RecordProjections adds n projections for stat.
func RecordProjections(stat string, n int) {
	ProjectionsTotal.WithLabelValues(stat).Add(float64(n))
}

// RecordSkipped records one skipped unit; reason is the skip kind.
func RecordSkipped(reason string) {
	ProjectionsSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordMarkets records normalized and incomplete market counts.
func RecordMarkets(normalized, incomplete int) {
	MarketsNormalizedTotal.WithLabelValues("normalized").Add(float64(normalized))
	MarketsNormalizedTotal.WithLabelValues("incomplete").Add(float64(incomplete))
}

// UpdatePicksPublished sets the published pick count for stat.
func UpdatePicksPublished(stat string, count int) {
	PicksPublished.WithLabelValues(stat).Set(float64(count))
}
