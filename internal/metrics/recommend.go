package metrics

import "github.com/prometheus/client_golang/prometheus"

// Recommendation and catalog Prometheus metrics.
var (
	// RecommendationsTotal counts pipeline outcomes: ok, no_match, over_budget, error.
	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recommendations_total",
			Help:      "Recommendation pipeline invocations by outcome",
		},
		[]string{"outcome"},
	)

	RecommendationItems = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "recommendation_items",
			Help:      "Number of recommendations returned per request",
			Buckets:   []float64{0, 1, 3, 5, 8, 13, 20, 50, 100},
		},
	)

	CatalogRows = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "catalog_rows",
			Help:      "Rows in the current catalog snapshot",
		},
		[]string{"state"}, // "admitted" / "dropped"
	)

	CatalogReloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_reloads_total",
			Help:      "Catalog reload attempts by status",
		},
		[]string{"source", "status"},
	)
)

var recMetricsRegistered bool

// RegisterRecommendationMetrics registers recommendation and catalog metrics. Must be called once from main.
func RegisterRecommendationMetrics() {
	if recMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		RecommendationsTotal,
		RecommendationItems,
		CatalogRows,
		CatalogReloadsTotal,
	)
	recMetricsRegistered = true
}
