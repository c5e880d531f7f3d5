package metrics

import "github.com/prometheus/client_golang/prometheus"

// Advisor Prometheus metrics.
var (
	AdvisorRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisor_requests_total",
			Help:      "Advisor calls by status",
		},
		[]string{"model", "status"}, // "ok" / "error" / "quota_exceeded"
	)

	AdvisorRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "advisor_request_duration_seconds",
			Help:      "Advisor call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"model"},
	)

	AdvisorTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "advisor_tokens_total",
			Help:      "Tokens consumed by the advisor",
		},
		[]string{"model", "type"}, // "prompt" / "total"
	)

	AdvisorQuotaRemaining = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "advisor_quota_remaining_tokens",
			Help:      "Advisor tokens left in the current period (-1 = unlimited)",
		},
		[]string{"period"}, // "daily" / "monthly"
	)
)

var advisorMetricsRegistered bool

// RegisterAdvisorMetrics registers advisor metrics. Must be called once from main.
func RegisterAdvisorMetrics() {
	if advisorMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		AdvisorRequestsTotal,
		AdvisorRequestDuration,
		AdvisorTokensTotal,
		AdvisorQuotaRemaining,
	)
	advisorMetricsRegistered = true
}
