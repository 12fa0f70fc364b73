// Package observability provides Prometheus metrics and HTTP middleware
// for monitoring castellan-protected services.
package observability

import "github.com/prometheus/client_golang/prometheus"

// AuthBuckets defines histogram buckets suited for authentication
// latencies, from sub-millisecond in-memory checks to multi-second
// external token validation calls.
var AuthBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

var (
	// RequestsTotal counts all HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castellan_requests_total",
			Help: "Total requests",
		},
		[]string{"method", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "castellan_request_duration_seconds",
			Help:    "Request duration",
			Buckets: AuthBuckets,
		},
		[]string{"method"},
	)

	// AuthAttemptsTotal counts authentication attempts by backend and outcome
	// ("success", "not_applicable", "failure", "user_not_found").
	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castellan_auth_attempts_total",
			Help: "Authentication attempts",
		},
		[]string{"backend", "outcome"},
	)

	// AuthRejectedTotal counts requests rejected by authentication, by
	// backend and failure kind.
	AuthRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "castellan_auth_rejected_total",
			Help: "Authentication rejections",
		},
		[]string{"backend", "reason"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		AuthAttemptsTotal,
		AuthRejectedTotal,
	)
}
