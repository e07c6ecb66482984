package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// APIRequestsTotal tracks logical API calls made through a session.
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lacework_api_requests_total",
			Help: "Total number of Lacework API requests (by method and status).",
		},
		[]string{"method", "status"},
	)

	// APIRequestDuration measures the wall time of a logical API call, retries included.
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lacework_api_request_duration_seconds",
			Help:    "Duration of Lacework API requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms → ~10s
		},
		[]string{"method"},
	)

	// HTTPRetriesTotal counts transport-level retries by reason ("status" or "network").
	HTTPRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lacework_http_retries_total",
			Help: "Number of retried HTTP attempts by reason.",
		},
		[]string{"reason"},
	)

	// TokenRefreshesTotal counts bearer token acquisitions by outcome.
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lacework_token_refreshes_total",
			Help: "Number of access token acquisitions by outcome.",
		},
		[]string{"outcome"},
	)
)

// IncAPIRequest increments the request counter.
func IncAPIRequest(method, status string) {
	APIRequestsTotal.WithLabelValues(method, status).Inc()
}

// IncRetry increments the retry counter.
func IncRetry(reason string) {
	HTTPRetriesTotal.WithLabelValues(reason).Inc()
}

// IncTokenRefresh increments the token refresh counter.
func IncTokenRefresh(outcome string) {
	TokenRefreshesTotal.WithLabelValues(outcome).Inc()
}

// ObserveDuration records elapsed time since start into a HistogramVec or SummaryVec.
func ObserveDuration(v any, start time.Time, labels ...string) {
	duration := time.Since(start).Seconds()
	switch metric := v.(type) {
	case *prometheus.HistogramVec:
		metric.WithLabelValues(labels...).Observe(duration)
	case *prometheus.SummaryVec:
		metric.WithLabelValues(labels...).Observe(duration)
	}
}
