package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mercator-hq/lendrules/pkg/config"
)

// HTTPMetrics tracks API requests.
//
// Metrics:
//   - lendrules_http_requests_total{method,route,status}
//   - lendrules_http_request_duration_seconds{method,route}
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics creates and registers HTTP metrics with the provided registry.
func NewHTTPMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *HTTPMetrics {
	hm := &HTTPMetrics{
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "HTTP requests by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request latency in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"method", "route"},
		),
	}

	registry.MustRegister(hm.requests, hm.duration)
	return hm
}

func (hm *HTTPMetrics) record(method, route string, status int, duration time.Duration) {
	// Unmatched paths share one label value to bound cardinality.
	if route == "" {
		route = "unmatched"
	}
	hm.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	hm.duration.WithLabelValues(method, route).Observe(duration.Seconds())
}
