package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsCollector holds process-level Prometheus metrics for Ganda.
// Uses a custom registry — no global state. Subsystem metrics (session
// manager, sweeper) register their own collectors on the same Registry.
type MetricsCollector struct {
	Registry *prometheus.Registry

	// HTTP gateway metrics.
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// WebSocket gateway metrics.
	WSConnectionsActive prometheus.Gauge
	WSMessagesTotal     *prometheus.CounterVec

	// System metrics.
	ActiveRequests prometheus.Gauge
}

// NewMetricsCollector creates a MetricsCollector with all metrics registered
// on a custom prometheus.Registry.
func NewMetricsCollector() *MetricsCollector {
	reg := prometheus.NewRegistry()

	m := &MetricsCollector{
		Registry: reg,

		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ganda",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "path", "status_code"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ganda",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),

		WSConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ganda",
			Subsystem: "ws",
			Name:      "connections_active",
			Help:      "Number of open WebSocket terminal connections.",
		}),

		WSMessagesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ganda",
			Subsystem: "ws",
			Name:      "messages_total",
			Help:      "Total WebSocket messages processed, by type.",
		}, []string{"type"}),

		ActiveRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ganda",
			Name:      "active_requests",
			Help:      "Number of currently active requests.",
		}),
	}

	// Register all collectors.
	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.WSConnectionsActive,
		m.WSMessagesTotal,
		m.ActiveRequests,
	)

	return m
}
