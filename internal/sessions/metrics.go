package sessions

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds Prometheus metrics for the session manager.
type Metrics struct {
	ActiveSessions  prometheus.Gauge
	SessionsEvicted prometheus.Counter
	CommandsTotal   *prometheus.CounterVec
	CommandDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers session metrics.
// Returns nil if reg is nil.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		return nil
	}

	m := &Metrics{
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "ganda",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Number of live interpreter sessions.",
		}),
		SessionsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "ganda",
			Subsystem: "sessions",
			Name:      "evicted_total",
			Help:      "Total sessions evicted (explicit delete or idle sweep).",
		}),
		CommandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ganda",
			Subsystem: "sessions",
			Name:      "commands_total",
			Help:      "Total commands executed, by command name and status.",
		}, []string{"command", "status"}),
		CommandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ganda",
			Subsystem: "sessions",
			Name:      "command_duration_seconds",
			Help:      "Duration of command execution.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"command"}),
	}

	reg.MustRegister(
		m.ActiveSessions,
		m.SessionsEvicted,
		m.CommandsTotal,
		m.CommandDuration,
	)

	return m
}
