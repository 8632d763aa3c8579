// Package metrics exposes the ingestor's counters over Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"cryptodw/internal/model"
	"cryptodw/internal/stats"
)

// Monitor owns a private registry so the exposition carries only our
// metrics plus nothing from the default global registry.
type Monitor struct {
	registry *prometheus.Registry
}

// StateFunc reports the current connection state for the gauge.
type StateFunc func() model.ConnectionState

// New registers read-through metrics over the stats collector. The
// counters stay authoritative in stats; Prometheus only samples them.
func New(st *stats.Collector, state StateFunc) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "cryptodw",
		Subsystem: "ingestor",
		Name:      "trades_received_total",
		Help:      "Trade events accepted from the feed after normalization.",
	}, func() float64 {
		return float64(st.Snapshot().Received)
	})

	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "cryptodw",
		Subsystem: "ingestor",
		Name:      "trades_inserted_total",
		Help:      "Trade events committed to the bronze table.",
	}, func() float64 {
		return float64(st.Snapshot().Inserted)
	})

	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "cryptodw",
		Subsystem: "ingestor",
		Name:      "errors_total",
		Help:      "Malformed frames, connection failures and failed flushes.",
	}, func() float64 {
		return float64(st.Snapshot().Errors)
	})

	factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: "cryptodw",
		Subsystem: "ingestor",
		Name:      "frames_dropped_total",
		Help:      "Frames discarded because the receive buffer was full.",
	}, func() float64 {
		return float64(st.Snapshot().Dropped)
	})

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: "cryptodw",
		Subsystem: "ingestor",
		Name:      "connection_state",
		Help:      "Feed connection state (0=disconnected, 1=connecting, 2=subscribed, 3=closing).",
	}, func() float64 {
		return float64(state())
	})

	return &Monitor{registry: reg}
}

// Handler returns the HTTP handler serving the exposition.
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Monitor) Registry() *prometheus.Registry {
	return m.registry
}
