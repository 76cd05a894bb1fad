package ws

import "github.com/prometheus/client_golang/prometheus"

// Metrics covers the hub's delivery path. Registered against the process
// registry exposed on /metrics.
type Metrics struct {
	Connections prometheus.Gauge
	Delivered   prometheus.Counter
	Dropped     prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "ws_active_connections",
			Help: "Number of websocket connections currently enrolled in the hub.",
		}),
		Delivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_messages_delivered_total",
			Help: "Messages handed to connection send buffers.",
		}),
		Dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ws_messages_dropped_total",
			Help: "Messages dropped because a connection's send buffer was full.",
		}),
	}

	reg.MustRegister(m.Connections, m.Delivered, m.Dropped)

	return m
}

// NopMetrics keeps the hub usable in tests without a registry.
func NopMetrics() *Metrics {
	return &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{Name: "ws_active_connections"}),
		Delivered:   prometheus.NewCounter(prometheus.CounterOpts{Name: "ws_messages_delivered_total"}),
		Dropped:     prometheus.NewCounter(prometheus.CounterOpts{Name: "ws_messages_dropped_total"}),
	}
}
