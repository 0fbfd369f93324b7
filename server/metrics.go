package server

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the server's Prometheus collectors.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	TradesTotal     prometheus.Counter
	OpenConnections prometheus.Gauge
}

// NewMetrics creates the server collectors and registers them with the
// given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "crossline",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Amount of handled requests by action.",
		}, []string{"action"}),
		TradesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "crossline",
			Subsystem: "server",
			Name:      "trades_executed_total",
			Help:      "Amount of trades executed through the server.",
		}),
		OpenConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "crossline",
			Subsystem: "server",
			Name:      "open_connections",
			Help:      "Amount of currently open client connections.",
		}),
	}
	reg.MustRegister(m.RequestsTotal, m.TradesTotal, m.OpenConnections)
	return m
}
