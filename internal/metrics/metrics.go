// Package metrics exposes tunnel session counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "wsconduit"

// Relay directions.
const (
	DirectionUpstream   = "upstream"   // client to destination
	DirectionDownstream = "downstream" // destination to client
)

// Metrics holds the collectors updated by the proxy servers. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	ActiveSessions prometheus.Gauge
	Handshakes     *prometheus.CounterVec
	RelayedBytes   *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of tunnel sessions currently open",
		}),

		Handshakes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "handshakes_total",
			Help:      "SOCKS5 handshakes by outcome",
		}, []string{"outcome"}),

		RelayedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "relayed_bytes_total",
			Help:      "Bytes relayed between clients and destinations",
		}, []string{"direction"}),
	}

	reg.MustRegister(m.ActiveSessions, m.Handshakes, m.RelayedBytes)
	return m
}

// SessionStarted marks a session open. Call the returned func when it ends.
func (m *Metrics) SessionStarted() func() {
	if m == nil {
		return func() {}
	}
	m.ActiveSessions.Inc()
	return m.ActiveSessions.Dec
}

// Handshake counts one handshake result.
func (m *Metrics) Handshake(outcome string) {
	if m == nil {
		return
	}
	m.Handshakes.WithLabelValues(outcome).Inc()
}

// Relayed adds the byte counts of a finished relay.
func (m *Metrics) Relayed(upstream, downstream int64) {
	if m == nil {
		return
	}
	m.RelayedBytes.WithLabelValues(DirectionUpstream).Add(float64(upstream))
	m.RelayedBytes.WithLabelValues(DirectionDownstream).Add(float64(downstream))
}
