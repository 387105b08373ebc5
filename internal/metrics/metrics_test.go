package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	done := m.SessionStarted()
	if got := testutil.ToFloat64(m.ActiveSessions); got != 1 {
		t.Fatalf("active sessions %v want 1", got)
	}
	m.Handshake("connect")
	m.Handshake("connect")
	m.Handshake("malformed_request")
	m.Relayed(10, 25)
	done()

	if got := testutil.ToFloat64(m.ActiveSessions); got != 0 {
		t.Fatalf("active sessions %v want 0", got)
	}
	if got := testutil.ToFloat64(m.Handshakes.WithLabelValues("connect")); got != 2 {
		t.Fatalf("connect handshakes %v want 2", got)
	}
	if got := testutil.ToFloat64(m.RelayedBytes.WithLabelValues(DirectionDownstream)); got != 25 {
		t.Fatalf("downstream bytes %v want 25", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.SessionStarted()()
	m.Handshake("connect")
	m.Relayed(1, 1)
}
