package proxy

import (
	"net"
	"time"

	"github.com/die-net/wsconduit/internal/dialer"
	"github.com/die-net/wsconduit/internal/metrics"
)

type Config struct {
	// NegotiationTimeout bounds the SOCKS5 handshake. Zero disables it.
	// Relaying is never subject to a timeout.
	NegotiationTimeout time.Duration

	KeepAlive net.KeepAliveConfig

	Dialer dialer.Dialer

	// Metrics may be nil.
	Metrics *metrics.Metrics
}
