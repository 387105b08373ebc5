package proxy

import (
	"context"
	"fmt"
	"net"
)

// ListenTCP listens on addr. Accepted TCP connections get keepAlive applied,
// which covers both the tunnel endpoint and the local SOCKS5 listener.
func ListenTCP(ctx context.Context, network, addr string, keepAlive net.KeepAliveConfig) (net.Listener, error) {
	// Keepalive is set per accepted conn, so "off" is honored too.
	lc := net.ListenConfig{KeepAlive: -1}

	ln, err := lc.Listen(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}

	return &keepAliveListener{Listener: ln, keepAlive: keepAlive}, nil
}

type keepAliveListener struct {
	net.Listener
	keepAlive net.KeepAliveConfig
}

func (l *keepAliveListener) Accept() (net.Conn, error) {
	conn, err := l.Listener.Accept()
	if err != nil {
		return nil, err
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(l.keepAlive)
	}

	return conn, nil
}
