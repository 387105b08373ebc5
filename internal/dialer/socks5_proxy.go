package dialer

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/die-net/wsconduit/internal/socks5"
)

// SOCKS5ProxyDialer forwards outbound TCP connections through an upstream
// SOCKS5 proxy.
type SOCKS5ProxyDialer struct {
	cfg       Config
	proxyAddr string
	creds     socks5.Credentials
	nd        *net.Dialer
}

func NewSOCKS5ProxyDialer(cfg Config, proxyAddr, user, pass string) Dialer {
	return &SOCKS5ProxyDialer{
		cfg:       cfg,
		proxyAddr: proxyAddr,
		creds:     socks5.Credentials{Username: user, Password: pass},
		nd:        &net.Dialer{Timeout: cfg.DialTimeout, KeepAliveConfig: cfg.KeepAlive},
	}
}

func (f *SOCKS5ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if network != "tcp" {
		return nil, fmt.Errorf("socks5 proxy dial %s %s: unsupported network", network, address)
	}

	conn, err := f.nd.DialContext(ctx, "tcp", f.proxyAddr)
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy dial %s: %w", f.proxyAddr, err)
	}

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })

	if f.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(f.cfg.NegotiationTimeout))
	}

	if err := socks5.StreamClientDial(conn, f.creds, address); err != nil {
		stop()
		_ = conn.Close()
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("socks5 proxy dial %s %s: %w", network, address, err)
	}
	if !stop() {
		_ = conn.Close()
		return nil, fmt.Errorf("socks5 proxy dial %s %s: %w", network, address, ctx.Err())
	}

	_ = conn.SetDeadline(time.Time{})
	return conn, nil
}
