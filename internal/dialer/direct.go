package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

type directDialer struct {
	cfg      Config
	resolver *Resolver
}

// NewDirectDialer dials destinations itself. Domain names go through
// cfg.DNSServer when it is set.
func NewDirectDialer(cfg Config) Dialer {
	d := &directDialer{cfg: cfg}
	if cfg.DNSServer != "" {
		d.resolver = NewResolver(cfg.DNSServer, cfg.DialTimeout)
	}
	return d
}

func (f *directDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if f.resolver == nil {
		return f.dial(ctx, network, address)
	}

	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, address, err)
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return f.dial(ctx, network, address)
	}

	ips, err := f.resolver.LookupNetIP(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, address, err)
	}

	var errs []error
	for _, ip := range ips {
		conn, err := f.dial(ctx, network, net.JoinHostPort(ip.String(), port))
		if err == nil {
			return conn, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}

func (f *directDialer) dial(ctx context.Context, network, address string) (net.Conn, error) {
	dd := net.Dialer{Timeout: f.cfg.DialTimeout}

	conn, err := dd.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("dial %s %s: %w", network, address, err)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(f.cfg.KeepAlive)
	}

	return conn, nil
}
