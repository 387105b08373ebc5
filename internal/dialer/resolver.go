package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/miekg/dns"
)

var errNoAddresses = errors.New("no A or AAAA records")

// Resolver looks up A and AAAA records with a single DNS server.
type Resolver struct {
	server string
	client *dns.Client
}

// NewResolver queries server, a host or host:port. A zero timeout uses the
// dns package defaults.
func NewResolver(server string, timeout time.Duration) *Resolver {
	if _, _, err := net.SplitHostPort(server); err != nil {
		server = net.JoinHostPort(server, "53")
	}
	return &Resolver{
		server: server,
		client: &dns.Client{Net: "udp", Timeout: timeout},
	}
}

// LookupNetIP returns the IPv4 addresses of host followed by its IPv6
// addresses. It fails only if neither query produced an address.
func (r *Resolver) LookupNetIP(ctx context.Context, host string) ([]netip.Addr, error) {
	var (
		addrs   []netip.Addr
		lastErr error
	)
	for _, qtype := range []uint16{dns.TypeA, dns.TypeAAAA} {
		found, err := r.query(ctx, host, qtype)
		if err != nil {
			lastErr = err
			continue
		}
		addrs = append(addrs, found...)
	}

	if len(addrs) == 0 {
		if lastErr == nil {
			lastErr = errNoAddresses
		}
		return nil, fmt.Errorf("resolve %s via %s: %w", host, r.server, lastErr)
	}
	return addrs, nil
}

func (r *Resolver) query(ctx context.Context, host string, qtype uint16) ([]netip.Addr, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), qtype)
	m.RecursionDesired = true

	in, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return nil, err
	}
	if in.Rcode != dns.RcodeSuccess {
		return nil, fmt.Errorf("%s query: %s", dns.TypeToString[qtype], dns.RcodeToString[in.Rcode])
	}

	var addrs []netip.Addr
	for _, ans := range in.Answer {
		var ip net.IP
		switch rr := ans.(type) {
		case *dns.A:
			ip = rr.A
		case *dns.AAAA:
			ip = rr.AAAA
		default:
			continue
		}
		if addr, ok := netip.AddrFromSlice(ip); ok {
			addrs = append(addrs, addr.Unmap())
		}
	}
	return addrs, nil
}
