package dialer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"
	"golang.org/x/sync/singleflight"

	internalssh "github.com/die-net/wsconduit/internal/ssh"
)

// SSHProxyDialer forwards outbound TCP connections through an SSH server, the
// way ssh -D does.
//
// One SSH transport is shared by every DialContext call and each call opens
// its own "direct-tcpip" channel. The transport is dialed lazily. If opening
// a channel fails for a transport-level reason, the transport is discarded,
// redialed once and the channel retried.
type SSHProxyDialer struct {
	sshAddr   string
	sshConfig internalssh.ClientConfig
	direct    Dialer

	mu     sync.Mutex
	client *ssh.Client
	sf     singleflight.Group
}

// NewSSHProxyDialer authenticates with password, with keys from
// cfg.SSHKeyPath, or with both. Host keys are checked against
// cfg.SSHKnownHostsPath with trust on first use; an empty path disables the
// check.
func NewSSHProxyDialer(cfg Config, sshAddr, username, password string) (Dialer, error) {
	if sshAddr == "" {
		return nil, errors.New("ssh dialer: missing ssh address")
	}

	signers, err := internalssh.LoadSigners(cfg.SSHKeyPath)
	if err != nil {
		return nil, fmt.Errorf("ssh dialer: %w", err)
	}

	hostKeyCallback, err := internalssh.NewHostKeyCallback(cfg.SSHKnownHostsPath)
	if err != nil {
		return nil, fmt.Errorf("ssh dialer: %w", err)
	}

	sshConfig := internalssh.ClientConfig{
		Username:         username,
		Password:         password,
		Signers:          signers,
		HostKeyCallback:  hostKeyCallback,
		HandshakeTimeout: cfg.NegotiationTimeout,
	}
	if err := sshConfig.Validate(); err != nil {
		return nil, fmt.Errorf("ssh dialer: %w", err)
	}

	return &SSHProxyDialer{
		sshAddr:   sshAddr,
		sshConfig: sshConfig,
		direct:    NewDirectDialer(Config{DialTimeout: cfg.DialTimeout, KeepAlive: cfg.KeepAlive}),
	}, nil
}

// DialContext opens a channel to address. Canceling ctx after it returns
// closes only that channel, never the shared transport.
func (f *SSHProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if network != "tcp" {
		return nil, fmt.Errorf("ssh upstream dial %s %s: unsupported network", network, address)
	}

	client, err := f.getClient(ctx)
	if err != nil {
		return nil, err
	}

	upConn, err := client.DialContext(ctx, "tcp", address)
	if err != nil {
		// The transport is fine; the destination is not.
		var openErr *ssh.OpenChannelError
		if errors.As(err, &openErr) || ctx.Err() != nil {
			return nil, fmt.Errorf("ssh upstream dial %s: %w", address, err)
		}

		f.invalidateClient(client)
		client, err2 := f.getClient(ctx)
		if err2 != nil {
			return nil, fmt.Errorf("ssh upstream dial %s: %w", address, errors.Join(err, err2))
		}
		upConn, err = client.DialContext(ctx, "tcp", address)
		if err != nil {
			return nil, fmt.Errorf("ssh upstream dial %s: %w", address, err)
		}
	}

	stop := context.AfterFunc(ctx, func() { _ = upConn.Close() })
	return &sshChannelConn{Conn: upConn, stop: stop}, nil
}

// getClient returns the shared transport, dialing it if needed. Concurrent
// callers share one dial attempt, which outlives a caller whose ctx ends.
func (f *SSHProxyDialer) getClient(ctx context.Context) (*ssh.Client, error) {
	f.mu.Lock()
	client := f.client
	f.mu.Unlock()
	if client != nil {
		return client, nil
	}

	ch := f.sf.DoChan("connect", func() (any, error) {
		f.mu.Lock()
		if f.client != nil {
			c := f.client
			f.mu.Unlock()
			return c, nil
		}
		f.mu.Unlock()

		newClient, err := f.dialSSH(context.Background())
		if err != nil {
			return nil, err
		}

		f.mu.Lock()
		f.client = newClient
		f.mu.Unlock()
		return newClient, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*ssh.Client), nil
	}
}

func (f *SSHProxyDialer) dialSSH(ctx context.Context) (*ssh.Client, error) {
	conn, err := f.direct.DialContext(ctx, "tcp", f.sshAddr)
	if err != nil {
		return nil, fmt.Errorf("ssh transport dial: %w", err)
	}

	client, err := internalssh.NewClient(conn, f.sshConfig, f.sshAddr)
	if err != nil {
		return nil, fmt.Errorf("ssh transport: %w", err)
	}
	return client, nil
}

// invalidateClient drops old if it is still the shared transport.
func (f *SSHProxyDialer) invalidateClient(old *ssh.Client) {
	f.mu.Lock()
	if f.client != old {
		f.mu.Unlock()
		return
	}
	f.client = nil
	f.mu.Unlock()

	_ = old.Close()
}

// Close shuts down the shared transport and every channel on it.
func (f *SSHProxyDialer) Close() error {
	f.mu.Lock()
	client := f.client
	f.client = nil
	f.mu.Unlock()

	if client == nil {
		return nil
	}
	return client.Close()
}

type sshChannelConn struct {
	net.Conn
	stop func() bool
}

func (c *sshChannelConn) Close() error {
	c.stop()
	return c.Conn.Close()
}
