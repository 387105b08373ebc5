package dialer

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/die-net/wsconduit/internal/socks5"
	"github.com/die-net/wsconduit/internal/wsconn"
)

// WebSocketDialer reaches destinations through a remote tunnel endpoint.
// Every DialContext opens a fresh WebSocket, runs the SOCKS5 handshake over
// it and returns the tunnel as a net.Conn.
type WebSocketDialer struct {
	cfg Config
	url string
	ws  *websocket.Dialer
}

func NewWebSocketDialer(cfg Config, u *url.URL) *WebSocketDialer {
	nd := &net.Dialer{Timeout: cfg.DialTimeout, KeepAliveConfig: cfg.KeepAlive}
	return &WebSocketDialer{
		cfg: cfg,
		url: u.String(),
		ws: &websocket.Dialer{
			NetDialContext:   nd.DialContext,
			HandshakeTimeout: cfg.NegotiationTimeout,
			ReadBufferSize:   32 * 1024,
			WriteBufferSize:  32 * 1024,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// URL returns the tunnel endpoint.
func (d *WebSocketDialer) URL() string {
	return d.url
}

func (d *WebSocketDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if network != "tcp" {
		return nil, fmt.Errorf("websocket dial %s %s: unsupported network", network, address)
	}

	ws, resp, err := d.ws.DialContext(ctx, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", d.url, err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	// Abort the handshake if ctx is canceled before it completes.
	stop := context.AfterFunc(ctx, func() { _ = ws.Close() })

	if d.cfg.NegotiationTimeout > 0 {
		dl := time.Now().Add(d.cfg.NegotiationTimeout)
		_ = ws.SetReadDeadline(dl)
		_ = ws.SetWriteDeadline(dl)
	}

	if err := socks5.ClientHandshake(ws, address); err != nil {
		stop()
		_ = ws.Close()
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, fmt.Errorf("websocket dial %s %s: %w", network, address, err)
	}
	if !stop() {
		_ = ws.Close()
		return nil, fmt.Errorf("websocket dial %s %s: %w", network, address, ctx.Err())
	}

	_ = ws.SetReadDeadline(time.Time{})
	_ = ws.SetWriteDeadline(time.Time{})

	return wsconn.New(ws), nil
}
