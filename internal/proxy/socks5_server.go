package proxy

import (
	"context"
	"net"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/die-net/wsconduit/internal/dialer"
	"github.com/die-net/wsconduit/internal/metrics"
	"github.com/die-net/wsconduit/internal/socks5"
)

// SOCKS5Server accepts SOCKS5 clients over plain TCP and connects them
// through the configured dialer. With a ws:// upstream it is the client half
// of a tunnel.
type SOCKS5Server struct {
	ctx                context.Context
	dialer             dialer.Dialer
	metrics            *metrics.Metrics
	negotiationTimeout time.Duration
}

func NewSOCKS5Server(ctx context.Context, cfg Config) *SOCKS5Server {
	if ctx == nil {
		ctx = context.Background()
	}
	return &SOCKS5Server{
		ctx:                ctx,
		dialer:             cfg.Dialer,
		metrics:            cfg.Metrics,
		negotiationTimeout: cfg.NegotiationTimeout,
	}
}

// Serve accepts connections on ln until it is closed.
func (s *SOCKS5Server) Serve(ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(c)
	}
}

func (s *SOCKS5Server) handleConn(conn net.Conn) {
	defer conn.Close()

	logger := log.With().
		Str("session", uuid.NewString()).
		Stringer("client", conn.RemoteAddr()).
		Logger()

	if s.negotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.negotiationTimeout))
	}

	if err := socks5.ServerNegotiateNoAuth(conn); err != nil {
		logger.Debug().Err(err).Msg("socks5 negotiation failed")
		return
	}

	req, err := socks5.ServerReadRequest(conn)
	if err != nil {
		logger.Debug().Err(err).Msg("socks5 request failed")
		return
	}
	if req.Cmd != socks5.CmdConnect {
		socks5.WriteCommandNotSupportedReply(conn, req.Atyp)
		logger.Debug().Uint8("cmd", req.Cmd).Msg("socks5 command not supported")
		return
	}

	target := req.Address()
	logger = logger.With().Str("target", target).Logger()

	up, err := s.dialer.DialContext(s.ctx, "tcp", target)
	if err != nil {
		socks5.WriteHostUnreachableReply(conn, req.Atyp)
		logger.Debug().Err(err).Msg("socks5 dial failed")
		return
	}
	defer up.Close()

	if err := socks5.WriteSuccessReply(conn, up.LocalAddr()); err != nil {
		logger.Debug().Err(err).Msg("socks5 reply failed")
		return
	}
	_ = conn.SetDeadline(time.Time{})

	sent, received, err := CopyBidirectional(s.ctx, conn, up)
	s.metrics.Relayed(sent, received)
	logger.Debug().Err(err).Int64("sent", sent).Int64("received", received).Msg("socks5 relay finished")
}
