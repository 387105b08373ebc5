package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/die-net/wsconduit/internal/dialer"
	"github.com/die-net/wsconduit/internal/metrics"
	"github.com/die-net/wsconduit/internal/socks5"
	"github.com/die-net/wsconduit/internal/wsconn"
)

// WebSocketServer is the tunnel endpoint. Each WebSocket upgraded on its
// tunnel path carries one SOCKS5 CONNECT session.
type WebSocketServer struct {
	ctx                context.Context
	dialer             dialer.Dialer
	metrics            *metrics.Metrics
	negotiationTimeout time.Duration

	path     string
	upgrader websocket.Upgrader
	srv      *http.Server
}

func NewWebSocketServer(ctx context.Context, cfg Config, path string) *WebSocketServer {
	if ctx == nil {
		ctx = context.Background()
	}
	if path == "" {
		path = "/ws"
	}

	s := &WebSocketServer{
		ctx:                ctx,
		dialer:             cfg.Dialer,
		metrics:            cfg.Metrics,
		negotiationTimeout: cfg.NegotiationTimeout,
		path:               path,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  32 * 1024,
			WriteBufferSize: 32 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}

	s.srv = &http.Server{
		Handler:           http.HandlerFunc(s.route),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	return s
}

// Serve accepts HTTP connections on ln until Close is called.
func (s *WebSocketServer) Serve(ln net.Listener) error {
	err := s.srv.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close stops accepting connections. Upgraded sessions are hijacked and end
// when the server context is canceled.
func (s *WebSocketServer) Close() error {
	return s.srv.Close()
}

// route matches the tunnel path literally, so any path the operator
// configures is served as given.
func (s *WebSocketServer) route(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case s.path:
	case "/":
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			_, _ = io.WriteString(w, "Hello, World!")
			return
		}
	default:
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	s.handleUpgrade(w, r)
}

func (s *WebSocketServer) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote an HTTP error response.
		log.Debug().Err(err).Str("client", r.RemoteAddr).Msg("websocket upgrade failed")
		return
	}
	s.serveSession(ws)
}

func (s *WebSocketServer) serveSession(ws *websocket.Conn) {
	defer s.metrics.SessionStarted()()

	logger := log.With().
		Str("session", uuid.NewString()).
		Stringer("client", ws.RemoteAddr()).
		Logger()

	conn := wsconn.New(ws)
	defer conn.Close()

	// A canceled server context interrupts a pending handshake.
	stop := context.AfterFunc(s.ctx, func() { _ = ws.Close() })
	defer stop()

	if s.negotiationTimeout > 0 {
		_ = ws.SetReadDeadline(time.Now().Add(s.negotiationTimeout))
	}

	addr, err := socks5.Handshake(ws)
	var up net.Conn
	if err == nil {
		logger = logger.With().Stringer("target", addr).Logger()
		up, err = socks5.Connect(s.ctx, ws, addr, s.dialer)
	}
	s.metrics.Handshake(socks5.Outcome(err))
	if err != nil {
		logger.Debug().Err(err).Str("outcome", socks5.Outcome(err)).Msg("handshake failed")
		return
	}
	defer up.Close()

	_ = ws.SetReadDeadline(time.Time{})
	logger.Debug().Msg("relay started")

	sent, received, err := CopyBidirectional(s.ctx, conn, up)
	s.metrics.Relayed(sent, received)
	logger.Debug().Err(err).Int64("sent", sent).Int64("received", received).Msg("relay finished")
}
