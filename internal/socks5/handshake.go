package socks5

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/gorilla/websocket"
	txsocks5 "github.com/txthinking/socks5"

	"github.com/die-net/wsconduit/internal/wsconn"
)

// Dialer opens the outbound connection for a CONNECT request.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Handshake reads the greeting and the CONNECT request from ch, one binary
// message each, and returns the requested destination.
//
// Input that cannot be read as a SOCKS5 greeting or request aborts without a
// reply. A well-formed request for another command or address type gets the
// matching error reply before Handshake returns. Failures to send those error
// replies are ignored.
func Handshake(ch wsconn.Channel) (Address, error) {
	greeting, err := wsconn.ReadBinary(ch)
	if err != nil {
		return Address{}, fmt.Errorf("read greeting: %w", err)
	}
	if len(greeting) < 2 || greeting[0] != txsocks5.Ver || len(greeting) != 2+int(greeting[1]) {
		return Address{}, fmt.Errorf("%w: bad greeting % x", ErrMalformedRequest, greeting)
	}
	if err := ch.WriteMessage(websocket.BinaryMessage, negotiationReply()); err != nil {
		return Address{}, fmt.Errorf("negotiation reply: %w", err)
	}

	req, err := wsconn.ReadBinary(ch)
	if err != nil {
		return Address{}, fmt.Errorf("read request: %w", err)
	}
	if len(req) < 4 {
		return Address{}, fmt.Errorf("%w: request length %d", ErrMalformedRequest, len(req))
	}
	if req[0] != txsocks5.Ver {
		return Address{}, fmt.Errorf("%w: version %d", ErrMalformedRequest, req[0])
	}
	if req[1] != CmdConnect {
		_ = sendReply(ch, txsocks5.RepCommandNotSupported)
		return Address{}, fmt.Errorf("%w: 0x%02x", ErrUnsupportedCommand, req[1])
	}

	// req[2] is reserved.
	addr, err := DecodeAddress(req[3:])
	if err != nil {
		if errors.Is(err, ErrUnsupportedAddressType) {
			_ = sendReply(ch, txsocks5.RepAddressNotSupported)
		}
		return Address{}, err
	}
	return addr, nil
}

// Connect dials addr and reports the result on ch. On success the returned
// connection is ready for relaying; the caller owns it.
func Connect(ctx context.Context, ch wsconn.Channel, addr Address, d Dialer) (net.Conn, error) {
	conn, err := d.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		_ = sendReply(ch, txsocks5.RepServerFailure)
		return nil, fmt.Errorf("%w: %w", ErrConnectFailed, err)
	}

	if err := sendReply(ch, txsocks5.RepSuccess); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}
