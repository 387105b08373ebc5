package socks5

import (
	"errors"
	"fmt"
	"net"

	txsocks5 "github.com/txthinking/socks5"
)

// Credentials for username/password authentication. The zero value offers no
// authentication only.
type Credentials struct {
	Username string
	Password string
}

// StreamClientDial runs a CONNECT handshake for address over a byte-stream
// connection to a SOCKS5 proxy.
func StreamClientDial(conn net.Conn, creds Credentials, address string) error {
	if err := streamNegotiate(conn, creds); err != nil {
		return err
	}

	atyp, dstAddr, dstPort, err := txsocks5.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("parse address: %w", err)
	}
	if atyp == txsocks5.ATYPDomain {
		dstAddr = dstAddr[1:]
	}
	if _, err := txsocks5.NewRequest(txsocks5.CmdConnect, atyp, dstAddr, dstPort).WriteTo(conn); err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	rep, err := txsocks5.NewReplyFrom(conn)
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if rep.Rep != txsocks5.RepSuccess {
		return fmt.Errorf("%w: reply 0x%02x", ErrRejected, rep.Rep)
	}
	return nil
}

func streamNegotiate(conn net.Conn, creds Credentials) error {
	methods := []byte{txsocks5.MethodNone}
	if creds.Username != "" {
		methods = append(methods, txsocks5.MethodUsernamePassword)
	}
	if _, err := txsocks5.NewNegotiationRequest(methods).WriteTo(conn); err != nil {
		return fmt.Errorf("write negotiation: %w", err)
	}

	neg, err := txsocks5.NewNegotiationReplyFrom(conn)
	if err != nil {
		return fmt.Errorf("read negotiation: %w", err)
	}

	switch neg.Method {
	case txsocks5.MethodNone:
		return nil
	case txsocks5.MethodUsernamePassword:
		if creds.Username == "" {
			return errors.New("server requires username/password")
		}
		req := txsocks5.NewUserPassNegotiationRequest([]byte(creds.Username), []byte(creds.Password))
		if _, err := req.WriteTo(conn); err != nil {
			return fmt.Errorf("write userpass: %w", err)
		}
		rep, err := txsocks5.NewUserPassNegotiationReplyFrom(conn)
		if err != nil {
			return fmt.Errorf("read userpass: %w", err)
		}
		if rep.Status != txsocks5.UserPassStatusSuccess {
			return fmt.Errorf("%w: authentication failed", ErrRejected)
		}
		return nil
	default:
		return fmt.Errorf("%w: negotiation method 0x%02x", ErrRejected, neg.Method)
	}
}
