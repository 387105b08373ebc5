package socks5

import (
	"bytes"
	"fmt"
	"net"

	"github.com/gorilla/websocket"
	txsocks5 "github.com/txthinking/socks5"

	"github.com/die-net/wsconduit/internal/wsconn"
)

const (
	// CmdConnect is the SOCKS5 CONNECT command value.
	CmdConnect = txsocks5.CmdConnect
)

// negotiationReply is the greeting answer: version 5, no authentication.
func negotiationReply() []byte {
	var buf bytes.Buffer
	_, _ = txsocks5.NewNegotiationReply(txsocks5.MethodNone).WriteTo(&buf)
	return buf.Bytes()
}

// replyMessage is a request reply with a zero IPv4 bound address. The bound
// address is never reported.
func replyMessage(rep byte) []byte {
	var buf bytes.Buffer
	_, _ = newZeroAddrReply(rep, txsocks5.ATYPIPv4).WriteTo(&buf)
	return buf.Bytes()
}

func sendReply(ch wsconn.Channel, rep byte) error {
	if err := ch.WriteMessage(websocket.BinaryMessage, replyMessage(rep)); err != nil {
		return fmt.Errorf("reply 0x%02x: %w", rep, err)
	}
	return nil
}

// WriteCommandNotSupportedReply writes a SOCKS5 reply indicating that the
// requested command is not supported.
func WriteCommandNotSupportedReply(conn net.Conn, atyp byte) {
	_, _ = newZeroAddrReply(txsocks5.RepCommandNotSupported, atyp).WriteTo(conn)
}

// WriteHostUnreachableReply writes a SOCKS5 reply indicating that the
// destination could not be reached.
func WriteHostUnreachableReply(conn net.Conn, atyp byte) {
	_, _ = newZeroAddrReply(txsocks5.RepHostUnreachable, atyp).WriteTo(conn)
}

// WriteSuccessReply writes a SOCKS5 success reply using localAddr as the bound
// address.
func WriteSuccessReply(conn net.Conn, localAddr net.Addr) error {
	a, addr, port, err := txsocks5.ParseAddress(localAddr.String())
	if err != nil {
		return fmt.Errorf("parse local address %q: %w", localAddr.String(), err)
	}
	if a == txsocks5.ATYPDomain {
		addr = addr[1:]
	}
	if _, err := txsocks5.NewReply(txsocks5.RepSuccess, a, addr, port).WriteTo(conn); err != nil {
		return fmt.Errorf("success reply: %w", err)
	}
	return nil
}

func newZeroAddrReply(rep, atyp byte) *txsocks5.Reply {
	if atyp == txsocks5.ATYPIPv6 {
		return txsocks5.NewReply(rep, txsocks5.ATYPIPv6, []byte(net.IPv6zero), []byte{0x00, 0x00})
	}
	return txsocks5.NewReply(rep, txsocks5.ATYPIPv4, []byte{0x00, 0x00, 0x00, 0x00}, []byte{0x00, 0x00})
}

func writeNoAcceptableMethods(conn net.Conn) {
	// RFC 1928: 0xFF indicates no acceptable methods.
	_, _ = txsocks5.NewNegotiationReply(0xff).WriteTo(conn)
}
