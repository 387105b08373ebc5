package socks5

import (
	"bytes"
	"fmt"

	"github.com/gorilla/websocket"
	txsocks5 "github.com/txthinking/socks5"

	"github.com/die-net/wsconduit/internal/wsconn"
)

// ClientHandshake asks the server at the other end of ch to CONNECT to
// address, sending the greeting and the request as one binary message each.
func ClientHandshake(ch wsconn.Channel, address string) error {
	if err := ClientNegotiate(ch); err != nil {
		return err
	}
	return ClientConnect(ch, address)
}

// ClientNegotiate offers only the no-authentication method.
func ClientNegotiate(ch wsconn.Channel) error {
	var buf bytes.Buffer
	if _, err := txsocks5.NewNegotiationRequest([]byte{txsocks5.MethodNone}).WriteTo(&buf); err != nil {
		return fmt.Errorf("encode negotiation: %w", err)
	}
	if err := ch.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
		return fmt.Errorf("write negotiation: %w", err)
	}

	msg, err := wsconn.ReadBinary(ch)
	if err != nil {
		return fmt.Errorf("read negotiation: %w", err)
	}
	neg, err := txsocks5.NewNegotiationReplyFrom(bytes.NewReader(msg))
	if err != nil {
		return fmt.Errorf("read negotiation: %w", err)
	}
	if neg.Method != txsocks5.MethodNone {
		return fmt.Errorf("unsupported negotiation method: %d", neg.Method)
	}
	return nil
}

// ClientConnect sends a CONNECT request for address and waits for the reply.
func ClientConnect(ch wsconn.Channel, address string) error {
	atyp, dstAddr, dstPort, err := txsocks5.ParseAddress(address)
	if err != nil {
		return fmt.Errorf("parse address: %w", err)
	}
	if atyp == txsocks5.ATYPDomain {
		dstAddr = dstAddr[1:]
	}

	var buf bytes.Buffer
	if _, err := txsocks5.NewRequest(txsocks5.CmdConnect, atyp, dstAddr, dstPort).WriteTo(&buf); err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	if err := ch.WriteMessage(websocket.BinaryMessage, buf.Bytes()); err != nil {
		return fmt.Errorf("write request: %w", err)
	}

	msg, err := wsconn.ReadBinary(ch)
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	rep, err := txsocks5.NewReplyFrom(bytes.NewReader(msg))
	if err != nil {
		return fmt.Errorf("read reply: %w", err)
	}
	if rep.Rep != txsocks5.RepSuccess {
		return fmt.Errorf("%w: reply 0x%02x", ErrRejected, rep.Rep)
	}
	return nil
}
