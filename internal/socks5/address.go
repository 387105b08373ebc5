package socks5

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net/netip"
	"strconv"
	"unicode/utf8"

	txsocks5 "github.com/txthinking/socks5"
)

// Address is a decoded CONNECT destination.
type Address struct {
	// Type is the SOCKS5 address type octet it was decoded from.
	Type byte
	// IP is set for ATYPIPv4 and ATYPIPv6.
	IP netip.Addr
	// Host is set for ATYPDomain.
	Host string
	Port uint16
}

// String returns the address in a form accepted by net.Dial.
func (a Address) String() string {
	if a.Type == txsocks5.ATYPDomain {
		return a.Host + ":" + strconv.Itoa(int(a.Port))
	}
	return netip.AddrPortFrom(a.IP, a.Port).String()
}

// DecodeAddress parses the ATYP, DST.ADDR and DST.PORT fields of a request.
// b must hold exactly those fields; trailing or missing bytes make the
// request malformed.
func DecodeAddress(b []byte) (Address, error) {
	if len(b) == 0 {
		return Address{}, fmt.Errorf("%w: missing address type", ErrMalformedRequest)
	}

	atyp, rest := b[0], b[1:]
	switch atyp {
	case txsocks5.ATYPIPv4:
		if len(rest) != 4+2 {
			return Address{}, fmt.Errorf("%w: ipv4 address length %d", ErrMalformedRequest, len(rest))
		}
		ip := netip.AddrFrom4([4]byte(rest[:4]))
		return Address{Type: atyp, IP: ip, Port: binary.BigEndian.Uint16(rest[4:])}, nil

	case txsocks5.ATYPDomain:
		if len(rest) == 0 {
			return Address{}, fmt.Errorf("%w: missing domain length", ErrMalformedRequest)
		}
		n := int(rest[0])
		if len(rest) != 1+n+2 {
			return Address{}, fmt.Errorf("%w: domain address length %d, want %d", ErrMalformedRequest, len(rest), 1+n+2)
		}
		name := rest[1 : 1+n]
		if n == 0 || !utf8.Valid(name) {
			return Address{}, fmt.Errorf("%w: invalid domain name", ErrMalformedRequest)
		}
		return Address{Type: atyp, Host: string(name), Port: binary.BigEndian.Uint16(rest[1+n:])}, nil

	case txsocks5.ATYPIPv6:
		if len(rest) != 16+2 {
			return Address{}, fmt.Errorf("%w: ipv6 address length %d", ErrMalformedRequest, len(rest))
		}
		ip := netip.AddrFrom16([16]byte(rest[:16]))
		return Address{Type: atyp, IP: ip, Port: binary.BigEndian.Uint16(rest[16:])}, nil

	default:
		return Address{}, fmt.Errorf("%w: 0x%02x", ErrUnsupportedAddressType, atyp)
	}
}

// EncodeAddress renders a host:port string as ATYP, DST.ADDR and DST.PORT.
// IP literals are encoded as IPv4 or IPv6, anything else as a domain name.
func EncodeAddress(address string) ([]byte, error) {
	atyp, addr, port, err := txsocks5.ParseAddress(address)
	if err != nil {
		return nil, fmt.Errorf("parse address %q: %w", address, err)
	}
	if atyp == txsocks5.ATYPDomain && len(addr) > 256 {
		return nil, fmt.Errorf("parse address %q: domain name too long", address)
	}

	var buf bytes.Buffer
	buf.WriteByte(atyp)
	buf.Write(addr)
	buf.Write(port)
	return buf.Bytes(), nil
}
