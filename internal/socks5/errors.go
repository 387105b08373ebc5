package socks5

import (
	"errors"
)

var (
	// ErrMalformedRequest reports a greeting or request that does not
	// follow the SOCKS5 framing. No reply is sent for it.
	ErrMalformedRequest = errors.New("socks5: malformed request")

	// ErrUnsupportedCommand reports a request for anything but CONNECT.
	ErrUnsupportedCommand = errors.New("socks5: unsupported command")

	// ErrUnsupportedAddressType reports an unknown ATYP octet.
	ErrUnsupportedAddressType = errors.New("socks5: unsupported address type")

	// ErrConnectFailed reports that the destination could not be dialed.
	ErrConnectFailed = errors.New("socks5: connect failed")

	// ErrRejected is returned by ClientHandshake when the server answers
	// the request with a non-success reply.
	ErrRejected = errors.New("socks5: request rejected")
)

// Outcome labels for handshake results.
const (
	OutcomeConnect                = "connect"
	OutcomeUnsupportedCommand     = "unsupported_command"
	OutcomeUnsupportedAddressType = "unsupported_address_type"
	OutcomeMalformedRequest       = "malformed_request"
	OutcomeConnectFailed          = "connect_failed"
	OutcomeTransportError         = "transport_error"
)

// Outcome classifies an error returned by Handshake or Connect. A nil error
// is a successful CONNECT.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeConnect
	case errors.Is(err, ErrUnsupportedCommand):
		return OutcomeUnsupportedCommand
	case errors.Is(err, ErrUnsupportedAddressType):
		return OutcomeUnsupportedAddressType
	case errors.Is(err, ErrMalformedRequest):
		return OutcomeMalformedRequest
	case errors.Is(err, ErrConnectFailed):
		return OutcomeConnectFailed
	default:
		return OutcomeTransportError
	}
}
