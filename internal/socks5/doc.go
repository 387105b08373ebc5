// Package socks5 provides the SOCKS5 handshake used by wsconduit.
//
// It covers two framings of the same protocol. Handshake, Connect and
// ClientHandshake run the greeting and CONNECT request over a message
// channel, one protocol unit per binary message. ServerNegotiateNoAuth,
// ServerReadRequest and StreamClientDial run it over a plain byte stream for
// the local listener and for upstream SOCKS5 proxies.
//
// Wire types come from github.com/txthinking/socks5; this package keeps the
// wsconduit-specific validation and error classification in one place.
package socks5
