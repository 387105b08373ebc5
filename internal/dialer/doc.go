package dialer

// Package dialer provides outbound dialing implementations used by wsconduit.
//
// Dialers implement a small interface (DialContext) and are used by the
// tunnel endpoint and the local SOCKS5 listener to establish outbound
// connections directly, via an upstream HTTP CONNECT, SOCKS5 or SSH proxy,
// or through a remote wsconduit tunnel endpoint over WebSocket.
