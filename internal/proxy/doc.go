package proxy

// Package proxy implements wsconduit listener-side servers and helpers.
//
// It contains the WebSocket tunnel endpoint, which speaks SOCKS5 over
// upgraded WebSocket connections, the local SOCKS5 server for plain TCP
// clients, and shared connection plumbing such as keepalive listeners and
// bidirectional copy.
