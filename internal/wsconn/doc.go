// Package wsconn adapts a message-framed WebSocket channel to a byte stream.
//
// Conn implements net.Conn on top of a Channel so the generic bidirectional
// copy in internal/proxy can relay it to a TCP connection. Each Write becomes
// exactly one binary message; reads deliver message payloads in order,
// buffering whatever does not fit in the caller's slice.
package wsconn
