// Package ssh sets up the SSH client transport behind the ssh:// upstream.
//
// It loads signers from a key file or the SSH agent, verifies host keys
// against a known_hosts file with trust on first use, and runs the client
// handshake over an already dialed connection. Multiplexing "direct-tcpip"
// channels over the transport is left to the dialer package.
package ssh
