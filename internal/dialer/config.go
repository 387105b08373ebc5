package dialer

import (
	"net"
	"time"
)

type Config struct {
	DialTimeout        time.Duration
	NegotiationTimeout time.Duration
	KeepAlive          net.KeepAliveConfig

	// DNSServer, if set, resolves domain names for direct dials instead of
	// the system resolver. A missing port defaults to 53.
	DNSServer string

	// SSHKeyPath is "agent", a private key file, or empty for password
	// authentication only.
	SSHKeyPath string
	// SSHKnownHostsPath enables trust-on-first-use host key checking. Empty
	// disables host key checking.
	SSHKnownHostsPath string
}
