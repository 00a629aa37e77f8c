// Package transport opens the upstream side of a relay session.  How
// the bytes reach the upstream (plain TCP, or a direct-tcpip channel
// through an SSH jump host) is independent of what the relay does with
// them, which is the capability layer's job.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound connections to the upstream server.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer
	// (e.g. an SSH client).  Stateless dialers return nil.
	Close() error
}
