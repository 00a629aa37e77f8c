// Package capability defines what happens over an accepted client
// connection.  A Capability operates on a Session rather than a raw
// net.Conn, which keeps it testable and decoupled from how the
// connection was accepted or how the upstream is reached.
package capability

import (
	"context"

	"tcptap/internal/session"
)

// Capability handles a single client session.
type Capability interface {
	// Handle runs the capability against the given session.  It
	// blocks until the session ends or the context is cancelled, and
	// always leaves the session closed.
	Handle(ctx context.Context, sess *session.Session) error
}
