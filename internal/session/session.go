// Package session represents one relay lifetime: a client connection,
// the upstream connection opened on its behalf, and the settings the
// relay needs to drive them.
//
// A Session is owned by the single goroutine that runs its relay loop;
// nothing else reads from or writes to its connections.  Close may be
// called from another goroutine to unblock that loop.
package session

import (
	"io"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"tcptap/internal/intercept"
	"tcptap/util"
)

// State is the relay lifecycle position of a session.
type State int

const (
	StateConnecting State = iota
	StatePrimed
	StateRelaying
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StatePrimed:
		return "primed"
	case StateRelaying:
		return "relaying"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session encapsulates the runtime context for a single relayed
// client connection.
type Session struct {
	ID           string
	Client       net.Conn
	Upstream     net.Conn // nil until the upstream dial succeeds
	UpstreamAddr string
	ReceiveFirst bool
	Pipeline     *intercept.Pipeline // shared, read-only

	// Out receives the human-readable traffic annotations and dumps.
	Out    io.Writer
	Logger *util.Logger

	state     atomic.Int32
	closeOnce sync.Once
}

// New creates a Session for an accepted client connection.
func New(client net.Conn, upstreamAddr string, receiveFirst bool,
	pipeline *intercept.Pipeline, out io.Writer, logger *util.Logger) *Session {
	if out == nil {
		out = io.Discard
	}
	id := uuid.NewString()
	return &Session{
		ID:           id,
		Client:       client,
		UpstreamAddr: upstreamAddr,
		ReceiveFirst: receiveFirst,
		Pipeline:     pipeline,
		Out:          out,
		Logger:       logger.With(ShortID(id)),
	}
}

// ShortID returns the first eight characters of a session ID, enough
// to tell concurrent sessions apart in logs.
func ShortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// State returns the current lifecycle state.
func (s *Session) State() State { return State(s.state.Load()) }

// SetState moves the session to st.  Once closed, a session stays
// closed.
func (s *Session) SetState(st State) {
	for {
		cur := s.state.Load()
		if State(cur) == StateClosed || s.state.CompareAndSwap(cur, int32(st)) {
			return
		}
	}
}

// Close closes both connections.  It is safe to call more than once
// and before the upstream connection exists.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.Client != nil {
			util.CloseQuietly(s.Client)
		}
		if s.Upstream != nil {
			util.CloseQuietly(s.Upstream)
		}
		s.state.Store(int32(StateClosed))
	})
}
