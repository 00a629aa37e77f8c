package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"tcptap/internal/capability"
	ncerr "tcptap/internal/errors"
	"tcptap/internal/intercept"
	"tcptap/internal/metrics"
	"tcptap/internal/session"
	"tcptap/util"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

// ListenMode accepts clients on Address and relays each one to the
// fixed Upstream in its own goroutine.  The accept loop never waits on
// a session, and session failures never stop the listener.
type ListenMode struct {
	// Address is the local host:port.  The pending-connection backlog
	// is the kernel default (somaxconn), not a bound of 5: net.Listen
	// offers no per-listener backlog setting.
	Address      string
	Upstream     string // upstream host:port
	ReceiveFirst bool
	Pipeline     *intercept.Pipeline
	Capability   capability.Capability
	Out          io.Writer // observability stream; default os.Stdout
	Logger       *util.Logger
	Metrics      *metrics.Collector

	// GracePeriod is how long shutdown waits for running sessions
	// before cancelling them.  Zero means five seconds.
	GracePeriod time.Duration
}

func (m *ListenMode) out() io.Writer {
	if m.Out != nil {
		return m.Out
	}
	return os.Stdout
}

// Run binds Address and serves until ctx is cancelled.  A bind failure
// is returned as a *errors.NetworkError with Op "listen".
func (m *ListenMode) Run(ctx context.Context) error {
	ln, err := m.Listen()
	if err != nil {
		return err
	}
	return m.Serve(ctx, ln)
}

// Listen binds Address and announces it on the observability stream.
func (m *ListenMode) Listen() (net.Listener, error) {
	ln, err := net.Listen("tcp", m.Address)
	if err != nil {
		return nil, ncerr.Wrap("listen", m.Address, err)
	}
	fmt.Fprintf(m.out(), "[*] Listening on %s\n", m.Address)
	m.Logger.Verbose("bound %s, relaying to %s (receive-first=%v)", ln.Addr(), m.Upstream, m.ReceiveFirst)
	return ln, nil
}

// Serve accepts connections on ln until ctx is cancelled, then drains
// the running sessions.  Serve closes ln.
func (m *ListenMode) Serve(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	if c, ok := m.Capability.(io.Closer); ok {
		defer c.Close()
	}

	// Sessions outlive ctx by up to GracePeriod.
	sessCtx, cancelSessions := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelSessions()

	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	var wg sync.WaitGroup
	var delay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				m.drain(&wg, cancelSessions)
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				m.drain(&wg, cancelSessions)
				return ncerr.Wrap("accept", m.Address, err)
			}

			if delay == 0 {
				delay = minAcceptDelay
			} else if delay *= 2; delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			m.Logger.Warn("accept: %v; retrying in %s", err, delay)
			m.Metrics.RecordError(err.Error())

			t := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				t.Stop()
			case <-t.C:
			}
			continue
		}
		delay = 0

		fmt.Fprintf(m.out(), "> Received incoming connection from %s\n", util.PeerString(conn.RemoteAddr()))

		sess := session.New(conn, m.Upstream, m.ReceiveFirst, m.Pipeline, m.out(), m.Logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.Capability.Handle(sessCtx, sess); err != nil {
				m.Logger.Debug("session ended: %v", err)
			}
		}()
	}
}

// drain waits up to GracePeriod for sessions to end on their own, then
// cancels the rest and waits for them to unwind.
func (m *ListenMode) drain(wg *sync.WaitGroup, cancel context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	grace := m.GracePeriod
	if grace <= 0 {
		grace = 5 * time.Second
	}

	select {
	case <-done:
		return
	case <-time.After(grace):
	}

	m.Logger.Warn("%d session(s) still open after %s; closing them", m.Metrics.ActiveSessions(), grace)
	cancel()
	<-done
}
