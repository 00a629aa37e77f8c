package tunnel

import (
	"net"
	"os"
	"sync"
	"time"

	"tcptap/util"
)

// deadlineConn adds read-deadline support to connections that lack it.
// SSH direct-tcpip channels reject SetReadDeadline, but the burst reader
// frames traffic by idle timeout, so a pump goroutine reads ahead and
// Read waits on it with a timer instead.
//
// Read must only be called from one goroutine at a time.
type deadlineConn struct {
	net.Conn

	startOnce sync.Once
	chunks    chan readResult
	done      chan struct{}
	closeOnce sync.Once

	mu       sync.Mutex
	deadline time.Time

	pending []byte
	readErr error
}

type readResult struct {
	data []byte
	err  error
}

func newDeadlineConn(c net.Conn) *deadlineConn {
	return &deadlineConn{
		Conn:   c,
		chunks: make(chan readResult),
		done:   make(chan struct{}),
	}
}

func (c *deadlineConn) pump() {
	for {
		buf := make([]byte, util.ChunkSize)
		n, err := c.Conn.Read(buf)
		if n > 0 {
			select {
			case c.chunks <- readResult{data: buf[:n]}:
			case <-c.done:
				return
			}
		}
		if err != nil {
			select {
			case c.chunks <- readResult{err: err}:
			case <-c.done:
			}
			return
		}
	}
}

func (c *deadlineConn) Read(p []byte) (int, error) {
	c.startOnce.Do(func() { go c.pump() })

	if len(c.pending) > 0 {
		n := copy(p, c.pending)
		c.pending = c.pending[n:]
		return n, nil
	}
	if c.readErr != nil {
		return 0, c.readErr
	}

	c.mu.Lock()
	deadline := c.deadline
	c.mu.Unlock()

	var expired <-chan time.Time
	if !deadline.IsZero() {
		wait := time.Until(deadline)
		if wait <= 0 {
			return 0, os.ErrDeadlineExceeded
		}
		timer := time.NewTimer(wait)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case r := <-c.chunks:
		if r.err != nil {
			c.readErr = r.err
			return 0, r.err
		}
		n := copy(p, r.data)
		c.pending = r.data[n:]
		return n, nil
	case <-expired:
		return 0, os.ErrDeadlineExceeded
	case <-c.done:
		return 0, net.ErrClosed
	}
}

// SetReadDeadline records t; it never fails.
func (c *deadlineConn) SetReadDeadline(t time.Time) error {
	c.mu.Lock()
	c.deadline = t
	c.mu.Unlock()
	return nil
}

// SetDeadline only applies to reads; SSH channels have no write deadline.
func (c *deadlineConn) SetDeadline(t time.Time) error {
	return c.SetReadDeadline(t)
}

// SetWriteDeadline is accepted and ignored.
func (c *deadlineConn) SetWriteDeadline(time.Time) error { return nil }

func (c *deadlineConn) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	return c.Conn.Close()
}
