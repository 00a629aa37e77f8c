package util

import (
	"errors"
	"io"
	"net"
	"sync"
	"syscall"
)

// LockedWriter serialises writes to an underlying writer.  The relay
// hands each annotated dump to Write as a single block, so concurrent
// sessions sharing stdout never interleave mid-table.
type LockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewLockedWriter wraps w.
func NewLockedWriter(w io.Writer) *LockedWriter {
	return &LockedWriter{w: w}
}

// Write forwards p to the wrapped writer under the lock.
func (lw *LockedWriter) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	return lw.w.Write(p)
}

// IsHarmless returns true for errors that signal a peer or local close
// rather than a fault: EOF, use of a closed connection, a closed pipe,
// and connection resets seen while tearing down.
func IsHarmless(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}

// IsReset reports whether err is a connection reset or broken pipe.
func IsReset(err error) bool {
	return errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.EPIPE)
}

// CloseQuietly closes c, ignoring a nil closer and the close error.
func CloseQuietly(c io.Closer) {
	if c == nil {
		return
	}
	_ = c.Close()
}
