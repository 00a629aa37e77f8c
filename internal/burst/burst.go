// Package burst frames an unbounded byte stream into bursts: all the
// data one peer sends before it goes quiet for an idle timeout or
// closes its side.
//
// The end of a burst is a result, not an error.  Read reports why the
// burst ended (timeout, close, or a genuine I/O failure) alongside the
// bytes, and leaves it to the caller to decide whether a failure ends
// the session.
package burst

import (
	"errors"
	"io"
	"net"
	"os"
	"time"

	"tcptap/util"
)

// DefaultIdleTimeout is how long Read waits for more data before it
// considers the burst complete.  Raise it for high-latency links.
const DefaultIdleTimeout = 5 * time.Second

// Conn is the subset of net.Conn that Read needs.
type Conn interface {
	io.Reader
	SetReadDeadline(t time.Time) error
}

// End says why a burst stopped.
type End int

const (
	// EndTimeout means no data arrived within the idle timeout.
	EndTimeout End = iota
	// EndClosed means the peer closed or reset its side.
	EndClosed
	// EndFailed means a read failed for another reason; see Burst.Err.
	EndFailed
)

func (e End) String() string {
	switch e {
	case EndTimeout:
		return "timeout"
	case EndClosed:
		return "closed"
	case EndFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Burst is the data read by one call to Read.
type Burst struct {
	Data []byte
	End  End
	Err  error // set only when End == EndFailed
}

// Len returns the number of bytes in the burst.
func (b Burst) Len() int { return len(b.Data) }

// Empty reports whether the burst carried no data.
func (b Burst) Empty() bool { return len(b.Data) == 0 }

// Read accumulates chunks from conn until the peer closes or stays
// silent for idle.  The deadline is re-armed before every chunk, so a
// peer that keeps trickling data extends the burst.
func Read(conn Conn, idle time.Duration) Burst {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}

	buf := util.GetBuf()
	defer util.PutBuf(buf)
	chunk := (*buf)[:util.ChunkSize]

	var data []byte
	for {
		if err := conn.SetReadDeadline(time.Now().Add(idle)); err != nil {
			return finish(data, err)
		}

		n, err := conn.Read(chunk)
		if n > 0 {
			data = append(data, chunk[:n]...)
		}
		if err != nil {
			return finish(data, err)
		}
		if n == 0 {
			return Burst{Data: data, End: EndClosed}
		}
	}
}

func finish(data []byte, err error) Burst {
	switch {
	case isTimeout(err):
		return Burst{Data: data, End: EndTimeout}
	case util.IsHarmless(err), util.IsReset(err):
		return Burst{Data: data, End: EndClosed}
	default:
		return Burst{Data: data, End: EndFailed, Err: err}
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
