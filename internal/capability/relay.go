package capability

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"tcptap/internal/burst"
	ncerr "tcptap/internal/errors"
	"tcptap/internal/hexdump"
	"tcptap/internal/intercept"
	"tcptap/internal/metrics"
	"tcptap/internal/session"
	"tcptap/internal/transport"
)

// Relay drives one session through its lifecycle: dial the upstream,
// optionally read the upstream's greeting first, then alternate one
// client burst and one upstream burst until either side goes quiet.
// Every non-empty burst is annotated and hex-dumped to the session's
// observability stream before it is transformed and forwarded.
type Relay struct {
	Dialer      transport.Dialer
	IdleTimeout time.Duration // per-read quiet period; 0 = burst.DefaultIdleTimeout
	HexWidth    int           // 0 = hexdump.DefaultWidth
	Metrics     *metrics.Collector
}

// Handle runs the relay.  It returns nil when the session ends because
// a side went quiet or closed, and an error for dial failures, I/O
// failures and transform failures.  The session is closed on return.
func (r *Relay) Handle(ctx context.Context, sess *session.Session) error {
	r.Metrics.SessionOpened()
	defer r.Metrics.SessionClosed()
	defer sess.Close()

	sess.SetState(session.StateConnecting)
	upstream, err := r.Dialer.Dial(ctx, "tcp", sess.UpstreamAddr)
	if err != nil {
		r.emit(sess, fmt.Sprintf("[!!] Failed to connect to %s: %v\n", sess.UpstreamAddr, err))
		sess.Logger.Warn("upstream %s: %v", sess.UpstreamAddr, err)
		r.Metrics.RecordError(err.Error())
		return fmt.Errorf("session %s: %w", session.ShortID(sess.ID), err)
	}
	sess.Upstream = upstream
	sess.Logger.Verbose("connected to upstream %s", sess.UpstreamAddr)

	// Closing both sides is the only way to interrupt a pending read.
	stop := context.AfterFunc(ctx, sess.Close)
	defer stop()

	if err := r.run(sess); err != nil {
		if ctx.Err() != nil {
			sess.Logger.Verbose("session cancelled")
			return nil
		}
		// Session-fatal failures are visible at any verbosity.
		r.emit(sess, fmt.Sprintf("[!!] Session error: %v\n", err))
		sess.Logger.Error("%v", err)
		r.Metrics.RecordError(err.Error())
		return fmt.Errorf("session %s: %w", session.ShortID(sess.ID), err)
	}
	return nil
}

func (r *Relay) run(sess *session.Session) error {
	if sess.ReceiveFirst {
		sess.SetState(session.StatePrimed)
		b := r.read(sess, intercept.Outbound)
		if !b.Empty() {
			r.emit(sess, r.block(fmt.Sprintf("[<==] Received %d bytes from remote.", b.Len()), b.Data))
			out, err := r.transform(sess, intercept.Outbound, b.Data)
			if err != nil {
				return err
			}
			if len(out) > 0 {
				r.emit(sess, fmt.Sprintf("[<==] Sending %d bytes to localhost.\n", len(out)))
				if err := r.forward(sess, intercept.Outbound, out); err != nil {
					return err
				}
			}
		}
		if err := failed(b, "upstream"); err != nil {
			return err
		}
	}

	sess.SetState(session.StateRelaying)
	for {
		local := r.read(sess, intercept.Inbound)
		if !local.Empty() {
			r.emit(sess, r.block(fmt.Sprintf("[==>] Received %d bytes from localhost.", local.Len()), local.Data))
			out, err := r.transform(sess, intercept.Inbound, local.Data)
			if err != nil {
				return err
			}
			if len(out) > 0 {
				if err := r.forward(sess, intercept.Inbound, out); err != nil {
					return err
				}
				r.emit(sess, "[==>] Sent to remote.\n")
			}
		}
		if err := failed(local, "client"); err != nil {
			return err
		}

		remote := r.read(sess, intercept.Outbound)
		if !remote.Empty() {
			r.emit(sess, r.block(fmt.Sprintf("[<==] Received %d bytes from remote.", remote.Len()), remote.Data))
			out, err := r.transform(sess, intercept.Outbound, remote.Data)
			if err != nil {
				return err
			}
			if len(out) > 0 {
				if err := r.forward(sess, intercept.Outbound, out); err != nil {
					return err
				}
				r.emit(sess, "[<==] Sent to localhost.\n")
			}
		}
		if err := failed(remote, "upstream"); err != nil {
			return err
		}

		if local.Empty() || remote.Empty() {
			r.emit(sess, "[*] No more data. Closing connections.\n")
			sess.Logger.Debug("closing: client burst %d bytes (%s), upstream burst %d bytes (%s)",
				local.Len(), local.End, remote.Len(), remote.End)
			return nil
		}
	}
}

// read collects one burst from the side that produces traffic in dir.
func (r *Relay) read(sess *session.Session, dir intercept.Direction) burst.Burst {
	src := sess.Client
	if dir == intercept.Outbound {
		src = sess.Upstream
	}
	b := burst.Read(src, r.IdleTimeout)
	sess.Logger.Debug("%s burst: %d bytes, %s", dir, b.Len(), b.End)
	return b
}

func (r *Relay) transform(sess *session.Session, dir intercept.Direction, data []byte) ([]byte, error) {
	out, err := sess.Pipeline.Apply(dir, data)
	if err != nil {
		r.Metrics.TransformFailed()
		return nil, err
	}
	return out, nil
}

// forward writes data to the side that consumes traffic in dir.  An
// empty transform result forwards nothing.
func (r *Relay) forward(sess *session.Session, dir intercept.Direction, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	dst, addr := sess.Upstream, sess.UpstreamAddr
	if dir == intercept.Outbound {
		dst, addr = sess.Client, "client"
	}
	if _, err := dst.Write(data); err != nil {
		return ncerr.Wrap("write", addr, err)
	}
	if dir == intercept.Inbound {
		r.Metrics.InboundBurst(len(data))
	} else {
		r.Metrics.OutboundBurst(len(data))
	}
	return nil
}

// block renders an annotation followed by the dump of data.
func (r *Relay) block(annotation string, data []byte) string {
	var buf bytes.Buffer
	buf.WriteString(annotation)
	buf.WriteByte('\n')
	hexdump.Fprint(&buf, data, r.HexWidth) //nolint:errcheck
	return buf.String()
}

// emit writes one block to the observability stream.  Write errors are
// ignored; a broken diagnostic sink never ends a session.
func (r *Relay) emit(sess *session.Session, s string) {
	sess.Out.Write([]byte(s)) //nolint:errcheck
}

// failed turns a burst that ended in a read error into a session error.
func failed(b burst.Burst, side string) error {
	if b.End != burst.EndFailed {
		return nil
	}
	return fmt.Errorf("read %s: %w", side, b.Err)
}

// Close releases the dialer's long-lived resources (an SSH client).
func (r *Relay) Close() error { return r.Dialer.Close() }
