package transport

import (
	"context"
	"net"

	ncerr "tcptap/internal/errors"
	"tcptap/internal/metrics"
	"tcptap/internal/retry"
	"tcptap/util"
)

// Resilient wraps a Dialer with bounded retries and an optional
// circuit breaker.  Every failed attempt counts against the breaker;
// once it opens, sessions fail immediately without touching the
// network until the cool-down lets a probe through.
type Resilient struct {
	Dialer  Dialer
	Backoff *retry.Backoff // nil = one attempt
	Breaker *retry.Breaker // nil = disabled
	Metrics *metrics.Collector
	Logger  *util.Logger
}

// Dial connects to address, retrying transient failures.  The error
// returned on failure is a *errors.NetworkError with Op "dial".
func (r *Resilient) Dial(ctx context.Context, network, address string) (net.Conn, error) {
	var conn net.Conn
	attempt := func(n int) error {
		err := r.Breaker.Execute(func() error {
			c, err := r.Dialer.Dial(ctx, network, address)
			if err != nil {
				return err
			}
			conn = c
			return nil
		})
		if err == nil {
			return nil
		}
		if ncerr.Is(err, ncerr.ErrCircuitOpen) || ctx.Err() != nil {
			return retry.Permanent(err)
		}
		if r.Logger != nil {
			r.Logger.Verbose("upstream %s: attempt %d failed: %v", address, n, err)
		}
		return err
	}

	b := r.Backoff
	if b == nil {
		b = &retry.Backoff{Attempts: 1}
	}
	if err := b.Do(ctx, attempt); err != nil {
		r.Metrics.DialFailed()
		return nil, ncerr.Wrap("dial", address, err)
	}
	return conn, nil
}

// Close closes the wrapped dialer.
func (r *Resilient) Close() error { return r.Dialer.Close() }
