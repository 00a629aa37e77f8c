// Package retry guards the upstream dial: a bounded exponential
// backoff for transient refusals and a circuit breaker that fails
// sessions fast while the upstream is known to be down.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// ── Permanent errors ─────────────────────────────────────────────────

// PermanentError marks an error that another attempt cannot fix.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return e.Err.Error() }
func (e *PermanentError) Unwrap() error { return e.Err }

// Permanent wraps err so that [Backoff.Do] returns it without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

// IsPermanent reports whether err has been marked as permanent.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// ── Backoff ──────────────────────────────────────────────────────────

// Backoff retries an operation with exponentially growing delays.
type Backoff struct {
	// Attempts is the total number of tries including the first.
	// Values below 1 mean a single try.
	Attempts int
	// InitialDelay is the wait before the second try (default 200ms).
	InitialDelay time.Duration
	// MaxDelay caps the wait between tries (default 5s).
	MaxDelay time.Duration
	// Multiplier grows the delay after every failure (default 2).
	Multiplier float64
	// Jitter randomises each wait by ±25%.
	Jitter bool
}

// NewBackoff returns a jittered backoff that makes attempts tries.
func NewBackoff(attempts int) *Backoff {
	return &Backoff{
		Attempts:     attempts,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2,
		Jitter:       true,
	}
}

// Do calls fn until it succeeds, returns a [Permanent] error, the
// attempt budget runs out, or ctx is done.  attempt is 1-based.
func (b *Backoff) Do(ctx context.Context, fn func(attempt int) error) error {
	attempts := b.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := b.InitialDelay
	if delay <= 0 {
		delay = 200 * time.Millisecond
	}
	maxDelay := b.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 5 * time.Second
	}
	mult := b.Multiplier
	if mult <= 1 {
		mult = 2
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		if IsPermanent(err) {
			return errors.Unwrap(err)
		}
		if attempt == attempts {
			break
		}

		wait := delay
		if b.Jitter {
			wait = jitter(delay)
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("retry cancelled after %d attempt(s): %w", attempt, ctx.Err())
		case <-t.C:
		}

		delay = time.Duration(math.Min(float64(delay)*mult, float64(maxDelay)))
	}

	if attempts == 1 {
		return err
	}
	return fmt.Errorf("gave up after %d attempts: %w", attempts, err)
}

// jitter returns d ±25%, never below one millisecond.
func jitter(d time.Duration) time.Duration {
	quarter := float64(d) / 4
	v := float64(d) + (rand.Float64()*2-1)*quarter
	return time.Duration(math.Max(v, float64(time.Millisecond)))
}
