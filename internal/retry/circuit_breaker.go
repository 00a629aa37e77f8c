package retry

import (
	"fmt"
	"sync"
	"time"

	ncerr "tcptap/internal/errors"
)

// State is the breaker position.
type State int

const (
	// StateClosed lets every call through.
	StateClosed State = iota
	// StateOpen rejects calls until the cool-down expires.
	StateOpen
	// StateHalfOpen lets a probe through to test recovery.
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// Breaker trips after Threshold consecutive failures.  While open it
// rejects calls with an error wrapping [ncerr.ErrCircuitOpen]; after
// Cooldown one probe is allowed through, and its outcome closes or
// re-opens the breaker.
//
// A nil *Breaker passes every call straight through.
type Breaker struct {
	threshold int
	cooldown  time.Duration
	onChange  func(from, to State)
	now       func() time.Time

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
}

// NewBreaker returns a breaker, or nil when threshold < 1 (disabled).
// onChange, if set, runs under the breaker lock on every transition.
func NewBreaker(threshold int, cooldown time.Duration, onChange func(from, to State)) *Breaker {
	if threshold < 1 {
		return nil
	}
	if cooldown <= 0 {
		cooldown = 10 * time.Second
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		onChange:  onChange,
		now:       time.Now,
	}
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(fn func() error) error {
	if b == nil {
		return fn()
	}
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// State returns the current position.
func (b *Breaker) State() State {
	if b == nil {
		return StateClosed
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Failures returns the consecutive failure count.
func (b *Breaker) Failures() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		since := b.now().Sub(b.openedAt)
		if since < b.cooldown {
			return fmt.Errorf("%w after %d consecutive failures, retry in %v",
				ncerr.ErrCircuitOpen, b.failures, (b.cooldown - since).Truncate(time.Millisecond))
		}
		b.transition(StateHalfOpen)
	case StateHalfOpen:
		// one probe at a time; concurrent callers wait for its verdict
		return fmt.Errorf("%w: probe in flight", ncerr.ErrCircuitOpen)
	}
	return nil
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err == nil {
		b.failures = 0
		b.transition(StateClosed)
		return
	}
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.threshold {
		b.openedAt = b.now()
		b.transition(StateOpen)
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	if b.onChange != nil {
		b.onChange(from, to)
	}
}
