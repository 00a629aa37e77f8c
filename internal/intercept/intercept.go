// Package intercept holds the two rewrite hooks a relay applies to
// traffic before forwarding it: inbound (client → upstream) and
// outbound (upstream → client).
//
// A Pipeline is built once before the listener starts and is then
// shared read-only by every session, so it needs no locking.
package intercept

import (
	"fmt"

	ncerr "tcptap/internal/errors"
)

// Direction identifies which way a burst is travelling.
type Direction int

const (
	// Inbound is client → upstream.
	Inbound Direction = iota
	// Outbound is upstream → client.
	Outbound
)

func (d Direction) String() string {
	switch d {
	case Inbound:
		return "inbound"
	case Outbound:
		return "outbound"
	default:
		return "unknown"
	}
}

// Transform rewrites one burst.  It must not retain or mutate its
// argument after returning; returning an empty slice forwards nothing.
type Transform func(data []byte) ([]byte, error)

// Identity returns data unchanged.
func Identity(data []byte) ([]byte, error) { return data, nil }

// Pipeline is an immutable pair of transforms.
type Pipeline struct {
	inbound  Transform
	outbound Transform
}

// Option configures a Pipeline at construction.
type Option func(*Pipeline)

// WithInbound sets the client → upstream transform.
func WithInbound(t Transform) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.inbound = t
		}
	}
}

// WithOutbound sets the upstream → client transform.
func WithOutbound(t Transform) Option {
	return func(p *Pipeline) {
		if t != nil {
			p.outbound = t
		}
	}
}

// New builds a pipeline; unset slots default to [Identity].
func New(opts ...Option) *Pipeline {
	p := &Pipeline{inbound: Identity, outbound: Identity}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Inbound runs the client → upstream transform.
func (p *Pipeline) Inbound(data []byte) ([]byte, error) {
	return p.Apply(Inbound, data)
}

// Outbound runs the upstream → client transform.
func (p *Pipeline) Outbound(data []byte) ([]byte, error) {
	return p.Apply(Outbound, data)
}

// Apply runs the transform for dir on a private copy of data, so the
// caller's bytes stay exactly as the peer sent them.  A nil Pipeline
// behaves as identity in both directions.
func (p *Pipeline) Apply(dir Direction, data []byte) (out []byte, err error) {
	if p == nil {
		return data, nil
	}
	t := p.inbound
	if dir == Outbound {
		t = p.outbound
	}

	in := append([]byte(nil), data...)

	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = &ncerr.TransformError{
				Direction: dir.String(),
				Err:       fmt.Errorf("%w: %v", ncerr.ErrTransformPanic, r),
			}
		}
	}()

	out, err = t(in)
	if err != nil {
		return nil, &ncerr.TransformError{Direction: dir.String(), Err: err}
	}
	return out, nil
}
