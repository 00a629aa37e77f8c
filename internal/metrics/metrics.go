// Package metrics provides lock-free counters for relay activity and
// an HTTP exporter for them.
//
// All methods are safe for concurrent use.  A nil *Collector is a
// valid no-op receiver, so callers never need to nil-check.
package metrics

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime metrics for one listener.
// A nil Collector is safe to use; all methods become no-ops.
type Collector struct {
	sessionsActive atomic.Int64
	sessionsTotal  atomic.Int64

	burstsInbound  atomic.Int64
	burstsOutbound atomic.Int64
	bytesInbound   atomic.Int64 // client → upstream, as forwarded
	bytesOutbound  atomic.Int64 // upstream → client, as forwarded

	dialFailures      atomic.Int64
	transformFailures atomic.Int64
	errorsTotal       atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// ── Session metrics ──────────────────────────────────────────────────

// SessionOpened increments both the active and total counters.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionClosed decrements the active session counter.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)
}

// ActiveSessions returns the number of sessions currently relaying.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// TotalSessions returns the lifetime session count.
func (c *Collector) TotalSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsTotal.Load()
}

// ── Traffic metrics ──────────────────────────────────────────────────

// InboundBurst records a client → upstream burst of n forwarded bytes.
func (c *Collector) InboundBurst(n int) {
	if c == nil {
		return
	}
	c.burstsInbound.Add(1)
	c.bytesInbound.Add(int64(n))
}

// OutboundBurst records an upstream → client burst of n forwarded bytes.
func (c *Collector) OutboundBurst(n int) {
	if c == nil {
		return
	}
	c.burstsOutbound.Add(1)
	c.bytesOutbound.Add(int64(n))
}

// BytesInbound returns total bytes forwarded to upstreams.
func (c *Collector) BytesInbound() int64 {
	if c == nil {
		return 0
	}
	return c.bytesInbound.Load()
}

// BytesOutbound returns total bytes forwarded to clients.
func (c *Collector) BytesOutbound() int64 {
	if c == nil {
		return 0
	}
	return c.bytesOutbound.Load()
}

// ── Failure metrics ──────────────────────────────────────────────────

// DialFailed records an upstream connect failure.
func (c *Collector) DialFailed() {
	if c == nil {
		return
	}
	c.dialFailures.Add(1)
}

// TransformFailed records a failing interception transform.
func (c *Collector) TransformFailed() {
	if c == nil {
		return
	}
	c.transformFailures.Add(1)
}

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// ErrorCount returns the total number of session errors recorded.
func (c *Collector) ErrorCount() int64 {
	if c == nil {
		return 0
	}
	return c.errorsTotal.Load()
}

// ── Snapshot ─────────────────────────────────────────────────────────

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime            string `json:"uptime"`
	SessionsActive    int64  `json:"sessions_active"`
	SessionsTotal     int64  `json:"sessions_total"`
	BurstsInbound     int64  `json:"bursts_inbound"`
	BurstsOutbound    int64  `json:"bursts_outbound"`
	BytesInbound      int64  `json:"bytes_inbound"`
	BytesOutbound     int64  `json:"bytes_outbound"`
	DialFailures      int64  `json:"dial_failures"`
	TransformFailures int64  `json:"transform_failures"`
	ErrorsTotal       int64  `json:"errors_total"`
	LastError         string `json:"last_error,omitempty"`
	LastErrorMessage  string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:            time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsActive:    c.sessionsActive.Load(),
		SessionsTotal:     c.sessionsTotal.Load(),
		BurstsInbound:     c.burstsInbound.Load(),
		BurstsOutbound:    c.burstsOutbound.Load(),
		BytesInbound:      c.bytesInbound.Load(),
		BytesOutbound:     c.bytesOutbound.Load(),
		DialFailures:      c.dialFailures.Load(),
		TransformFailures: c.transformFailures.Load(),
		ErrorsTotal:       c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}

// JSON returns the snapshot as an indented JSON string.
func (c *Collector) JSON() string {
	s := c.Snapshot()
	data, _ := json.MarshalIndent(s, "", "  ")
	return string(data)
}
