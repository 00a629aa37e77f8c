package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultSSHPort is the standard SSH port.
	DefaultSSHPort = 22

	// DefaultIdleTimeout is how long a side may stay quiet before its
	// burst is considered complete.
	DefaultIdleTimeout = 5 * time.Second

	// DefaultConnTimeout bounds each upstream (or SSH gateway) dial.
	DefaultConnTimeout = 10 * time.Second

	// DefaultConnectAttempts is one try, no retry.
	DefaultConnectAttempts = 1

	// DefaultBreakerCooldown is how long an open breaker rejects dials
	// before letting a probe through.
	DefaultBreakerCooldown = 10 * time.Second

	// DefaultGracePeriod is how long shutdown waits for sessions to
	// finish.
	DefaultGracePeriod = 5 * time.Second

	// DefaultHexWidth is the number of bytes per dump row.
	DefaultHexWidth = 16
)
