// Package config defines the runtime configuration for tcptap and the
// parsers for its positional arguments and tunnel argument.
//
// Values are resolved in this order (highest priority first):
//  1. CLI flags (cmd/root.go)
//  2. TCPTAP_* environment variables (loader.go)
//  3. The YAML file named by --config (file.go)
//  4. Built-in defaults (Default)
package config

import (
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	ncerr "tcptap/internal/errors"
	"tcptap/util"
)

// Config holds every tuneable for one relay listener.
type Config struct {
	// ── Endpoints ────────────────────────────────────────────────────
	LocalHost    string
	LocalPort    int
	RemoteHost   string
	RemotePort   int
	ReceiveFirst bool
	NoDNS        bool
	SourceAddr   string // optional host:port the upstream dial binds to

	// ── Relay ────────────────────────────────────────────────────────
	IdleTimeout     time.Duration
	ConnectTimeout  time.Duration
	ConnectAttempts int
	BreakerFailures int // 0 disables the circuit breaker
	BreakerCooldown time.Duration
	GracePeriod     time.Duration
	HexWidth        int
	Inbound         []string // transform specs, applied in order
	Outbound        []string

	// ── SSH tunnel ───────────────────────────────────────────────────
	TunnelSpec     string // raw user@host[:port] from -T
	TunnelEnabled  bool
	TunnelUser     string
	TunnelHost     string
	TunnelPort     int
	SSHKeyPath     string
	SSHPassword    bool // true → prompt interactively
	UseSSHAgent    bool
	StrictHostKey  bool
	KnownHostsPath string

	// ── Output ───────────────────────────────────────────────────────
	Verbose     int
	LogFile     string
	MetricsAddr string
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		IdleTimeout:     DefaultIdleTimeout,
		ConnectTimeout:  DefaultConnTimeout,
		ConnectAttempts: DefaultConnectAttempts,
		BreakerCooldown: DefaultBreakerCooldown,
		GracePeriod:     DefaultGracePeriod,
		HexWidth:        DefaultHexWidth,
	}
}

// ListenAddr returns the local bind address.
func (c *Config) ListenAddr() string { return util.FormatAddr(c.LocalHost, c.LocalPort) }

// UpstreamAddr returns the fixed upstream address, rejecting hostnames
// when DNS is disabled.
func (c *Config) UpstreamAddr() (string, error) {
	return util.ResolveAddr(c.RemoteHost, c.RemotePort, c.NoDNS)
}

// ── Positional-argument parsers ──────────────────────────────────────

// ParsePort parses a TCP port number in 1-65535.
func ParsePort(s string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid port %q", s)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("port %d out of range 1-65535", port)
	}
	return port, nil
}

// ParseReceiveFirst interprets the receive_first argument.  Anything
// strconv.ParseBool understands is accepted; otherwise any value
// containing "True" enables the flag and everything else disables it.
func ParseReceiveFirst(s string) bool {
	if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
		return b
	}
	return strings.Contains(s, "True")
}

// ── Tunnel-spec parser ───────────────────────────────────────────────

// tunnelRe matches [user@]host[:port].
var tunnelRe = regexp.MustCompile(`^(?:([^@]+)@)?([^:]+)(?::(\d+))?$`)

// ParseTunnelSpec extracts user, host, and port from a string such as
// "admin@bastion.example.com:2222".  Port defaults to 22.
func ParseTunnelSpec(spec string) (user, host string, port int, err error) {
	m := tunnelRe.FindStringSubmatch(spec)
	if m == nil {
		return "", "", 0, fmt.Errorf("invalid tunnel spec %q – expected [user@]host[:port]", spec)
	}
	user = m[1]
	host = m[2]
	port = DefaultSSHPort
	if m[3] != "" {
		port, err = strconv.Atoi(m[3])
		if err != nil || port < 1 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid tunnel port %q", m[3])
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("tunnel host is required")
	}
	return user, host, port, nil
}

// ApplyTunnelSpec parses TunnelSpec, if set, into the tunnel fields.
func (c *Config) ApplyTunnelSpec() error {
	if c.TunnelSpec == "" {
		return nil
	}
	user, host, port, err := ParseTunnelSpec(c.TunnelSpec)
	if err != nil {
		return &ncerr.ConfigError{
			Field:   "tunnel",
			Value:   c.TunnelSpec,
			Message: err.Error(),
			Hint:    "use -T user@host[:port]",
		}
	}
	c.TunnelEnabled = true
	c.TunnelUser = user
	c.TunnelHost = host
	c.TunnelPort = port
	return nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Errors are *errors.ConfigError values carrying a hint.
func (c *Config) Validate() error {
	if c.LocalHost == "" {
		return &ncerr.ConfigError{
			Field:   "local-host",
			Message: "local bind host is required",
			Hint:    "usage: tcptap <localhost> <localport> <remotehost> <remoteport> [receive_first]",
		}
	}
	if c.LocalPort < 1 || c.LocalPort > 65535 {
		return &ncerr.ConfigError{
			Field:   "local-port",
			Value:   c.LocalPort,
			Message: "must be in 1-65535",
		}
	}
	if c.RemoteHost == "" {
		return &ncerr.ConfigError{
			Field:   "remote-host",
			Message: "upstream host is required",
			Hint:    "example: tcptap 127.0.0.1 9000 10.12.131.1 9000 True",
		}
	}
	if c.RemotePort < 1 || c.RemotePort > 65535 {
		return &ncerr.ConfigError{
			Field:   "remote-port",
			Value:   c.RemotePort,
			Message: "must be in 1-65535",
		}
	}
	if c.NoDNS && net.ParseIP(c.RemoteHost) == nil {
		return &ncerr.ConfigError{
			Field:   "remote-host",
			Value:   c.RemoteHost,
			Message: "not a numeric IP address",
			Hint:    "DNS is disabled with -n; pass an IP or drop -n",
		}
	}
	if c.SourceAddr != "" {
		if _, _, err := net.SplitHostPort(c.SourceAddr); err != nil {
			return &ncerr.ConfigError{
				Field:   "source-addr",
				Value:   c.SourceAddr,
				Message: "not a host:port address",
				Hint:    "use port 0 to let the kernel pick, e.g. 10.0.0.5:0",
			}
		}
		if c.TunnelEnabled {
			return &ncerr.ConfigError{
				Field:   "source-addr",
				Value:   c.SourceAddr,
				Message: "cannot be combined with an SSH tunnel",
				Hint:    "the jump host opens the upstream connection",
			}
		}
	}
	if c.IdleTimeout <= 0 {
		return &ncerr.ConfigError{
			Field:   "idle-timeout",
			Value:   c.IdleTimeout,
			Message: "must be positive",
		}
	}
	if c.ConnectAttempts < 1 {
		return &ncerr.ConfigError{
			Field:   "connect-attempts",
			Value:   c.ConnectAttempts,
			Message: "must be at least 1",
		}
	}
	if c.BreakerFailures < 0 {
		return &ncerr.ConfigError{
			Field:   "breaker-failures",
			Value:   c.BreakerFailures,
			Message: "must not be negative",
			Hint:    "use 0 to disable the circuit breaker",
		}
	}
	if c.HexWidth < 1 || c.HexWidth > 64 {
		return &ncerr.ConfigError{
			Field:   "hex-width",
			Value:   c.HexWidth,
			Message: "must be in 1-64",
		}
	}
	if c.TunnelEnabled && c.TunnelHost == "" {
		return &ncerr.ConfigError{
			Field:   "tunnel",
			Message: "tunnel host is required",
			Hint:    "use -T user@host[:port]",
		}
	}
	return nil
}
