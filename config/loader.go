package config

// loader.go - configuration loading from environment variables.

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the TCPTAP_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  Durations accept Go
// duration strings ("750ms", "2s") or a bare number of seconds.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("TCPTAP_LOCAL_HOST"); v != "" {
		cfg.LocalHost = v
	}
	if v := envInt("TCPTAP_LOCAL_PORT"); v > 0 {
		cfg.LocalPort = v
	}
	if v := os.Getenv("TCPTAP_REMOTE_HOST"); v != "" {
		cfg.RemoteHost = v
	}
	if v := envInt("TCPTAP_REMOTE_PORT"); v > 0 {
		cfg.RemotePort = v
	}
	if v := os.Getenv("TCPTAP_RECEIVE_FIRST"); v != "" {
		cfg.ReceiveFirst = ParseReceiveFirst(v)
	}
	if envBool("TCPTAP_NO_DNS") {
		cfg.NoDNS = true
	}
	if v := os.Getenv("TCPTAP_SOURCE_ADDR"); v != "" {
		cfg.SourceAddr = v
	}

	// Relay
	if v := envDuration("TCPTAP_IDLE_TIMEOUT"); v > 0 {
		cfg.IdleTimeout = v
	}
	if v := envDuration("TCPTAP_CONNECT_TIMEOUT"); v > 0 {
		cfg.ConnectTimeout = v
	}
	if v := envInt("TCPTAP_CONNECT_ATTEMPTS"); v > 0 {
		cfg.ConnectAttempts = v
	}
	if v := envInt("TCPTAP_BREAKER_FAILURES"); v > 0 {
		cfg.BreakerFailures = v
	}
	if v := envInt("TCPTAP_HEX_WIDTH"); v > 0 {
		cfg.HexWidth = v
	}
	if v := envList("TCPTAP_INBOUND"); len(v) > 0 {
		cfg.Inbound = v
	}
	if v := envList("TCPTAP_OUTBOUND"); len(v) > 0 {
		cfg.Outbound = v
	}

	// SSH tunnel
	if v := os.Getenv("TCPTAP_TUNNEL"); v != "" {
		cfg.TunnelSpec = v
	}
	if v := os.Getenv("TCPTAP_SSH_KEY"); v != "" {
		cfg.SSHKeyPath = v
	}
	if envBool("TCPTAP_SSH_PASSWORD") {
		cfg.SSHPassword = true
	}
	if envBool("TCPTAP_SSH_AGENT") {
		cfg.UseSSHAgent = true
	}
	if envBool("TCPTAP_STRICT_HOSTKEY") {
		cfg.StrictHostKey = true
	}
	if v := os.Getenv("TCPTAP_KNOWN_HOSTS"); v != "" {
		cfg.KnownHostsPath = v
	}

	// Output
	if v := envInt("TCPTAP_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
	if v := os.Getenv("TCPTAP_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
	if v := os.Getenv("TCPTAP_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envDuration(key string) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second
	}
	return 0
}

// envList splits a comma-separated value, dropping empty items.
func envList(key string) []string {
	var out []string
	for _, s := range strings.Split(os.Getenv(key), ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
