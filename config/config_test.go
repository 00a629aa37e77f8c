package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	ncerr "tcptap/internal/errors"
)

func validConfig() *Config {
	c := Default()
	c.LocalHost = "127.0.0.1"
	c.LocalPort = 9000
	c.RemoteHost = "10.12.131.1"
	c.RemotePort = 9000
	return c
}

func TestDefault(t *testing.T) {
	c := Default()
	if c.IdleTimeout != 5*time.Second {
		t.Errorf("IdleTimeout = %v, want 5s", c.IdleTimeout)
	}
	if c.ConnectAttempts != 1 {
		t.Errorf("ConnectAttempts = %d, want 1", c.ConnectAttempts)
	}
	if c.HexWidth != 16 {
		t.Errorf("HexWidth = %d, want 16", c.HexWidth)
	}
	if c.BreakerFailures != 0 {
		t.Errorf("BreakerFailures = %d, want 0 (disabled)", c.BreakerFailures)
	}
}

func TestParsePort(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"9000", 9000, false},
		{" 80 ", 80, false},
		{"1", 1, false},
		{"65535", 65535, false},
		{"0", 0, true},
		{"65536", 0, true},
		{"-1", 0, true},
		{"http", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePort(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseReceiveFirst(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"True", true},
		{"true", true},
		{"1", true},
		{"t", true},
		{"IsTrue", true},
		{"False", false},
		{"false", false},
		{"0", false},
		{"yes", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ParseReceiveFirst(tt.in); got != tt.want {
			t.Errorf("ParseReceiveFirst(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestParseTunnelSpec(t *testing.T) {
	tests := []struct {
		spec     string
		wantUser string
		wantHost string
		wantPort int
		wantErr  bool
	}{
		{"admin@bastion:2222", "admin", "bastion", 2222, false},
		{"admin@bastion", "admin", "bastion", 22, false},
		{"bastion", "", "bastion", 22, false},
		{"user@host:0", "", "", 0, true},
		{"user@host:70000", "", "", 0, true},
		{"", "", "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.spec, func(t *testing.T) {
			user, host, port, err := ParseTunnelSpec(tt.spec)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if user != tt.wantUser || host != tt.wantHost || port != tt.wantPort {
				t.Errorf("got (%q, %q, %d), want (%q, %q, %d)",
					user, host, port, tt.wantUser, tt.wantHost, tt.wantPort)
			}
		})
	}
}

func TestApplyTunnelSpec(t *testing.T) {
	c := validConfig()
	c.TunnelSpec = "ops@gw.example.com:2200"
	if err := c.ApplyTunnelSpec(); err != nil {
		t.Fatal(err)
	}
	if !c.TunnelEnabled || c.TunnelUser != "ops" || c.TunnelHost != "gw.example.com" || c.TunnelPort != 2200 {
		t.Errorf("unexpected tunnel fields: %+v", c)
	}

	c.TunnelSpec = "bad:spec:x"
	err := c.ApplyTunnelSpec()
	var ce *ncerr.ConfigError
	if !errors.As(err, &ce) || ce.Field != "tunnel" {
		t.Errorf("expected tunnel ConfigError, got %v", err)
	}
}

func TestAddrs(t *testing.T) {
	c := validConfig()
	if got := c.ListenAddr(); got != "127.0.0.1:9000" {
		t.Errorf("ListenAddr = %q", got)
	}
	up, err := c.UpstreamAddr()
	if err != nil || up != "10.12.131.1:9000" {
		t.Errorf("UpstreamAddr = %q, %v", up, err)
	}

	c.RemoteHost = "example.com"
	c.NoDNS = true
	if _, err := c.UpstreamAddr(); err == nil {
		t.Error("expected error for hostname with NoDNS")
	}
}

func TestValidate(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
		wantHint  bool
	}{
		{"no local host", func(c *Config) { c.LocalHost = "" }, "local-host", true},
		{"bad local port", func(c *Config) { c.LocalPort = 0 }, "local-port", false},
		{"no remote host", func(c *Config) { c.RemoteHost = "" }, "remote-host", true},
		{"bad remote port", func(c *Config) { c.RemotePort = 70000 }, "remote-port", false},
		{"hostname with no-dns", func(c *Config) { c.RemoteHost = "example.com"; c.NoDNS = true }, "remote-host", true},
		{"zero idle", func(c *Config) { c.IdleTimeout = 0 }, "idle-timeout", false},
		{"zero attempts", func(c *Config) { c.ConnectAttempts = 0 }, "connect-attempts", false},
		{"negative breaker", func(c *Config) { c.BreakerFailures = -1 }, "breaker-failures", true},
		{"hex width", func(c *Config) { c.HexWidth = 0 }, "hex-width", false},
		{"tunnel without host", func(c *Config) { c.TunnelEnabled = true }, "tunnel", true},
		{"source addr without port", func(c *Config) { c.SourceAddr = "10.0.0.5" }, "source-addr", true},
		{"source addr with tunnel", func(c *Config) {
			c.SourceAddr = "10.0.0.5:0"
			c.TunnelEnabled, c.TunnelHost = true, "bastion"
		}, "source-addr", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			var ce *ncerr.ConfigError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConfigError, got %v", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ce.Field, tt.wantField)
			}
			if tt.wantHint != strings.Contains(err.Error(), "hint:") {
				t.Errorf("hint presence = %v in %q", !tt.wantHint, err.Error())
			}
		})
	}
}
