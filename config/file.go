package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML layout.  Zero values leave the
// corresponding Config field untouched.
//
//	listen:   {host: 127.0.0.1, port: 9000}
//	upstream: {host: 10.12.131.1, port: 9000, receive_first: true}
//	relay:
//	  idle_timeout: 2s
//	  connect_attempts: 3
//	intercept:
//	  inbound: [upper]
//	tunnel: {spec: ops@bastion:22, agent: true}
//	log: {verbosity: 1, file: tcptap.log}
//	metrics: {addr: "127.0.0.1:9100"}
type File struct {
	Listen    Endpoint  `yaml:"listen"`
	Upstream  Upstream  `yaml:"upstream"`
	Relay     Relay     `yaml:"relay"`
	Intercept Intercept `yaml:"intercept"`
	Tunnel    Tunnel    `yaml:"tunnel"`
	Log       Log       `yaml:"log"`
	Metrics   Metrics   `yaml:"metrics"`
}

// Endpoint is a host/port pair.
type Endpoint struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Upstream is the fixed server every session is relayed to.
type Upstream struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReceiveFirst bool   `yaml:"receive_first"`
	NoDNS        bool   `yaml:"no_dns"`
	SourceAddr   string `yaml:"source_addr"`
}

// Relay holds the per-session tuneables.
type Relay struct {
	IdleTimeout     Duration `yaml:"idle_timeout"`
	ConnectTimeout  Duration `yaml:"connect_timeout"`
	ConnectAttempts int      `yaml:"connect_attempts"`
	BreakerFailures int      `yaml:"breaker_failures"`
	BreakerCooldown Duration `yaml:"breaker_cooldown"`
	GracePeriod     Duration `yaml:"grace_period"`
	HexWidth        int      `yaml:"hex_width"`
}

// Intercept lists transform specs per direction.
type Intercept struct {
	Inbound  []string `yaml:"inbound"`
	Outbound []string `yaml:"outbound"`
}

// Tunnel configures the optional SSH jump host.
type Tunnel struct {
	Spec          string `yaml:"spec"`
	Key           string `yaml:"key"`
	Password      bool   `yaml:"password_prompt"`
	Agent         bool   `yaml:"agent"`
	StrictHostKey bool   `yaml:"strict_host_key"`
	KnownHosts    string `yaml:"known_hosts"`
}

// Log configures diagnostic logging.
type Log struct {
	Verbosity int    `yaml:"verbosity"`
	File      string `yaml:"file"`
}

// Metrics configures the HTTP exporter.
type Metrics struct {
	Addr string `yaml:"addr"`
}

// LoadFile reads the YAML file at path and overlays it onto cfg.
// Unknown keys are rejected so typos do not go unnoticed.
func LoadFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	defer f.Close()

	var fc File
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	fc.apply(cfg)
	return nil
}

func (fc *File) apply(cfg *Config) {
	setString(&cfg.LocalHost, fc.Listen.Host)
	setInt(&cfg.LocalPort, fc.Listen.Port)
	setString(&cfg.RemoteHost, fc.Upstream.Host)
	setInt(&cfg.RemotePort, fc.Upstream.Port)
	setBool(&cfg.ReceiveFirst, fc.Upstream.ReceiveFirst)
	setBool(&cfg.NoDNS, fc.Upstream.NoDNS)
	setString(&cfg.SourceAddr, fc.Upstream.SourceAddr)

	setDuration(&cfg.IdleTimeout, fc.Relay.IdleTimeout)
	setDuration(&cfg.ConnectTimeout, fc.Relay.ConnectTimeout)
	setInt(&cfg.ConnectAttempts, fc.Relay.ConnectAttempts)
	setInt(&cfg.BreakerFailures, fc.Relay.BreakerFailures)
	setDuration(&cfg.BreakerCooldown, fc.Relay.BreakerCooldown)
	setDuration(&cfg.GracePeriod, fc.Relay.GracePeriod)
	setInt(&cfg.HexWidth, fc.Relay.HexWidth)
	if len(fc.Intercept.Inbound) > 0 {
		cfg.Inbound = fc.Intercept.Inbound
	}
	if len(fc.Intercept.Outbound) > 0 {
		cfg.Outbound = fc.Intercept.Outbound
	}

	setString(&cfg.TunnelSpec, fc.Tunnel.Spec)
	setString(&cfg.SSHKeyPath, fc.Tunnel.Key)
	setBool(&cfg.SSHPassword, fc.Tunnel.Password)
	setBool(&cfg.UseSSHAgent, fc.Tunnel.Agent)
	setBool(&cfg.StrictHostKey, fc.Tunnel.StrictHostKey)
	setString(&cfg.KnownHostsPath, fc.Tunnel.KnownHosts)

	setInt(&cfg.Verbose, fc.Log.Verbosity)
	setString(&cfg.LogFile, fc.Log.File)
	setString(&cfg.MetricsAddr, fc.Metrics.Addr)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setBool(dst *bool, v bool) {
	if v {
		*dst = true
	}
}

func setDuration(dst *time.Duration, v Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
