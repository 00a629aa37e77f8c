package core

import (
	"io"

	"tcptap/config"
	"tcptap/internal/capability"
	ncerr "tcptap/internal/errors"
	"tcptap/internal/intercept"
	"tcptap/internal/metrics"
	"tcptap/internal/retry"
	"tcptap/internal/transport"
	"tcptap/tunnel"
	"tcptap/util"
)

// Build constructs the relay listener from cfg.  out is the
// observability stream shared by every session; it should be safe for
// concurrent use (see util.LockedWriter).
func Build(cfg *config.Config, logger *util.Logger, out io.Writer, m *metrics.Collector) (*ListenMode, error) {
	if err := cfg.ApplyTunnelSpec(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	upstream, err := cfg.UpstreamAddr()
	if err != nil {
		return nil, &ncerr.ConfigError{Field: "remote-host", Value: cfg.RemoteHost, Message: err.Error()}
	}

	pipeline, err := buildPipeline(cfg)
	if err != nil {
		return nil, err
	}

	return &ListenMode{
		Address:      cfg.ListenAddr(),
		Upstream:     upstream,
		ReceiveFirst: cfg.ReceiveFirst,
		Pipeline:     pipeline,
		Capability: &capability.Relay{
			Dialer:      buildDialer(cfg, logger, m),
			IdleTimeout: cfg.IdleTimeout,
			HexWidth:    cfg.HexWidth,
			Metrics:     m,
		},
		Out:         out,
		Logger:      logger,
		Metrics:     m,
		GracePeriod: cfg.GracePeriod,
	}, nil
}

// ── helpers ──────────────────────────────────────────────────────────

func buildPipeline(cfg *config.Config) (*intercept.Pipeline, error) {
	in, err := intercept.ParseChain(cfg.Inbound)
	if err != nil {
		return nil, &ncerr.ConfigError{
			Field:   "inbound",
			Value:   cfg.Inbound,
			Message: err.Error(),
			Hint:    "transforms: identity, upper, lower, drop, replace:OLD=NEW",
		}
	}
	out, err := intercept.ParseChain(cfg.Outbound)
	if err != nil {
		return nil, &ncerr.ConfigError{
			Field:   "outbound",
			Value:   cfg.Outbound,
			Message: err.Error(),
			Hint:    "transforms: identity, upper, lower, drop, replace:OLD=NEW",
		}
	}
	return intercept.New(intercept.WithInbound(in), intercept.WithOutbound(out)), nil
}

// buildDialer creates the upstream dialer: plain TCP or an SSH jump
// host, wrapped with retries and the optional circuit breaker.
func buildDialer(cfg *config.Config, logger *util.Logger, m *metrics.Collector) transport.Dialer {
	var base transport.Dialer = &transport.TCPDialer{Timeout: cfg.ConnectTimeout, LocalAddr: cfg.SourceAddr}
	if cfg.TunnelEnabled {
		base = transport.NewSSHDialer(&tunnel.SSHConfig{
			User:          cfg.TunnelUser,
			Host:          cfg.TunnelHost,
			Port:          cfg.TunnelPort,
			KeyPath:       cfg.SSHKeyPath,
			PromptPass:    cfg.SSHPassword,
			UseAgent:      cfg.UseSSHAgent,
			StrictHostKey: cfg.StrictHostKey,
			KnownHosts:    cfg.KnownHostsPath,
			ConnTimeout:   cfg.ConnectTimeout,
		}, logger)
	}

	breaker := retry.NewBreaker(cfg.BreakerFailures, cfg.BreakerCooldown, func(from, to retry.State) {
		logger.Warn("upstream circuit breaker %s → %s", from, to)
	})

	return &transport.Resilient{
		Dialer:  base,
		Backoff: retry.NewBackoff(cfg.ConnectAttempts),
		Breaker: breaker,
		Metrics: m,
		Logger:  logger,
	}
}
