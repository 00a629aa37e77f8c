// Package cmd wires up the CLI flags and starts the relay listener.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"tcptap/config"
	"tcptap/internal/core"
	ncerr "tcptap/internal/errors"
	"tcptap/internal/logging"
	"tcptap/internal/metrics"
	"tcptap/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X tcptap/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// options are the flags that are not Config fields.
type options struct {
	configPath  string
	dryRun      bool
	showVersion bool
	showHelp    bool
}

// Execute parses args and runs the relay until ctx is cancelled.
func Execute(ctx context.Context, args []string) error {
	return run(ctx, args, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	// First pass: find --config (and --help/--version) so the file can
	// be loaded underneath env vars and flags.
	var opts options
	fs := newFlagSet(config.Default(), &opts, stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if opts.showHelp || len(args) == 0 {
		printUsage(fs, stderr)
		return nil
	}
	if opts.showVersion {
		fmt.Fprintf(stdout, "tcptap %s\n", version)
		return nil
	}

	// ── layered configuration ────────────────────────────────────
	cfg := config.Default()
	if opts.configPath != "" {
		if err := config.LoadFile(opts.configPath, cfg); err != nil {
			return err
		}
	}
	config.LoadFromEnv(cfg)

	// pflag's count flags reset their target, so keep the layered
	// verbosity unless -v was given.
	verbose := cfg.Verbose
	fs = newFlagSet(cfg, &opts, stderr)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if !fs.Changed("verbose") {
		cfg.Verbose = verbose
	}
	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}

	// ── build components ─────────────────────────────────────────
	logger, cleanup := logging.Setup(logging.Config{
		Verbosity: cfg.Verbose,
		File:      cfg.LogFile,
		Stderr:    stderr,
	})
	defer cleanup()

	m := metrics.New()
	out := util.NewLockedWriter(stdout)

	mode, err := core.Build(cfg, logger, out, m)
	if err != nil {
		return err
	}

	if opts.dryRun {
		fmt.Fprintf(stdout, "configuration OK: %s → %s (receive-first=%v)\n",
			mode.Address, mode.Upstream, mode.ReceiveFirst)
		return nil
	}

	if cfg.MetricsAddr != "" {
		if _, err := metrics.Serve(ctx, cfg.MetricsAddr, m, logger); err != nil {
			return err
		}
	}

	err = mode.Run(ctx)
	var ne *ncerr.NetworkError
	if errors.As(err, &ne) && ne.Op == "listen" {
		fmt.Fprintf(out, "[!!] Failed to listen on %s\n", mode.Address)
		fmt.Fprintln(out, "[!!] Check for other listening sockets or correct permissions.")
	}
	if err == nil {
		logger.Verbose("shut down: %s", m.JSON())
	}
	return err
}

// newFlagSet binds every flag to cfg, using cfg's current values as
// the defaults so that unset flags leave file and env values alone.
func newFlagSet(cfg *config.Config, opts *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("tcptap", flag.ContinueOnError)
	fs.SetOutput(stderr)

	// ── relay ────────────────────────────────────────────────────
	fs.DurationVarP(&cfg.IdleTimeout, "idle-timeout", "i", cfg.IdleTimeout, "Quiet period that ends a burst")
	fs.DurationVar(&cfg.ConnectTimeout, "connect-timeout", cfg.ConnectTimeout, "Upstream dial timeout")
	fs.IntVar(&cfg.ConnectAttempts, "connect-attempts", cfg.ConnectAttempts, "Upstream dial attempts per session")
	fs.IntVar(&cfg.BreakerFailures, "breaker-failures", cfg.BreakerFailures, "Consecutive dial failures that open the circuit breaker (0 = off)")
	fs.DurationVar(&cfg.BreakerCooldown, "breaker-cooldown", cfg.BreakerCooldown, "How long an open breaker rejects dials")
	fs.DurationVar(&cfg.GracePeriod, "grace-period", cfg.GracePeriod, "How long shutdown waits for sessions")
	fs.IntVarP(&cfg.HexWidth, "hex-width", "x", cfg.HexWidth, "Bytes per hex dump row")
	fs.BoolVarP(&cfg.NoDNS, "no-dns", "n", cfg.NoDNS, "Numeric-only upstream host, no DNS resolution")
	fs.StringVar(&cfg.SourceAddr, "source-addr", cfg.SourceAddr, "Local host:port the upstream connection is bound to")

	// ── interception ─────────────────────────────────────────────
	fs.StringArrayVar(&cfg.Inbound, "inbound", cfg.Inbound, "Client→upstream transform (repeatable): upper, lower, drop, replace:OLD=NEW")
	fs.StringArrayVar(&cfg.Outbound, "outbound", cfg.Outbound, "Upstream→client transform (repeatable)")

	// ── SSH tunnel ───────────────────────────────────────────────
	fs.StringVarP(&cfg.TunnelSpec, "tunnel", "T", cfg.TunnelSpec, "Reach the upstream through SSH jump host [user@]host[:port]")
	fs.StringVar(&cfg.SSHKeyPath, "ssh-key", cfg.SSHKeyPath, "SSH private key file")
	fs.BoolVar(&cfg.SSHPassword, "ssh-password", cfg.SSHPassword, "Prompt for SSH password")
	fs.BoolVar(&cfg.UseSSHAgent, "ssh-agent", cfg.UseSSHAgent, "Use SSH agent")
	fs.BoolVar(&cfg.StrictHostKey, "strict-hostkey", cfg.StrictHostKey, "Verify SSH host keys")
	fs.StringVar(&cfg.KnownHostsPath, "known-hosts", cfg.KnownHostsPath, "Custom known_hosts path")

	// ── output ───────────────────────────────────────────────────
	fs.CountVarP(&cfg.Verbose, "verbose", "v", "Increase verbosity (repeatable)")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "Also write diagnostic logs to this rotated file")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve /metrics and /stats on this address")

	fs.StringVarP(&opts.configPath, "config", "c", opts.configPath, "YAML configuration file")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Validate configuration and exit")
	fs.BoolVar(&opts.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&opts.showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs, stderr) }
	return fs
}

// ── helpers ──────────────────────────────────────────────────────────

// parsePositional reads <localhost> <localport> <remotehost>
// <remoteport> [receive_first].  No positional arguments at all is
// allowed when the endpoints come from --config or TCPTAP_* variables.
func parsePositional(cfg *config.Config, args []string) error {
	switch len(args) {
	case 0:
		return nil
	case 4, 5:
	default:
		return &ncerr.ConfigError{
			Field:   "args",
			Value:   len(args),
			Message: "expected 4 or 5 positional arguments",
			Hint:    "usage: tcptap <localhost> <localport> <remotehost> <remoteport> [receive_first]",
		}
	}

	localPort, err := config.ParsePort(args[1])
	if err != nil {
		return &ncerr.ConfigError{Field: "local-port", Value: args[1], Message: err.Error()}
	}
	remotePort, err := config.ParsePort(args[3])
	if err != nil {
		return &ncerr.ConfigError{Field: "remote-port", Value: args[3], Message: err.Error()}
	}

	cfg.LocalHost = args[0]
	cfg.LocalPort = localPort
	cfg.RemoteHost = args[2]
	cfg.RemotePort = remotePort
	if len(args) == 5 {
		cfg.ReceiveFirst = config.ParseReceiveFirst(args[4])
	}
	return nil
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, `tcptap – intercepting TCP relay v%s

Relays every client of <localhost>:<localport> to one fixed upstream,
dumping each burst of traffic in hex and optionally rewriting it.

Usage:
  tcptap [options] <localhost> <localport> <remotehost> <remoteport> [receive_first]
  tcptap [options] --config tcptap.yml

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(w, `
Examples:
  tcptap 127.0.0.1 9000 10.12.131.1 9000 True      Upstream speaks first
  tcptap 127.0.0.1 2121 ftp.example.com 21 True     Watch an FTP login
  tcptap --inbound upper 0.0.0.0 8080 10.0.0.5 80   Uppercase requests
  tcptap -T ops@bastion 127.0.0.1 5432 db 5432      Upstream behind SSH
`)
}
