package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/luciancaetano/cdpnet/cdp"
	"github.com/luciancaetano/cdpnet/internal/config"
	"github.com/luciancaetano/cdpnet/internal/logging"
	"github.com/luciancaetano/cdpnet/internal/output"
)

// app holds global flags and the state resolved before each command runs.
type app struct {
	cfgFile     string
	host        string
	port        int
	secure      bool
	useHostName string
	target      string
	local       bool
	outputFmt   string
	timeout     time.Duration
	logLevel    string
	noColor     bool

	cfg       *config.Config
	log       zerolog.Logger
	formatter output.Formatter
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "cdpctl",
		Short: "Inspect and drive a remote debugging peer",
		Long: `cdpctl talks to a peer exposing the DevTools remote debugging protocol
(a browser started with --remote-debugging-port, Node.js --inspect, ...).
It lists and manages targets over HTTP, describes the protocol surface,
issues commands and streams events over the websocket endpoint.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is $XDG_CONFIG_HOME/cdpctl/config.toml)")
	pf.StringVar(&a.host, "host", "", "debugging host (default \"localhost\")")
	pf.IntVar(&a.port, "port", 0, "debugging port (default 9222)")
	pf.BoolVar(&a.secure, "secure", false, "use https and wss")
	pf.StringVar(&a.useHostName, "use-host-name", "", "host name to put in discovery URLs")
	pf.StringVar(&a.target, "target", "", "target id, /path or ws:// URL (default: first page)")
	pf.BoolVar(&a.local, "local", false, "use the bundled protocol descriptor")
	pf.StringVarP(&a.outputFmt, "output", "o", "", "output format: table, json, yaml (default \"table\")")
	pf.DurationVar(&a.timeout, "timeout", 0, "timeout for discovery, connect and commands (default 30s)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: trace, debug, info, warn, error, off (default \"warn\")")
	pf.BoolVar(&a.noColor, "no-color", false, "disable colored event output")

	root.AddCommand(
		a.listCmd(),
		a.versionCmd(),
		a.newCmd(),
		a.activateCmd(),
		a.closeCmd(),
		a.protocolCmd(),
		a.callCmd(),
		a.listenCmd(),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	path := a.cfgFile
	mustExist := path != ""
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path, mustExist)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	flags := cmd.Flags()
	if flags.Changed("host") {
		cfg.Host = a.host
	}
	if flags.Changed("port") {
		cfg.Port = a.port
	}
	if flags.Changed("secure") {
		cfg.Secure = a.secure
	}
	if flags.Changed("use-host-name") {
		cfg.UseHostName = a.useHostName
	}
	if flags.Changed("target") {
		cfg.Target = a.target
	}
	if flags.Changed("local") {
		cfg.Local = a.local
	}
	if flags.Changed("output") {
		cfg.Output = a.outputFmt
	}
	if flags.Changed("timeout") {
		cfg.Timeout = a.timeout
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}

	if !output.ValidFormat(cfg.Output) {
		return fmt.Errorf("unknown output format %q", cfg.Output)
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", cfg.Timeout)
	}

	lc := logging.DefaultConfig(logging.ProfileRuntime)
	lc.Out = cmd.ErrOrStderr()
	lc.Level = zerolog.WarnLevel
	if cfg.LogLevel != "" {
		lvl, ok := logging.ParseLevel(cfg.LogLevel)
		if !ok {
			return fmt.Errorf("unknown log level %q", cfg.LogLevel)
		}
		lc.Level = lvl
	}
	logging.ApplyEnvOverrides(&lc)

	a.cfg = cfg
	a.log = logging.Component(logging.New(lc), "cdpctl")
	a.formatter = output.NewFormatter(cfg.Output)
	return nil
}

func (a *app) discoveryOptions() *cdp.DiscoveryOptions {
	opts := cdp.DefaultDiscoveryOptions()
	opts.Host = a.cfg.Host
	opts.Port = a.cfg.Port
	opts.Secure = a.cfg.Secure
	opts.UseHostName = a.cfg.UseHostName
	opts.Local = a.cfg.Local
	opts.Logger = a.log
	return opts
}

func (a *app) connectOptions() *cdp.Options {
	opts := cdp.DefaultOptions()
	opts.Host = a.cfg.Host
	opts.Port = a.cfg.Port
	opts.Secure = a.cfg.Secure
	opts.UseHostName = a.cfg.UseHostName
	opts.Local = a.cfg.Local
	opts.Logger = a.log
	if a.cfg.Target != "" {
		opts.Target = cdp.ByID(a.cfg.Target)
	}

	conn := cdp.DefaultConnConfig()
	conn.Logger = a.log
	if a.cfg.RateLimit > 0 {
		conn.Transport.RateLimitConfig = &cdp.RateLimitConfig{
			MessagesPerSecond: rate.Limit(a.cfg.RateLimit),
			Burst:             a.cfg.Burst,
			Enabled:           true,
		}
	}
	opts.Conn = conn
	return opts
}

func (a *app) connect(ctx context.Context) (*cdp.Conn, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.Timeout)
	defer cancel()

	conn, err := cdp.Connect(ctx, a.connectOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	return conn, nil
}

func (a *app) print(cmd *cobra.Command, data any) {
	fmt.Fprint(cmd.OutOrStdout(), a.formatter.Format(data))
}
