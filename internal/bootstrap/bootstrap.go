// Package bootstrap turns connection options into an open, bound
// connection: it resolves the target's debugger URL, rewrites it onto the
// configured host, obtains the protocol descriptor and opens the transport.
package bootstrap

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/luciancaetano/cdpnet"
	"github.com/luciancaetano/cdpnet/internal/discovery"
	"github.com/luciancaetano/cdpnet/internal/protocol"
	"github.com/luciancaetano/cdpnet/internal/rpc"
)

// Options configures Connect.
type Options struct {
	Host   string
	Port   int
	Secure bool
	// UseHostName replaces the host name of discovery URLs.
	UseHostName string
	// AlterPath rewrites discovery URLs and the final debugger URL.
	AlterPath func(string) string

	// Protocol, when set, is bound instead of fetching a descriptor.
	Protocol *protocol.Descriptor
	// Local binds the embedded descriptor instead of fetching one.
	Local bool

	Target Target

	// Conn configures the connection; nil uses rpc.DefaultConfig with Logger.
	Conn       *rpc.Config
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// DefaultOptions returns options for a peer on localhost:9222.
func DefaultOptions() *Options {
	return &Options{
		Host:   cdpnet.DefaultHost,
		Port:   cdpnet.DefaultPort,
		Logger: zerolog.Nop(),
	}
}

func (o *Options) withDefaults() *Options {
	out := *o
	if out.Host == "" {
		out.Host = cdpnet.DefaultHost
	}
	if out.Port == 0 {
		out.Port = cdpnet.DefaultPort
	}
	if out.AlterPath == nil {
		out.AlterPath = func(s string) string { return s }
	}
	return &out
}

// Discovery returns the discovery options for the configured host.
func (o *Options) Discovery() *discovery.Options {
	o = o.withDefaults()
	return &discovery.Options{
		Host:        o.Host,
		Port:        o.Port,
		Secure:      o.Secure,
		UseHostName: o.UseHostName,
		AlterPath:   o.AlterPath,
		Local:       o.Local,
		Client:      o.HTTPClient,
		Logger:      o.Logger,
	}
}

// Connect resolves the target, binds the descriptor and opens the
// connection. On failure nothing is left open.
func Connect(ctx context.Context, opts *Options) (*rpc.Conn, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	opts = opts.withDefaults()
	log := opts.Logger.With().Str("component", "bootstrap").Logger()

	dopts := opts.Discovery()
	raw, err := ResolveURL(ctx, opts, dopts)
	if err != nil {
		return nil, err
	}

	endpoint, host, port, err := Endpoint(raw, opts)
	if err != nil {
		return nil, err
	}
	dopts.Host = host
	dopts.Port = port
	log.Debug().Str("target", opts.Target.String()).Str("url", endpoint).Msg("resolved debugger endpoint")

	d, err := fetchDescriptor(ctx, opts, dopts)
	if err != nil {
		return nil, err
	}

	cfg := opts.Conn
	if cfg == nil {
		cfg = rpc.DefaultConfig()
		cfg.Logger = opts.Logger
	}

	conn := rpc.NewConn(endpoint, cfg)
	conn.Bind(d)
	if err := conn.Open(ctx); err != nil {
		return nil, err
	}
	log.Info().Str("url", endpoint).Int("domains", len(d.Domains)).Msg("connected")
	return conn, nil
}

// ResolveURL returns the raw debugger URL opts.Target designates.
func ResolveURL(ctx context.Context, opts *Options, dopts *discovery.Options) (string, error) {
	opts = opts.withDefaults()
	t := opts.Target

	switch t.kind {
	case kindID:
		idOrURL := t.id
		if strings.HasPrefix(idOrURL, "/") {
			idOrURL = "ws://" + net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)) + idOrURL
		}
		if hasWebSocketScheme(idOrURL) {
			return idOrURL, nil
		}

		targets, err := discovery.List(ctx, dopts)
		if err != nil {
			return "", err
		}
		for _, target := range targets {
			if target.ID == idOrURL {
				return debuggerURL(target)
			}
		}
		return "", fmt.Errorf("%w: %q", cdpnet.ErrTargetNotFound, idOrURL)

	case kindTarget:
		return debuggerURL(t.target)

	case kindSelector:
		if t.selector == nil {
			return "", fmt.Errorf("%w: nil selector", cdpnet.ErrInvalidTarget)
		}
		targets, err := discovery.List(ctx, dopts)
		if err != nil {
			return "", err
		}
		sel, err := t.selector(targets)
		if err != nil {
			return "", err
		}
		target, err := sel.resolve(targets)
		if err != nil {
			return "", err
		}
		return debuggerURL(target)

	default:
		targets, err := discovery.List(ctx, dopts)
		if err != nil {
			return "", err
		}
		target, err := DefaultTarget(targets)
		if err != nil {
			return "", err
		}
		return target.WebSocketDebuggerURL, nil
	}
}

// Endpoint rebuilds raw as ws://host:port/path, where the port falls back
// to the configured one, then applies AlterPath and the Secure upgrade. It
// also returns the host and port so descriptor discovery targets the same
// peer.
func Endpoint(raw string, opts *Options) (string, string, int, error) {
	opts = opts.withDefaults()

	u, err := url.Parse(raw)
	if err != nil {
		return "", "", 0, fmt.Errorf("%w: %v", cdpnet.ErrInvalidTarget, err)
	}
	host := u.Hostname()
	if host == "" {
		return "", "", 0, fmt.Errorf("%w: %q has no host", cdpnet.ErrInvalidTarget, raw)
	}

	port := opts.Port
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", "", 0, fmt.Errorf("%w: bad port in %q", cdpnet.ErrInvalidTarget, raw)
		}
	}

	endpoint := opts.AlterPath("ws://" + net.JoinHostPort(host, strconv.Itoa(port)) + u.EscapedPath())
	if opts.Secure && strings.HasPrefix(strings.ToLower(endpoint), "ws:") {
		endpoint = "wss:" + endpoint[len("ws:"):]
	}
	return endpoint, host, port, nil
}

func fetchDescriptor(ctx context.Context, opts *Options, dopts *discovery.Options) (*protocol.Descriptor, error) {
	if opts.Protocol != nil {
		return opts.Protocol, nil
	}
	d, err := discovery.Protocol(ctx, dopts)
	if err != nil {
		return nil, fmt.Errorf("fetch protocol descriptor: %w", err)
	}
	return d, nil
}
