// Package cdp is the public entry point: it connects to a debugging peer,
// exposes the discovery helpers and re-exports the types callers handle.
package cdp

import (
	"context"

	"github.com/luciancaetano/cdpnet/internal/api"
	"github.com/luciancaetano/cdpnet/internal/bootstrap"
	"github.com/luciancaetano/cdpnet/internal/discovery"
	"github.com/luciancaetano/cdpnet/internal/protocol"
	"github.com/luciancaetano/cdpnet/internal/rpc"
	"github.com/luciancaetano/cdpnet/internal/websocket"
)

type Conn = rpc.Conn
type ConnConfig = rpc.Config
type Options = bootstrap.Options
type Target = bootstrap.Target
type Selection = bootstrap.Selection
type Selector = bootstrap.Selector

type TargetInfo = discovery.Target
type VersionInfo = discovery.VersionInfo
type DiscoveryOptions = discovery.Options
type HTTPError = discovery.HTTPError

type Descriptor = protocol.Descriptor
type API = api.API
type Domain = api.Domain
type Command = api.Command
type Event = api.Event
type TypeHelper = api.TypeHelper

type TransportConfig = websocket.TransportConfig
type RateLimitConfig = websocket.RateLimitConfig

// DefaultOptions returns options for a peer on localhost:9222 that connect
// to the first page target.
func DefaultOptions() *Options {
	return bootstrap.DefaultOptions()
}

// Connect resolves the target, binds its protocol descriptor and opens the
// connection.
//
// Example:
//
//	conn, err := cdp.Connect(ctx, cdp.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer conn.Close(ctx)
//
//	conn.Domain("Page").On("loadEventFired", func(ev cdpnet.Event) {
//	    log.Printf("loaded: %s", ev.Params)
//	})
//	_, err = conn.Domain("Page").Command("navigate").Call(ctx, map[string]string{"url": "https://example.com"}, "")
func Connect(ctx context.Context, opts *Options) (*Conn, error) {
	return bootstrap.Connect(ctx, opts)
}

// ConnectAsync runs Connect in the background and reports the outcome to
// done exactly once.
func ConnectAsync(ctx context.Context, opts *Options, done func(*Conn, error)) {
	go func() {
		done(bootstrap.Connect(ctx, opts))
	}()
}

// NewConn returns an unopened connection to a known debugger URL. Bind a
// descriptor and call Open to use it.
func NewConn(url string, cfg *ConnConfig) *Conn {
	return rpc.NewConn(url, cfg)
}

// DefaultConnConfig returns the default connection configuration.
func DefaultConnConfig() *ConnConfig {
	return rpc.DefaultConfig()
}

// ByID targets an id, a path on the configured host or a ws:// URL.
func ByID(idOrURL string) Target {
	return bootstrap.ByID(idOrURL)
}

// ByTarget targets a listed target.
func ByTarget(t TargetInfo) Target {
	return bootstrap.ByTarget(t)
}

// BySelector targets whichever listed target fn selects.
func BySelector(fn Selector) Target {
	return bootstrap.BySelector(fn)
}

func Index(i int) Selection {
	return bootstrap.Index(i)
}

func Pick(t TargetInfo) Selection {
	return bootstrap.Pick(t)
}

// DefaultDiscoveryOptions returns discovery options for localhost:9222.
func DefaultDiscoveryOptions() *DiscoveryOptions {
	return discovery.DefaultOptions()
}

func discoveryOptions(opts *DiscoveryOptions) *DiscoveryOptions {
	if opts == nil {
		return discovery.DefaultOptions()
	}
	return opts
}

// List returns the peer's inspectable targets.
func List(ctx context.Context, opts *DiscoveryOptions) ([]TargetInfo, error) {
	return discovery.List(ctx, discoveryOptions(opts))
}

// Protocol returns the peer's protocol descriptor, or the bundled one when
// opts.Local is set.
func Protocol(ctx context.Context, opts *DiscoveryOptions) (*Descriptor, error) {
	return discovery.Protocol(ctx, discoveryOptions(opts))
}

// New opens a new target navigated to url.
func New(ctx context.Context, opts *DiscoveryOptions, url string) (*TargetInfo, error) {
	return discovery.New(ctx, discoveryOptions(opts), url)
}

// Activate brings a target to the foreground.
func Activate(ctx context.Context, opts *DiscoveryOptions, id string) error {
	return discovery.Activate(ctx, discoveryOptions(opts), id)
}

// Close closes a target.
func Close(ctx context.Context, opts *DiscoveryOptions, id string) error {
	return discovery.Close(ctx, discoveryOptions(opts), id)
}

// Version returns the peer's version information.
func Version(ctx context.Context, opts *DiscoveryOptions) (*VersionInfo, error) {
	return discovery.Version(ctx, discoveryOptions(opts))
}

// ParseDescriptor decodes a protocol descriptor document.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	return protocol.ParseDescriptor(data)
}

// DefaultRateLimitConfig returns an outbound limit of 100 commands per
// second with a burst of 200.
func DefaultRateLimitConfig() *RateLimitConfig {
	return websocket.DefaultRateLimitConfig()
}

// NoRateLimit returns a configuration with rate limiting disabled
func NoRateLimit() *RateLimitConfig {
	return websocket.NoRateLimit()
}
