// Package discovery talks to the HTTP endpoints a debugging peer exposes
// next to its websocket endpoints: target listing, target lifecycle,
// version information and the protocol descriptor.
package discovery

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/luciancaetano/cdpnet"
	"github.com/luciancaetano/cdpnet/internal/protocol"
)

//go:embed protocol.json
var localDescriptor []byte

// maxBodySize caps discovery responses; descriptors run to a few MiB.
const maxBodySize = 64 * 1024 * 1024

// Target is one inspectable target as reported by /json/list.
type Target struct {
	ID                   string `json:"id" yaml:"id"`
	Type                 string `json:"type" yaml:"type"`
	Title                string `json:"title,omitempty" yaml:"title,omitempty"`
	URL                  string `json:"url,omitempty" yaml:"url,omitempty"`
	Description          string `json:"description,omitempty" yaml:"description,omitempty"`
	ParentID             string `json:"parentId,omitempty" yaml:"parentId,omitempty"`
	FaviconURL           string `json:"faviconUrl,omitempty" yaml:"faviconUrl,omitempty"`
	DevtoolsFrontendURL  string `json:"devtoolsFrontendUrl,omitempty" yaml:"devtoolsFrontendUrl,omitempty"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl,omitempty" yaml:"webSocketDebuggerUrl,omitempty"`
}

// VersionInfo is the document served by /json/version.
type VersionInfo struct {
	Browser              string `json:"Browser" yaml:"browser"`
	ProtocolVersion      string `json:"Protocol-Version" yaml:"protocolVersion"`
	UserAgent            string `json:"User-Agent,omitempty" yaml:"userAgent,omitempty"`
	V8Version            string `json:"V8-Version,omitempty" yaml:"v8Version,omitempty"`
	WebKitVersion        string `json:"WebKit-Version,omitempty" yaml:"webKitVersion,omitempty"`
	WebSocketDebuggerURL string `json:"webSocketDebuggerUrl,omitempty" yaml:"webSocketDebuggerUrl,omitempty"`
}

// Options locates the peer's HTTP endpoint.
type Options struct {
	Host   string
	Port   int
	Secure bool
	// UseHostName replaces the host name of every discovery URL.
	UseHostName string
	// AlterPath rewrites every URL before it is requested.
	AlterPath func(string) string
	// Local serves Protocol from the embedded descriptor.
	Local bool

	Header http.Header
	Client *http.Client
	Logger zerolog.Logger
}

// DefaultOptions targets localhost:9222 over plain HTTP.
func DefaultOptions() *Options {
	return &Options{
		Host:   cdpnet.DefaultHost,
		Port:   cdpnet.DefaultPort,
		Logger: zerolog.Nop(),
	}
}

// HTTPError reports a non-2xx discovery response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP error! status: %d", e.StatusCode)
}

// URL builds the address of path on the configured peer.
func (o *Options) URL(path string) string {
	scheme := "http"
	if o.Secure {
		scheme = "https"
	}
	host := o.Host
	if host == "" {
		host = cdpnet.DefaultHost
	}
	if o.UseHostName != "" {
		host = o.UseHostName
	}
	port := o.Port
	if port == 0 {
		port = cdpnet.DefaultPort
	}

	u := &url.URL{Scheme: scheme, Host: host + ":" + strconv.Itoa(port)}
	full := u.String() + path
	if o.AlterPath != nil {
		full = o.AlterPath(full)
	}
	return full
}

func (o *Options) client() *http.Client {
	if o.Client != nil {
		return o.Client
	}
	return http.DefaultClient
}

func (o *Options) do(ctx context.Context, method, path string) ([]byte, error) {
	target := o.URL(path)
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range o.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := o.client().Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, err
	}

	o.Logger.Debug().Str("method", method).Str("url", target).Int("status", resp.StatusCode).Msg("discovery request")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

func (o *Options) getJSON(ctx context.Context, method, path string, out any) error {
	body, err := o.do(ctx, method, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// List returns the peer's inspectable targets.
func List(ctx context.Context, opts *Options) ([]Target, error) {
	var targets []Target
	if err := opts.getJSON(ctx, http.MethodGet, "/json/list", &targets); err != nil {
		return nil, err
	}
	return targets, nil
}

// Protocol returns the peer's protocol descriptor, or the embedded one when
// opts.Local is set.
func Protocol(ctx context.Context, opts *Options) (*protocol.Descriptor, error) {
	if opts.Local {
		return LocalDescriptor()
	}
	body, err := opts.do(ctx, http.MethodGet, "/json/protocol")
	if err != nil {
		return nil, err
	}
	return protocol.ParseDescriptor(body)
}

// LocalDescriptor parses the descriptor bundled with the module. It is a
// subset covering the Browser, Target, Page, Runtime and Network domains,
// so commands outside them are only reachable through Send.
func LocalDescriptor() (*protocol.Descriptor, error) {
	return protocol.ParseDescriptor(localDescriptor)
}

// New opens a new target, navigated to pageURL when it is not empty.
func New(ctx context.Context, opts *Options, pageURL string) (*Target, error) {
	path := "/json/new"
	if pageURL != "" {
		path += "?" + pageURL
	}
	var t Target
	if err := opts.getJSON(ctx, http.MethodPut, path, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Activate brings the target with id to the foreground.
func Activate(ctx context.Context, opts *Options, id string) error {
	_, err := opts.do(ctx, http.MethodGet, "/json/activate/"+url.PathEscape(id))
	return err
}

// Close closes the target with id.
func Close(ctx context.Context, opts *Options, id string) error {
	_, err := opts.do(ctx, http.MethodGet, "/json/close/"+url.PathEscape(id))
	return err
}

// Version returns the peer's version information.
func Version(ctx context.Context, opts *Options) (*VersionInfo, error) {
	var v VersionInfo
	if err := opts.getJSON(ctx, http.MethodGet, "/json/version", &v); err != nil {
		return nil, err
	}
	return &v, nil
}
