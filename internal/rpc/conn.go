package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/luciancaetano/cdpnet"
	"github.com/luciancaetano/cdpnet/internal/api"
	"github.com/luciancaetano/cdpnet/internal/protocol"
	"github.com/luciancaetano/cdpnet/internal/websocket"
)

const (
	signalDisconnect = "disconnect"
	signalReady      = "ready"
)

// Transport is the part of *websocket.Transport a Conn depends on.
type Transport interface {
	Enqueue(ctx context.Context, data []byte, onWritten func(error)) error
	Close(ctx context.Context) error
	Done() <-chan struct{}
}

// DialFunc opens a Transport. cfg carries the callbacks the Conn installs.
type DialFunc func(ctx context.Context, url string, cfg *websocket.TransportConfig) (Transport, error)

// Config configures a Conn.
type Config struct {
	Transport *websocket.TransportConfig
	Logger    zerolog.Logger
	// Dial replaces websocket.Dial; nil uses the real dialer.
	Dial DialFunc
}

func DefaultConfig() *Config {
	return &Config{
		Transport: websocket.DefaultTransportConfig(),
		Logger:    zerolog.Nop(),
	}
}

// Conn is one debugger connection: it issues commands, correlates their
// responses, routes events and carries the API surface bound from the
// peer's protocol descriptor.
type Conn struct {
	id  string
	url string
	cfg Config
	log zerolog.Logger

	state     atomic.Int32
	issueMu   sync.Mutex
	transport Transport

	engine    *Engine
	router    *Router
	lifecycle *Emitter[struct{}]
	dispatch  *dispatcher

	api atomic.Pointer[api.API]

	closed    chan struct{}
	closeOnce sync.Once
}

var _ cdpnet.Client = (*Conn)(nil)

// NewConn returns a Conn in the connecting state. Call Bind to attach an
// API surface and Open to establish the transport.
func NewConn(url string, cfg *Config) *Conn {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Transport == nil {
		cfg.Transport = websocket.DefaultTransportConfig()
	}

	c := &Conn{
		id:        uuid.New().String(),
		url:       url,
		cfg:       *cfg,
		router:    NewRouter(),
		lifecycle: NewEmitter[struct{}](),
		dispatch:  newDispatcher(),
		closed:    make(chan struct{}),
	}
	c.log = cfg.Logger.With().Str("conn_id", c.id).Logger()
	c.engine = NewEngine(c.dispatch.post, func() {
		c.dispatch.post(func() { c.lifecycle.Emit(signalReady, struct{}{}) })
	})
	c.state.Store(int32(cdpnet.StateConnecting))
	return c
}

// ID returns a unique identifier for the connection
func (c *Conn) ID() string {
	return c.id
}

// WebSocketURL returns the endpoint the connection targets
func (c *Conn) WebSocketURL() string {
	return c.url
}

// State reports the current connection state
func (c *Conn) State() cdpnet.ConnState {
	return cdpnet.ConnState(c.state.Load())
}

// Pending returns the number of commands awaiting a response.
func (c *Conn) Pending() int {
	return c.engine.Pending()
}

// Open dials the endpoint and moves the connection to the open state.
func (c *Conn) Open(ctx context.Context) error {
	if c.State() != cdpnet.StateConnecting {
		return fmt.Errorf("%s: state %s", cdpnet.ErrMsgNotConnected, c.State())
	}

	tcfg := *c.cfg.Transport
	tcfg.Logger = c.log
	tcfg.OnMessage = c.handleMessage
	tcfg.OnClose = c.handleClose

	dial := c.cfg.Dial
	if dial == nil {
		dial = func(ctx context.Context, url string, cfg *websocket.TransportConfig) (Transport, error) {
			return websocket.Dial(ctx, url, cfg)
		}
	}

	t, err := dial(ctx, c.url, &tcfg)
	if err != nil {
		c.shutdown(false)
		return err
	}

	c.issueMu.Lock()
	c.transport = t
	opened := c.state.CompareAndSwap(int32(cdpnet.StateConnecting), int32(cdpnet.StateOpen))
	c.issueMu.Unlock()

	if !opened {
		return cdpnet.ErrConnectionClosed
	}
	c.log.Debug().Str("url", c.url).Msg("connection open")
	return nil
}

// Bind builds the API surface for d and attaches it to the connection,
// replacing any previous surface.
func (c *Conn) Bind(d *protocol.Descriptor) *api.API {
	a := api.Bind(c, d)
	c.api.Store(a)
	return a
}

// API returns the bound surface, or nil before Bind.
func (c *Conn) API() *api.API {
	return c.api.Load()
}

// Protocol returns the bound descriptor, or nil before Bind.
func (c *Conn) Protocol() *protocol.Descriptor {
	if a := c.api.Load(); a != nil {
		return a.Descriptor()
	}
	return nil
}

// Domain returns the bound domain called name, or nil.
func (c *Conn) Domain(name string) *api.Domain {
	if a := c.api.Load(); a != nil {
		return a.Domain(name)
	}
	return nil
}

// Send issues method and waits for its response.
func (c *Conn) Send(ctx context.Context, method string, params any, sessionID string) (json.RawMessage, error) {
	cl := &call{
		req: cdpnet.Request{Method: method, Params: params, SessionID: sessionID},
		ch:  make(chan result, 1),
	}
	if err := c.issue(ctx, cl); err != nil {
		return nil, err
	}

	select {
	case r := <-cl.ch:
		return r.value, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// SendAsync issues method and calls done with the outcome. If the command
// cannot be issued done runs before SendAsync returns; otherwise it runs on
// the event goroutine. A nil done makes the command fire-and-forget.
func (c *Conn) SendAsync(method string, params any, sessionID string, done func(json.RawMessage, error)) {
	cl := &call{
		req: cdpnet.Request{Method: method, Params: params, SessionID: sessionID},
		cb:  done,
	}
	if err := c.issue(context.Background(), cl); err != nil && done != nil {
		done(nil, err)
	}
}

// issue registers cl and queues its frame. Holding issueMu across id
// allocation and enqueueing keeps transmission order equal to id order.
func (c *Conn) issue(ctx context.Context, cl *call) error {
	c.issueMu.Lock()
	defer c.issueMu.Unlock()

	if c.State() != cdpnet.StateOpen {
		return cdpnet.ErrNotConnected
	}

	id := c.engine.register(cl)
	data, err := protocol.Encode(protocol.Request{
		ID:        id,
		Method:    cl.req.Method,
		SessionID: cl.req.SessionID,
		Params:    cl.req.Params,
	})
	if err != nil {
		c.engine.discard(id)
		return fmt.Errorf("%s: %w", cdpnet.ErrMsgFailedToEncode, err)
	}

	err = c.transport.Enqueue(ctx, data, func(werr error) {
		if werr != nil {
			c.engine.Fail(id, werr)
		}
	})
	if err != nil {
		c.engine.discard(id)
		return err
	}

	c.log.Trace().Int64("id", id).Str("method", cl.req.Method).Str("session_id", cl.req.SessionID).Msg("command sent")
	return nil
}

// Subscribe registers handler for method, scoped to sessionID when set.
func (c *Conn) Subscribe(method, sessionID string, handler func(cdpnet.Event)) func() {
	return c.router.Subscribe(method, sessionID, handler)
}

// Next waits for the next occurrence of method. It fails with
// ErrConnectionClosed if the connection closes first. Next is served from
// the read goroutine and may be called from an event handler.
func (c *Conn) Next(ctx context.Context, method, sessionID string) (cdpnet.Event, error) {
	ch := make(chan cdpnet.Event, 1)
	off := c.router.Once(method, sessionID, func(ev cdpnet.Event) { ch <- ev })

	select {
	case ev := <-ch:
		return ev, nil
	case <-ctx.Done():
		off()
		return cdpnet.Event{}, ctx.Err()
	case <-c.closed:
		off()
		select {
		case ev := <-ch:
			return ev, nil
		default:
			return cdpnet.Event{}, cdpnet.ErrConnectionClosed
		}
	}
}

// OnEvent registers a listener for every inbound event.
func (c *Conn) OnEvent(handler func(cdpnet.Event)) func() {
	return c.router.OnEvent(handler)
}

// OnDisconnect registers fn to run once the connection has closed. It
// fires for a local Close as well as for a dropped peer, exactly once per
// connection that reached the open state.
func (c *Conn) OnDisconnect(fn func()) func() {
	return c.lifecycle.On(signalDisconnect, func(struct{}) { fn() })
}

// OnDrained registers fn to run whenever a response leaves no command
// outstanding.
func (c *Conn) OnDrained(fn func()) func() {
	return c.lifecycle.On(signalReady, func(struct{}) { fn() })
}

// Done is closed once the connection has fully closed.
func (c *Conn) Done() <-chan struct{} {
	return c.closed
}

// Close closes the connection and fails every outstanding command with
// ErrConnectionClosed. Closing a closed connection returns nil at once.
func (c *Conn) Close(ctx context.Context) error {
	c.issueMu.Lock()
	state := c.State()
	switch state {
	case cdpnet.StateConnecting:
		c.state.Store(int32(cdpnet.StateClosed))
	case cdpnet.StateOpen:
		c.state.Store(int32(cdpnet.StateClosing))
	}
	c.issueMu.Unlock()

	switch state {
	case cdpnet.StateClosed:
		return nil
	case cdpnet.StateConnecting:
		c.shutdown(false)
		return nil
	case cdpnet.StateOpen:
		return c.transport.Close(ctx)
	default:
		select {
		case <-c.closed:
		case <-ctx.Done():
			return ctx.Err()
		}
		return nil
	}
}

func (c *Conn) handleMessage(data []byte) {
	msg, err := protocol.Decode(data)
	if err != nil {
		c.log.Debug().Err(err).Msg("dropping undecodable frame")
		return
	}

	switch msg.Kind() {
	case protocol.KindResponse:
		if !c.engine.Resolve(&msg) {
			c.log.Debug().Int64("id", msg.ID).Msg("dropping response for unknown command")
		}
	case protocol.KindEvent:
		ev := msg.Event()
		// Waiters are served here so a handler blocked in Next still sees
		// the event it waits for.
		c.router.Notify(ev)
		c.dispatch.post(func() { c.router.Dispatch(ev) })
	}
}

func (c *Conn) handleClose(err error) {
	if err != nil {
		c.log.Warn().Err(err).Msg("connection lost")
	}
	c.shutdown(true)
}

// shutdown moves to closed, fails outstanding work and, for a connection
// that was open, notifies disconnect listeners once.
func (c *Conn) shutdown(wasOpen bool) {
	c.issueMu.Lock()
	c.state.Store(int32(cdpnet.StateClosed))
	c.issueMu.Unlock()

	if n := c.engine.FailAll(cdpnet.ErrConnectionClosed); n > 0 {
		c.log.Debug().Int("pending", n).Msg("failed outstanding commands")
	}

	c.closeOnce.Do(func() {
		if wasOpen {
			c.dispatch.post(func() { c.lifecycle.Emit(signalDisconnect, struct{}{}) })
		}
		c.dispatch.stop()
		close(c.closed)
	})
}
