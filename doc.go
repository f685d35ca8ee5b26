// Package cdpnet is a client for the DevTools remote debugging protocol and
// compatible peers (Chromium based browsers, Node.js --inspect, ...).
//
// The root package holds the contracts shared by every layer: the Event and
// ProtocolError values, the sentinel errors and the Commander, Subscriber and
// Client interfaces. Most programs use the cdp package, which connects to a
// peer and returns a *cdp.Conn implementing Client.
//
// # Quick Start
//
//	import (
//	    "github.com/luciancaetano/cdpnet"
//	    "github.com/luciancaetano/cdpnet/cdp"
//	)
//
//	conn, err := cdp.Connect(ctx, cdp.DefaultOptions()) // localhost:9222, first page
//	if err != nil {
//	    return err
//	}
//	defer conn.Close(ctx)
//
//	// Commands generated from the peer's protocol descriptor
//	page := conn.Domain("Page")
//	page.Command("enable").Call(ctx, nil, "")
//
//	// Events, optionally scoped to a session
//	page.On("loadEventFired", func(ev cdpnet.Event) {
//	    log.Printf("loaded: %s", ev.Params)
//	})
//
//	// Raw commands work whether or not the descriptor lists them
//	res, err := conn.Send(ctx, "Runtime.evaluate", map[string]any{"expression": "1+1"}, "")
//
// # Wire Format
//
// Every message is one JSON object in one websocket text frame:
//
//	-> {"id": 1, "method": "Page.navigate", "sessionId": "S", "params": {...}}
//	<- {"id": 1, "result": {...}}
//	<- {"id": 1, "error": {"code": -32000, "message": "...", "data": "..."}}
//	<- {"method": "Page.loadEventFired", "sessionId": "S", "params": {...}}
//
// Command ids start at 1 and increase monotonically for the lifetime of a
// connection. Responses are matched to commands by id in any order; a
// response carrying both fields is treated as an error. Inbound frames are
// accepted up to MaxMessageSize and compression is never negotiated.
//
// # Events
//
// Each inbound event is delivered under three keys, in this order: the
// catch-all SignalEvent, its method name, and "method.sessionId" when the
// event carries a session. Subscribing with a session id therefore sees only
// that session's events; subscribing without one sees all of them.
// Handlers run one at a time on a dedicated goroutine, in arrival order,
// and may issue commands or wait for a later event with Next.
//
// # Errors
//
// Send returns one of:
//
//   - the transport's write error, unchanged
//   - *ProtocolError when the peer answered with an error payload
//   - ErrConnectionClosed when the connection closed before the answer
//   - ErrNotConnected when the connection was not open
//
// Closing a connection fails every outstanding command with
// ErrConnectionClosed and notifies OnDisconnect listeners once.
//
// # Rate Limiting
//
// Outbound commands are unthrottled by default. A token bucket can be
// enabled per connection:
//
//	cfg := cdp.DefaultConnConfig()
//	cfg.Transport.RateLimitConfig = cdp.DefaultRateLimitConfig() // 100/s, burst 200
//	opts := cdp.DefaultOptions()
//	opts.Conn = cfg
//
// # Thread Safety
//
// All exported methods of a connection are safe for concurrent use.
// Commands issued concurrently are written in id order.
package cdpnet
