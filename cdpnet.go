package cdpnet

import (
	"context"
	"encoding/json"
)

// Event is a protocol notification pushed by the remote peer.
//
// SessionID is empty for events emitted by the top-level target.
type Event struct {
	Method    string          `json:"method"`
	Params    json.RawMessage `json:"params,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

// Commander issues protocol commands and correlates their responses.
//
// Both call shapes share the same correlation machinery: Send blocks until the
// response arrives (or ctx is done), SendAsync returns immediately and invokes
// done exactly once.
type Commander interface {
	// Send transmits method with params and waits for the matching response.
	//
	// A nil params value is sent as an empty object. sessionID may be empty to
	// address the top-level target.
	//
	// The returned error is one of:
	//   - the raw transport error if the frame could not be written
	//   - a *ProtocolError if the peer answered with an error payload
	//   - ErrConnectionClosed if the connection dropped while waiting
	//   - ctx.Err() if ctx ended first (the command itself stays pending)
	Send(ctx context.Context, method string, params any, sessionID string) (json.RawMessage, error)

	// SendAsync is the callback form of Send.
	SendAsync(method string, params any, sessionID string, done func(result json.RawMessage, err error))
}

// Subscriber attaches listeners to protocol events.
type Subscriber interface {
	// Subscribe registers handler for method. With a non-empty sessionID only
	// events tagged with that session are delivered; with an empty one every
	// event for method is delivered regardless of session.
	//
	// The returned function detaches the handler immediately.
	Subscribe(method, sessionID string, handler func(Event)) (unsubscribe func())

	// Next blocks until the next occurrence of method and detaches afterwards.
	Next(ctx context.Context, method, sessionID string) (Event, error)
}

// Client is a live connection to a debugging target.
//
// Example usage:
//
//	conn, err := cdp.Connect(ctx, cdp.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer conn.Close(ctx)
//
//	stop := conn.Subscribe("Page.loadEventFired", "", func(ev cdpnet.Event) {
//	    log.Printf("loaded: %s", ev.Params)
//	})
//	defer stop()
//
//	_, err = conn.Send(ctx, "Page.navigate", map[string]any{"url": "https://example.com"}, "")
type Client interface {
	Commander
	Subscriber

	// ID returns a unique identifier for this connection.
	ID() string

	// WebSocketURL returns the endpoint the connection was opened against.
	WebSocketURL() string

	// State reports the current connection state.
	State() ConnState

	// Close closes the connection. Closing an already closed connection
	// returns nil without notifying disconnect listeners again.
	Close(ctx context.Context) error
}

// ConnState is the lifecycle state of a connection.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}
