package cdpnet

// Discovery defaults, matching the remote debugging port browsers listen on.
const (
	DefaultHost = "localhost"
	DefaultPort = 9222
)

// MaxMessageSize is the largest inbound frame accepted by the transport.
// Screenshots and heap snapshots routinely exceed the usual websocket limits.
const MaxMessageSize = 256 * 1024 * 1024

// Signal names emitted by the event router besides protocol method names.
const (
	// SignalEvent carries the full envelope of every inbound event.
	SignalEvent = "event"
)

// Standard error messages
const (
	// Connection errors
	ErrMsgConnectionClosed = "WebSocket connection closed"
	ErrMsgNotConnected     = "connection is not open"
	ErrMsgFailedToEncode   = "failed to encode message"
	ErrMsgFailedToDial     = "failed to open websocket"

	// Bootstrap errors
	ErrMsgNoTargets      = "No inspectable targets"
	ErrMsgTargetNotFound = "target not found"
	ErrMsgInvalidTarget  = "invalid target argument"

	// Surface errors
	ErrMsgUnknownDomain  = "unknown domain"
	ErrMsgUnknownCommand = "unknown command"
	ErrMsgUnknownEvent   = "unknown event"
)
