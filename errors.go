package cdpnet

import (
	"errors"
	"strings"
)

var (
	// ErrConnectionClosed is delivered to every outstanding command when the
	// transport closes.
	ErrConnectionClosed = errors.New(ErrMsgConnectionClosed)

	// ErrNotConnected is returned when a command is issued while the
	// connection is not open (still connecting, closing or closed).
	ErrNotConnected = errors.New(ErrMsgNotConnected)

	ErrNoTargets      = errors.New(ErrMsgNoTargets)
	ErrTargetNotFound = errors.New(ErrMsgTargetNotFound)
	ErrInvalidTarget  = errors.New(ErrMsgInvalidTarget)

	ErrUnknownDomain  = errors.New(ErrMsgUnknownDomain)
	ErrUnknownCommand = errors.New(ErrMsgUnknownCommand)
	ErrUnknownEvent   = errors.New(ErrMsgUnknownEvent)
)

// Request identifies the command a ProtocolError answers.
type Request struct {
	Method    string `json:"method"`
	Params    any    `json:"params,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// ErrorResponse is the error payload returned by the peer.
type ErrorResponse struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
	Data    string `json:"data,omitempty"`
}

// ProtocolError is a structured error reported by the peer for an otherwise
// successful round trip. It is never used for transport failures.
type ProtocolError struct {
	Request  Request
	Response ErrorResponse
}

func (e *ProtocolError) Error() string {
	var b strings.Builder
	b.WriteString(e.Response.Message)
	if e.Response.Data != "" {
		b.WriteString(" (")
		b.WriteString(e.Response.Data)
		b.WriteString(")")
	}
	return b.String()
}
