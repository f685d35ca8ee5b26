package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/luciancaetano/cdpnet"
)

const maxPayloadSize = cdpnet.MaxMessageSize

var emptyParams = json.RawMessage("{}")

// Request is the envelope transmitted for every command.
type Request struct {
	ID        int64  `json:"id"`
	Method    string `json:"method"`
	SessionID string `json:"sessionId,omitempty"`
	Params    any    `json:"params"`
}

// ErrorPayload is the error member of a failed response.
type ErrorPayload struct {
	Code    int             `json:"code,omitempty"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Response converts the payload to its public form. Peers send data as a
// string; anything else is kept as raw JSON text.
func (p *ErrorPayload) Response() cdpnet.ErrorResponse {
	resp := cdpnet.ErrorResponse{Code: p.Code, Message: p.Message}
	if len(p.Data) == 0 || string(p.Data) == "null" {
		return resp
	}
	var s string
	if err := json.Unmarshal(p.Data, &s); err == nil {
		resp.Data = s
	} else {
		resp.Data = string(p.Data)
	}
	return resp
}

// Kind classifies an inbound message.
type Kind int

const (
	KindUnknown Kind = iota
	KindResponse
	KindEvent
)

// Message is any inbound frame. Responses carry ID and either Result or
// Error; events carry Method, Params and optionally SessionID.
type Message struct {
	ID        int64           `json:"id,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *ErrorPayload   `json:"error,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
}

// Kind reports whether m is a response, an event or neither. A zero ID
// counts as absent since command identifiers start at 1.
func (m *Message) Kind() Kind {
	switch {
	case m.ID != 0:
		return KindResponse
	case m.Method != "":
		return KindEvent
	default:
		return KindUnknown
	}
}

// ResultOrEmpty returns the result payload, or an empty object when the
// peer omitted it.
func (m *Message) ResultOrEmpty() json.RawMessage {
	if len(m.Result) == 0 || string(m.Result) == "null" {
		return emptyParams
	}
	return m.Result
}

// Event converts an event frame to its public form.
func (m *Message) Event() cdpnet.Event {
	return cdpnet.Event{Method: m.Method, Params: m.Params, SessionID: m.SessionID}
}

// Encode serializes req. Nil params are sent as an empty object.
func Encode(req Request) ([]byte, error) {
	if req.Method == "" {
		return nil, errors.New("method is required")
	}
	if req.Params == nil {
		req.Params = emptyParams
	}

	out, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if len(out) > maxPayloadSize {
		return nil, fmt.Errorf("payload size %d exceeds maximum %d bytes", len(out), maxPayloadSize)
	}
	return out, nil
}

// Decode parses one inbound frame.
func Decode(data []byte) (Message, error) {
	if len(data) == 0 {
		return Message{}, errors.New("data too short")
	}
	if len(data) > maxPayloadSize {
		return Message{}, fmt.Errorf("payload size %d exceeds maximum %d bytes", len(data), maxPayloadSize)
	}

	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
