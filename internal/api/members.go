package api

import (
	"context"
	"encoding/json"

	"github.com/luciancaetano/cdpnet"
	"github.com/luciancaetano/cdpnet/internal/protocol"
)

// Command is a callable protocol command.
type Command struct {
	Category     string                       `json:"category" yaml:"category"`
	Domain       string                       `json:"domain" yaml:"domain"`
	Name         string                       `json:"name" yaml:"name"`
	FullName     string                       `json:"fullName" yaml:"fullName"`
	Description  string                       `json:"description,omitempty" yaml:"description,omitempty"`
	Experimental bool                         `json:"experimental,omitempty" yaml:"experimental,omitempty"`
	Deprecated   bool                         `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Redirect     string                       `json:"redirect,omitempty" yaml:"redirect,omitempty"`
	Parameters   map[string]protocol.Property `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Returns      []protocol.Property          `json:"returns,omitempty" yaml:"returns,omitempty"`

	caller Caller
}

func newCommand(caller Caller, domain string, c protocol.Command) *Command {
	return &Command{
		Category:     CategoryCommand,
		Domain:       domain,
		Name:         c.Name,
		FullName:     domain + "." + c.Name,
		Description:  c.Description,
		Experimental: c.Experimental,
		Deprecated:   c.Deprecated,
		Redirect:     c.Redirect,
		Parameters:   protocol.PropertyMap(c.Parameters),
		Returns:      c.Returns,
		caller:       caller,
	}
}

// Call sends the command and waits for its result.
func (c *Command) Call(ctx context.Context, params any, sessionID string) (json.RawMessage, error) {
	return c.caller.Send(ctx, c.FullName, params, sessionID)
}

// Go sends the command and reports the outcome to done.
func (c *Command) Go(params any, sessionID string, done func(json.RawMessage, error)) {
	c.caller.SendAsync(c.FullName, params, sessionID, done)
}

// Invoke sends the command and decodes its result into out. A nil out
// discards the result.
func (c *Command) Invoke(ctx context.Context, params any, sessionID string, out any) error {
	raw, err := c.Call(ctx, params, sessionID)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(raw, out)
}

// Event is a subscribable protocol event.
type Event struct {
	Category     string                       `json:"category" yaml:"category"`
	Domain       string                       `json:"domain" yaml:"domain"`
	Name         string                       `json:"name" yaml:"name"`
	FullName     string                       `json:"fullName" yaml:"fullName"`
	Description  string                       `json:"description,omitempty" yaml:"description,omitempty"`
	Experimental bool                         `json:"experimental,omitempty" yaml:"experimental,omitempty"`
	Deprecated   bool                         `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Parameters   map[string]protocol.Property `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	caller Caller
}

func newEvent(caller Caller, domain string, e protocol.Event) *Event {
	return &Event{
		Category:     CategoryEvent,
		Domain:       domain,
		Name:         e.Name,
		FullName:     domain + "." + e.Name,
		Description:  e.Description,
		Experimental: e.Experimental,
		Deprecated:   e.Deprecated,
		Parameters:   protocol.PropertyMap(e.Parameters),
		caller:       caller,
	}
}

// Subscribe registers handler and returns its unsubscribe function. An
// empty sessionID receives the event from every session.
func (e *Event) Subscribe(sessionID string, handler func(cdpnet.Event)) func() {
	return e.caller.Subscribe(e.FullName, sessionID, handler)
}

// Next waits for the next occurrence of the event.
func (e *Event) Next(ctx context.Context, sessionID string) (cdpnet.Event, error) {
	return e.caller.Next(ctx, e.FullName, sessionID)
}

// TypeHelper describes a protocol type. It is informational only.
type TypeHelper struct {
	Category     string                       `json:"category" yaml:"category"`
	Domain       string                       `json:"domain" yaml:"domain"`
	ID           string                       `json:"id" yaml:"id"`
	FullName     string                       `json:"fullName" yaml:"fullName"`
	Description  string                       `json:"description,omitempty" yaml:"description,omitempty"`
	Type         string                       `json:"type,omitempty" yaml:"type,omitempty"`
	Experimental bool                         `json:"experimental,omitempty" yaml:"experimental,omitempty"`
	Deprecated   bool                         `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Enum         []string                     `json:"enum,omitempty" yaml:"enum,omitempty"`
	Items        *protocol.Property           `json:"items,omitempty" yaml:"items,omitempty"`
	Properties   map[string]protocol.Property `json:"properties,omitempty" yaml:"properties,omitempty"`
}

func newTypeHelper(domain string, t protocol.Type) *TypeHelper {
	h := &TypeHelper{
		Category:     CategoryType,
		Domain:       domain,
		ID:           t.ID,
		FullName:     domain + "." + t.ID,
		Description:  t.Description,
		Type:         t.Type,
		Experimental: t.Experimental,
		Deprecated:   t.Deprecated,
		Enum:         t.Enum,
		Items:        t.Items,
	}
	if t.Properties != nil {
		h.Properties = protocol.PropertyMap(t.Properties)
	}
	return h
}
