// Package api builds the callable surface of a protocol descriptor.
//
// Every domain command becomes a *Command, every event a *Event and every
// type a *TypeHelper. Each is reachable both through its domain
// (api.Domain("Page").Command("navigate")) and by fully qualified name
// (api.Command("Page.navigate")); both lookups return the same value.
package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/luciancaetano/cdpnet"
	"github.com/luciancaetano/cdpnet/internal/protocol"
)

// Caller is the connection machinery the surface forwards to.
type Caller interface {
	cdpnet.Commander
	cdpnet.Subscriber
}

const (
	CategoryCommand = "command"
	CategoryEvent   = "event"
	CategoryType    = "type"
)

// API is the registry produced by Bind.
type API struct {
	descriptor *protocol.Descriptor
	order      []string
	domains    map[string]*Domain
	commands   map[string]*Command
	events     map[string]*Event
	types      map[string]*TypeHelper
}

// Bind builds the surface for d, wiring every command and event to caller.
// A nil descriptor yields an empty surface.
func Bind(caller Caller, d *protocol.Descriptor) *API {
	a := &API{
		descriptor: d,
		domains:    make(map[string]*Domain),
		commands:   make(map[string]*Command),
		events:     make(map[string]*Event),
		types:      make(map[string]*TypeHelper),
	}
	if d == nil {
		return a
	}

	for _, dd := range d.Domains {
		dom := newDomain(dd)
		if _, seen := a.domains[dom.Name]; !seen {
			a.order = append(a.order, dom.Name)
		}
		a.domains[dom.Name] = dom

		for _, cmd := range dd.Commands {
			c := newCommand(caller, dom.Name, cmd)
			dom.Commands[cmd.Name] = c
			a.commands[c.FullName] = c
		}
		for _, ev := range dd.Events {
			e := newEvent(caller, dom.Name, ev)
			dom.Events[ev.Name] = e
			a.events[e.FullName] = e
		}
		for _, typ := range dd.Types {
			t := newTypeHelper(dom.Name, typ)
			dom.Types[typ.ID] = t
			a.types[t.FullName] = t
		}
	}
	return a
}

// Descriptor returns the descriptor the surface was built from.
func (a *API) Descriptor() *protocol.Descriptor {
	return a.descriptor
}

// Domain returns the domain called name, or nil.
func (a *API) Domain(name string) *Domain {
	return a.domains[name]
}

// Domains returns every domain in descriptor order.
func (a *API) Domains() []*Domain {
	out := make([]*Domain, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, a.domains[name])
	}
	return out
}

// Command looks up a command by its "Domain.command" name.
func (a *API) Command(fullName string) *Command {
	return a.commands[fullName]
}

// Event looks up an event by its "Domain.event" name.
func (a *API) Event(fullName string) *Event {
	return a.events[fullName]
}

// Type looks up a type by its "Domain.Type" name.
func (a *API) Type(fullName string) *TypeHelper {
	return a.types[fullName]
}

// Call invokes the command called fullName.
func (a *API) Call(ctx context.Context, fullName string, params any, sessionID string) (json.RawMessage, error) {
	c := a.Command(fullName)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", cdpnet.ErrUnknownCommand, fullName)
	}
	return c.Call(ctx, params, sessionID)
}

// Subscribe attaches handler to the event called fullName.
func (a *API) Subscribe(fullName, sessionID string, handler func(cdpnet.Event)) (func(), error) {
	e := a.Event(fullName)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", cdpnet.ErrUnknownEvent, fullName)
	}
	return e.Subscribe(sessionID, handler), nil
}
