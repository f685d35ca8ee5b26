package api

import (
	"fmt"

	"github.com/luciancaetano/cdpnet"
	"github.com/luciancaetano/cdpnet/internal/protocol"
)

// Domain is the namespace of one protocol domain.
type Domain struct {
	Name         string
	Description  string
	Experimental bool
	Deprecated   bool
	Dependencies []string

	Commands map[string]*Command
	Events   map[string]*Event
	Types    map[string]*TypeHelper
}

func newDomain(d protocol.Domain) *Domain {
	return &Domain{
		Name:         d.Domain,
		Description:  d.Description,
		Experimental: d.Experimental,
		Deprecated:   d.Deprecated,
		Dependencies: d.Dependencies,
		Commands:     make(map[string]*Command, len(d.Commands)),
		Events:       make(map[string]*Event, len(d.Events)),
		Types:        make(map[string]*TypeHelper, len(d.Types)),
	}
}

func (d *Domain) Command(name string) *Command {
	return d.Commands[name]
}

func (d *Domain) Event(name string) *Event {
	return d.Events[name]
}

func (d *Domain) Type(id string) *TypeHelper {
	return d.Types[id]
}

// On subscribes handler to the domain event called eventName across all
// sessions.
func (d *Domain) On(eventName string, handler func(cdpnet.Event)) (func(), error) {
	e := d.Event(eventName)
	if e == nil {
		return nil, fmt.Errorf("%w: %s.%s", cdpnet.ErrUnknownEvent, d.Name, eventName)
	}
	return e.Subscribe("", handler), nil
}
