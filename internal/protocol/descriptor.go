package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Descriptor enumerates the domains a peer supports.
type Descriptor struct {
	Version *Version `json:"version,omitempty" yaml:"version,omitempty"`
	Domains []Domain `json:"domains" yaml:"domains"`
}

type Version struct {
	Major string `json:"major" yaml:"major"`
	Minor string `json:"minor" yaml:"minor"`
}

// Domain groups related commands, events and types.
type Domain struct {
	Domain       string    `json:"domain" yaml:"domain"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	Experimental bool      `json:"experimental,omitempty" yaml:"experimental,omitempty"`
	Deprecated   bool      `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Dependencies []string  `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Types        []Type    `json:"types,omitempty" yaml:"types,omitempty"`
	Commands     []Command `json:"commands,omitempty" yaml:"commands,omitempty"`
	Events       []Event   `json:"events,omitempty" yaml:"events,omitempty"`
}

type Command struct {
	Name         string     `json:"name" yaml:"name"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	Experimental bool       `json:"experimental,omitempty" yaml:"experimental,omitempty"`
	Deprecated   bool       `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Redirect     string     `json:"redirect,omitempty" yaml:"redirect,omitempty"`
	Parameters   []Property `json:"parameters,omitempty" yaml:"parameters,omitempty"`
	Returns      []Property `json:"returns,omitempty" yaml:"returns,omitempty"`
}

type Event struct {
	Name         string     `json:"name" yaml:"name"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	Experimental bool       `json:"experimental,omitempty" yaml:"experimental,omitempty"`
	Deprecated   bool       `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Parameters   []Property `json:"parameters,omitempty" yaml:"parameters,omitempty"`
}

type Type struct {
	ID           string     `json:"id" yaml:"id"`
	Description  string     `json:"description,omitempty" yaml:"description,omitempty"`
	Type         string     `json:"type,omitempty" yaml:"type,omitempty"`
	Experimental bool       `json:"experimental,omitempty" yaml:"experimental,omitempty"`
	Deprecated   bool       `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Enum         []string   `json:"enum,omitempty" yaml:"enum,omitempty"`
	Items        *Property  `json:"items,omitempty" yaml:"items,omitempty"`
	Properties   []Property `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Property describes one parameter, return value or object property.
type Property struct {
	Name         string    `json:"name,omitempty" yaml:"name,omitempty"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	Type         string    `json:"type,omitempty" yaml:"type,omitempty"`
	Ref          string    `json:"$ref,omitempty" yaml:"$ref,omitempty"`
	Optional     bool      `json:"optional,omitempty" yaml:"optional,omitempty"`
	Experimental bool      `json:"experimental,omitempty" yaml:"experimental,omitempty"`
	Deprecated   bool      `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Enum         []string  `json:"enum,omitempty" yaml:"enum,omitempty"`
	Items        *Property `json:"items,omitempty" yaml:"items,omitempty"`
}

var ErrInvalidDescriptor = errors.New("protocol: invalid descriptor")

// ParseDescriptor decodes a descriptor document. Only the shape needed to
// build the API surface is checked.
func ParseDescriptor(data []byte) (*Descriptor, error) {
	var d Descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

func (d *Descriptor) Validate() error {
	if d == nil || d.Domains == nil {
		return fmt.Errorf("%w: missing domains", ErrInvalidDescriptor)
	}
	for i, dom := range d.Domains {
		if strings.TrimSpace(dom.Domain) == "" {
			return fmt.Errorf("%w: domains[%d] missing domain name", ErrInvalidDescriptor, i)
		}
	}
	return nil
}

// PropertyMap keys props by name. Order carries no meaning at the API level.
func PropertyMap(props []Property) map[string]Property {
	out := make(map[string]Property, len(props))
	for _, p := range props {
		out[p.Name] = p
	}
	return out
}
