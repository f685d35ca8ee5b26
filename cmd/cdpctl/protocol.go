package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/luciancaetano/cdpnet"
	"github.com/luciancaetano/cdpnet/cdp"
	"github.com/luciancaetano/cdpnet/internal/protocol"
)

type domainSummary struct {
	Domain       string `json:"domain" yaml:"domain"`
	Commands     int    `json:"commands" yaml:"commands"`
	Events       int    `json:"events" yaml:"events"`
	Types        int    `json:"types" yaml:"types"`
	Experimental bool   `json:"experimental" yaml:"experimental"`
}

type member struct {
	Category     string `json:"category" yaml:"category"`
	Name         string `json:"name" yaml:"name"`
	Experimental bool   `json:"experimental,omitempty" yaml:"experimental,omitempty"`
	Deprecated   bool   `json:"deprecated,omitempty" yaml:"deprecated,omitempty"`
	Description  string `json:"description,omitempty" yaml:"description,omitempty"`
}

type memberTable []member

func (t memberTable) Table() ([]string, [][]string) {
	rows := make([][]string, 0, len(t))
	for _, m := range t {
		flags := ""
		switch {
		case m.Deprecated:
			flags = "deprecated"
		case m.Experimental:
			flags = "experimental"
		}
		rows = append(rows, []string{m.Category, m.Name, flags, summarize(m.Description)})
	}
	return []string{"CATEGORY", "NAME", "FLAGS", "DESCRIPTION"}, rows
}

// summarize keeps the first line of a description, capped for table cells.
func summarize(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	const max = 72
	if len(s) > max {
		s = s[:max-3] + "..."
	}
	return s
}

func summarizeDomains(d *protocol.Descriptor) []domainSummary {
	out := make([]domainSummary, 0, len(d.Domains))
	for _, dom := range d.Domains {
		out = append(out, domainSummary{
			Domain:       dom.Domain,
			Commands:     len(dom.Commands),
			Events:       len(dom.Events),
			Types:        len(dom.Types),
			Experimental: dom.Experimental,
		})
	}
	return out
}

func describeDomain(d *protocol.Descriptor, name string) (memberTable, error) {
	for _, dom := range d.Domains {
		if dom.Domain != name {
			continue
		}
		var out memberTable
		for _, c := range dom.Commands {
			out = append(out, member{Category: "command", Name: dom.Domain + "." + c.Name, Experimental: c.Experimental, Deprecated: c.Deprecated, Description: c.Description})
		}
		for _, e := range dom.Events {
			out = append(out, member{Category: "event", Name: dom.Domain + "." + e.Name, Experimental: e.Experimental, Deprecated: e.Deprecated, Description: e.Description})
		}
		for _, t := range dom.Types {
			out = append(out, member{Category: "type", Name: dom.Domain + "." + t.ID, Experimental: t.Experimental, Deprecated: t.Deprecated, Description: t.Description})
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %s", cdpnet.ErrUnknownDomain, name)
}

func (a *app) protocolCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "protocol [domain]",
		Short: "Describe the protocol surface, or one domain's members",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.withTimeout(cmd)
			defer cancel()

			d, err := cdp.Protocol(ctx, a.discoveryOptions())
			if err != nil {
				return fmt.Errorf("failed to get protocol: %w", err)
			}

			if len(args) == 0 {
				a.print(cmd, summarizeDomains(d))
				return nil
			}
			members, err := describeDomain(d, args[0])
			if err != nil {
				return err
			}
			a.print(cmd, members)
			return nil
		},
	}
}
