package bootstrap

import (
	"fmt"
	"strings"

	"github.com/luciancaetano/cdpnet"
	"github.com/luciancaetano/cdpnet/internal/discovery"
)

type targetKind int

const (
	kindDefault targetKind = iota
	kindID
	kindTarget
	kindSelector
)

// Selection is what a Selector picks: an index into the listed targets or
// a target value.
type Selection struct {
	index  int
	target *discovery.Target
}

// Index selects the i-th listed target.
func Index(i int) Selection {
	return Selection{index: i}
}

// Pick selects t directly.
func Pick(t discovery.Target) Selection {
	return Selection{target: &t}
}

// Selector chooses a target from the peer's target list.
type Selector func(targets []discovery.Target) (Selection, error)

// Target says which debugger endpoint to connect to. The zero value picks
// the first page target that has a debugger URL.
type Target struct {
	kind     targetKind
	id       string
	target   discovery.Target
	selector Selector
}

// ByID accepts a target id, an absolute path on the configured host, or a
// ws:// or wss:// URL used verbatim.
func ByID(idOrURL string) Target {
	return Target{kind: kindID, id: idOrURL}
}

// ByTarget connects to t's debugger URL.
func ByTarget(t discovery.Target) Target {
	return Target{kind: kindTarget, target: t}
}

// BySelector lists the peer's targets and connects to the one fn selects.
func BySelector(fn Selector) Target {
	return Target{kind: kindSelector, selector: fn}
}

// IsZero reports whether t is the default selection.
func (t Target) IsZero() bool {
	return t.kind == kindDefault
}

func (t Target) String() string {
	switch t.kind {
	case kindID:
		return t.id
	case kindTarget:
		return t.target.ID
	case kindSelector:
		return "<selector>"
	default:
		return "<default>"
	}
}

// DefaultTarget returns the first page target with a debugger URL, or else
// the first target of any type that has one.
func DefaultTarget(targets []discovery.Target) (discovery.Target, error) {
	var backup *discovery.Target
	for i := range targets {
		if targets[i].WebSocketDebuggerURL == "" {
			continue
		}
		if targets[i].Type == "page" {
			return targets[i], nil
		}
		if backup == nil {
			backup = &targets[i]
		}
	}
	if backup != nil {
		return *backup, nil
	}
	return discovery.Target{}, cdpnet.ErrNoTargets
}

func (s Selection) resolve(targets []discovery.Target) (discovery.Target, error) {
	if s.target != nil {
		return *s.target, nil
	}
	if s.index < 0 || s.index >= len(targets) {
		return discovery.Target{}, fmt.Errorf("%w: index %d out of range (%d targets)", cdpnet.ErrInvalidTarget, s.index, len(targets))
	}
	return targets[s.index], nil
}

func hasWebSocketScheme(s string) bool {
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "ws:") || strings.HasPrefix(lower, "wss:")
}

func debuggerURL(t discovery.Target) (string, error) {
	if t.WebSocketDebuggerURL == "" {
		return "", fmt.Errorf("%w: target %q has no debugger URL", cdpnet.ErrInvalidTarget, t.ID)
	}
	return t.WebSocketDebuggerURL, nil
}
