// Package filter compiles boolean expressions evaluated against events.
//
// Expressions see three variables: method, sessionId and params, the
// decoded event parameters. For example:
//
//	method == "Network.requestWillBeSent" && params.request.url startsWith "https://"
package filter

import (
	"encoding/json"
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/luciancaetano/cdpnet"
)

// Env is the evaluation environment of a filter.
type Env struct {
	Method    string         `expr:"method"`
	SessionID string         `expr:"sessionId"`
	Params    map[string]any `expr:"params"`
}

// Filter is a compiled expression. The zero value matches every event.
type Filter struct {
	source  string
	program *vm.Program
}

// Compile parses source. An empty source matches everything.
func Compile(source string) (*Filter, error) {
	if source == "" {
		return &Filter{}, nil
	}
	program, err := expr.Compile(source, expr.Env(Env{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile filter: %w", err)
	}
	return &Filter{source: source, program: program}, nil
}

func (f *Filter) String() string {
	return f.source
}

// Match reports whether ev satisfies the filter.
func (f *Filter) Match(ev cdpnet.Event) (bool, error) {
	if f == nil || f.program == nil {
		return true, nil
	}

	env := Env{Method: ev.Method, SessionID: ev.SessionID, Params: map[string]any{}}
	if len(ev.Params) > 0 {
		if err := json.Unmarshal(ev.Params, &env.Params); err != nil {
			return false, fmt.Errorf("decode params of %s: %w", ev.Method, err)
		}
	}

	out, err := expr.Run(f.program, env)
	if err != nil {
		return false, fmt.Errorf("evaluate filter: %w", err)
	}
	matched, _ := out.(bool)
	return matched, nil
}
