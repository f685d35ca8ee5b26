package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/luciancaetano/cdpnet"
)

// EventPrinter writes one line per event: method, optional session and
// compact params. Colors are used only when the writer is a terminal.
type EventPrinter struct {
	w       io.Writer
	method  func(format string, a ...any) string
	session func(format string, a ...any) string
}

// NewEventPrinter returns a printer for w. noColor forces plain output.
func NewEventPrinter(w io.Writer, noColor bool) *EventPrinter {
	useColor := !noColor && IsTerminal(w)

	method := color.New(color.FgCyan, color.Bold)
	session := color.New(color.FgYellow)
	if useColor {
		method.EnableColor()
		session.EnableColor()
	} else {
		method.DisableColor()
		session.DisableColor()
	}

	return &EventPrinter{
		w:       w,
		method:  method.SprintfFunc(),
		session: session.SprintfFunc(),
	}
}

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Print writes ev.
func (p *EventPrinter) Print(ev cdpnet.Event) error {
	params := compact(ev.Params)
	var err error
	if ev.SessionID != "" {
		_, err = fmt.Fprintf(p.w, "%s %s %s\n", p.method("%s", ev.Method), p.session("[%s]", ev.SessionID), params)
	} else {
		_, err = fmt.Fprintf(p.w, "%s %s\n", p.method("%s", ev.Method), params)
	}
	return err
}

func compact(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(b)
}
