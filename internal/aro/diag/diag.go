// Package diag collects severity-tagged compiler messages with source
// spans. Nothing in the pipeline aborts on the first error; callers
// inspect the collected Bag once a phase finishes.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dekarrin/rosed"

	"github.com/arolang/aro-sub011/internal/aro/span"
)

const humanWrapWidth = 72

// Severity is the level of a diagnostic message.
type Severity int

const (
	// Warning is an advisory message; it never fails compilation.
	Warning Severity = iota
	// Error fails compilation once collected, but does not stop the
	// collecting pass from continuing to run.
	Error
)

func (s Severity) String() string {
	switch s {
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Kind names the taxonomy slot a Diagnostic belongs to, per spec.md §7.
type Kind string

const (
	KindParse           Kind = "ParseError"
	KindSemanticError   Kind = "SemanticError"
	KindSemanticWarning Kind = "SemanticWarning"
)

// Diagnostic is a single collected message.
type Diagnostic struct {
	Severity Severity
	Kind     Kind
	Message  string
	Span     span.Span
}

// Bag accumulates diagnostics for one compilation. The zero value is
// ready to use.
type Bag struct {
	items []Diagnostic
}

// Add appends a diagnostic.
func (b *Bag) Add(d Diagnostic) {
	b.items = append(b.items, d)
}

// Errorf collects an Error-severity diagnostic of the given kind.
func (b *Bag) Errorf(kind Kind, sp span.Span, format string, args ...any) {
	b.Add(Diagnostic{Severity: Error, Kind: kind, Message: fmt.Sprintf(format, args...), Span: sp})
}

// Warnf collects a Warning-severity diagnostic of the given kind.
func (b *Bag) Warnf(kind Kind, sp span.Span, format string, args ...any) {
	b.Add(Diagnostic{Severity: Warning, Kind: kind, Message: fmt.Sprintf(format, args...), Span: sp})
}

// Items returns every collected diagnostic in insertion order.
func (b *Bag) Items() []Diagnostic {
	return b.items
}

// HasErrors reports whether any Error-severity diagnostic was collected.
func (b *Bag) HasErrors() bool {
	for _, d := range b.items {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Errors returns only the Error-severity diagnostics.
func (b *Bag) Errors() []Diagnostic {
	var out []Diagnostic
	for _, d := range b.items {
		if d.Severity == Error {
			out = append(out, d)
		}
	}
	return out
}

// Warnings returns only the Warning-severity diagnostics.
func (b *Bag) Warnings() []Diagnostic {
	var out []Diagnostic
	for _, d := range b.items {
		if d.Severity == Warning {
			out = append(out, d)
		}
	}
	return out
}

// Sorted returns a copy of the collected diagnostics ordered by source
// position, with errors preceding warnings at the same position.
func (b *Bag) Sorted() []Diagnostic {
	out := make([]Diagnostic, len(b.items))
	copy(out, b.items)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].Span.Start, out[j].Span.Start
		if pi.Line != pj.Line {
			return pi.Line < pj.Line
		}
		if pi.Col != pj.Col {
			return pi.Col < pj.Col
		}
		return out[i].Severity > out[j].Severity
	})
	return out
}

// Render formats the bag for the given output context. "machine" produces
// one JSON-ish line per diagnostic, "human" produces "[sev] pos: message"
// lines wrapped to a terminal-friendly width, and "developer" adds the
// raw Kind string as well.
func (b *Bag) Render(outputContext string) string {
	var sb strings.Builder
	for _, d := range b.Sorted() {
		switch outputContext {
		case "machine":
			fmt.Fprintf(&sb, `{"severity":%q,"kind":%q,"span":%q,"message":%q}`+"\n",
				d.Severity, d.Kind, d.Span, d.Message)
		case "developer":
			fmt.Fprintf(&sb, "[%s] (%s) %s: %s\n", d.Severity, d.Kind, d.Span, d.Message)
		default: // "human"
			line := fmt.Sprintf("[%s] %s: %s", d.Severity, d.Span, d.Message)
			fmt.Fprintln(&sb, rosed.Edit(line).Wrap(humanWrapWidth).String())
		}
	}
	return sb.String()
}
