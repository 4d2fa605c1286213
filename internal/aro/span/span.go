// Package span defines source locations shared by every stage of the ARO
// compiler front end, from the lexer through the semantic analyzer.
package span

import "fmt"

// Span is a half-open range of source positions. Line and Col are
// 1-indexed; a zero Span (the Pos zero value on both ends) means "no
// particular source location," used for errors synthesized at run time
// with no surviving source text.
type Span struct {
	Start Pos
	End   Pos
}

// Pos is a single source position.
type Pos struct {
	Line   int
	Col    int
	Offset int
}

// IsZero reports whether p is the unset position.
func (p Pos) IsZero() bool {
	return p.Line == 0 && p.Col == 0 && p.Offset == 0
}

// String renders "line:col".
func (p Pos) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Col)
}

// IsZero reports whether s carries no real source location.
func (s Span) IsZero() bool {
	return s.Start.IsZero() && s.End.IsZero()
}

// String renders "line:col" for a point span, or "line:col-line:col" for a
// range spanning more than one position.
func (s Span) String() string {
	if s.Start == s.End {
		return s.Start.String()
	}
	return fmt.Sprintf("%s-%s", s.Start, s.End)
}

// Join returns the smallest span covering both a and b. Either may be zero,
// in which case the other is returned unchanged.
func Join(a, b Span) Span {
	if a.IsZero() {
		return b
	}
	if b.IsZero() {
		return a
	}
	start := a.Start
	if before(b.Start, start) {
		start = b.Start
	}
	end := a.End
	if before(end, b.End) {
		end = b.End
	}
	return Span{Start: start, End: end}
}

func before(a, b Pos) bool {
	if a.Line != b.Line {
		return a.Line < b.Line
	}
	return a.Col < b.Col
}
