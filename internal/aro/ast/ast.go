// Package ast defines the ARO abstract syntax tree. Every node is
// immutable once built and carries a source span. The tree is modeled as
// a tagged sum type (per the teacher's own move away from virtual-dispatch
// AST walking): producers (semantic analyzer, evaluator) traverse it with
// a Fold function taking per-variant callbacks rather than a classic
// visitor interface implemented by every node.
package ast

import (
	"strings"

	"github.com/arolang/aro-sub011/internal/aro/span"
)

// QualifiedNoun is a base identifier with an optional type annotation and
// an ordered list of specifiers. Hyphenated identifiers ("business
// activity", "order-repository") are assembled by the parser before this
// node is built; computed specifiers split on '.'. A '.' not followed by
// an identifier stops the split and marks the noun Generic; the text
// after that '.' is not recorded on the node.
type QualifiedNoun struct {
	Base       string
	TypeAnnot  string
	Specifiers []string
	Generic    bool
	Span       span.Span
}

// Descriptor is the compact record passed to actions in lieu of the raw
// QualifiedNoun: base name, preposition, specifier list, and span.
type Descriptor struct {
	Base        string
	Preposition string
	Specifiers  []string
	Span        span.Span
}

// ToDescriptor builds the runtime Descriptor for this noun, attaching the
// preposition that introduced it (empty for a Result descriptor).
func (q QualifiedNoun) ToDescriptor(preposition string) Descriptor {
	return Descriptor{Base: q.Base, Preposition: preposition, Specifiers: q.Specifiers, Span: q.Span}
}

// String renders "base.spec1.spec2".
func (q QualifiedNoun) String() string {
	if len(q.Specifiers) == 0 {
		return q.Base
	}
	return q.Base + "." + strings.Join(q.Specifiers, ".")
}

// Program is the root node: an ordered list of imports and feature sets.
type Program struct {
	Imports     []string
	FeatureSets []*FeatureSet
	Span        span.Span
}

// FeatureSet is a named unit of business logic tagged with a business
// activity, containing ordered statements.
type FeatureSet struct {
	Name             string
	BusinessActivity string
	Statements       []Stmt
	Span             span.Span
}

// ActionRole is the derived semantic role of a verb.
type ActionRole int

const (
	RoleUnknown ActionRole = iota
	RoleRequest             // external -> internal
	RoleOwn                 // internal -> internal
	RoleResponse            // internal -> external
	RoleExport              // internal -> persistent/published
)

func (r ActionRole) String() string {
	switch r {
	case RoleRequest:
		return "request"
	case RoleOwn:
		return "own"
	case RoleResponse:
		return "response"
	case RoleExport:
		return "export"
	default:
		return "unknown"
	}
}

// Stmt is the sum type of the five statement kinds.
type Stmt interface {
	stmtNode()
	StmtSpan() span.Span
}

// ValueSourceKind tags which (if any) value-producing clause an
// AROStatement carries.
type ValueSourceKind int

const (
	ValueNone ValueSourceKind = iota
	ValueLiteral
	ValueExpression
	ValueSink
)

// ValueSource groups the optional literal/expression/sink clause of an
// AROStatement.
type ValueSource struct {
	Kind    ValueSourceKind
	Literal Expr // set when Kind == ValueLiteral
	Expr    Expr // set when Kind == ValueExpression or ValueSink
}

// ObjectClause is the preposition + QualifiedNoun object half of an
// AROStatement.
type ObjectClause struct {
	Preposition string
	Noun        QualifiedNoun
}

// QueryModifiers groups the optional where/aggregation/by clauses.
type QueryModifiers struct {
	Where       Expr
	Aggregation string
	By          *QualifiedNoun
}

// RangeModifiers groups the optional to/with range clauses.
type RangeModifiers struct {
	To   Expr
	With Expr
}

// AROStatement is "<Action> the <Result> preposition the <Object>" plus
// its grouped optional clauses.
type AROStatement struct {
	Verb     string
	VerbSpan span.Span
	Result   QualifiedNoun
	Object   *ObjectClause
	Value    ValueSource
	Query    *QueryModifiers
	Range    *RangeModifiers
	Guard    Expr // "when <condition>", nil if absent
	Span     span.Span
}

func (*AROStatement) stmtNode()              {}
func (s *AROStatement) StmtSpan() span.Span  { return s.Span }

// PublishStatement is the "Publish the <name>." shorthand; it registers a
// symbol into the global published-symbol map without the full
// action/object grammar.
type PublishStatement struct {
	Name QualifiedNoun
	Span span.Span
}

func (*PublishStatement) stmtNode()             {}
func (s *PublishStatement) StmtSpan() span.Span { return s.Span }

// RequireStatement is the "Require the <name>." shorthand; it declares an
// explicit external dependency checked by the semantic analyzer's
// dependency-verification pass.
type RequireStatement struct {
	Name QualifiedNoun
	Span span.Span
}

func (*RequireStatement) stmtNode()             {}
func (s *RequireStatement) StmtSpan() span.Span { return s.Span }

// MatchCase is one "when <value> { ... }" arm of a MatchStatement.
type MatchCase struct {
	Value Expr
	Body  []Stmt
}

// MatchStatement pattern-matches a subject against a series of value
// cases, running the first matching case's body (or Otherwise, if none
// match and it is present).
type MatchStatement struct {
	Subject   Expr
	Cases     []MatchCase
	Otherwise []Stmt
	Span      span.Span
}

func (*MatchStatement) stmtNode()             {}
func (s *MatchStatement) StmtSpan() span.Span { return s.Span }

// ForEachLoop iterates a list expression, binding ItemName to each
// element in a child context per iteration.
type ForEachLoop struct {
	ItemName string
	Source   Expr
	Body     []Stmt
	Span     span.Span
}

func (*ForEachLoop) stmtNode()             {}
func (s *ForEachLoop) StmtSpan() span.Span { return s.Span }

// StmtVisitor groups one callback per statement variant for Fold-style
// traversal. A nil callback is simply skipped (Fold returns nil for that
// node).
type StmtVisitor struct {
	ARO     func(*AROStatement) any
	Publish func(*PublishStatement) any
	Require func(*RequireStatement) any
	Match   func(*MatchStatement) any
	ForEach func(*ForEachLoop) any
}

// FoldStmt dispatches s to the matching callback in v.
func FoldStmt(s Stmt, v StmtVisitor) any {
	switch n := s.(type) {
	case *AROStatement:
		if v.ARO != nil {
			return v.ARO(n)
		}
	case *PublishStatement:
		if v.Publish != nil {
			return v.Publish(n)
		}
	case *RequireStatement:
		if v.Require != nil {
			return v.Require(n)
		}
	case *MatchStatement:
		if v.Match != nil {
			return v.Match(n)
		}
	case *ForEachLoop:
		if v.ForEach != nil {
			return v.ForEach(n)
		}
	}
	return nil
}
