package ast

import "github.com/arolang/aro-sub011/internal/aro/span"

// Expr is the sum type of expression nodes.
type Expr interface {
	exprNode()
	ExprSpan() span.Span
}

// LitKind tags the concrete kind of a LiteralExpr.
type LitKind int

const (
	LitString LitKind = iota
	LitInteger
	LitFloat
	LitBoolean
)

// LiteralExpr is a string/integer/float/boolean literal.
type LiteralExpr struct {
	Kind LitKind
	Text string // raw lexeme, parsed lazily by the evaluator
	Span span.Span
}

func (*LiteralExpr) exprNode()             {}
func (e *LiteralExpr) ExprSpan() span.Span { return e.Span }

// InterpPart is one piece of an InterpolatedStringExpr.
type InterpPart struct {
	Text string // literal text segment (Expr is nil)
	Expr Expr   // embedded expression (Text is unused)
}

// InterpolatedStringExpr is a "${...}"-interpolated string literal.
type InterpolatedStringExpr struct {
	Parts []InterpPart
	Span  span.Span
}

func (*InterpolatedStringExpr) exprNode()             {}
func (e *InterpolatedStringExpr) ExprSpan() span.Span { return e.Span }

// VariableRefExpr references a bound variable or magic name by
// QualifiedNoun.
type VariableRefExpr struct {
	Noun QualifiedNoun
	Span span.Span
}

func (*VariableRefExpr) exprNode()             {}
func (e *VariableRefExpr) ExprSpan() span.Span { return e.Span }

// ArrayLiteralExpr is "[e1, e2, ...]".
type ArrayLiteralExpr struct {
	Elements []Expr
	Span     span.Span
}

func (*ArrayLiteralExpr) exprNode()             {}
func (e *ArrayLiteralExpr) ExprSpan() span.Span { return e.Span }

// MapEntry is one key:value pair of a MapLiteralExpr.
type MapEntry struct {
	Key   Expr
	Value Expr
}

// MapLiteralExpr is "{k1: v1, k2: v2, ...}".
type MapLiteralExpr struct {
	Entries []MapEntry
	Span    span.Span
}

func (*MapLiteralExpr) exprNode()             {}
func (e *MapLiteralExpr) ExprSpan() span.Span { return e.Span }

// BinOp enumerates binary operators.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpConcat // "++"
	OpEq
	OpNeq
	OpLte
	OpGte
	OpAnd
	OpOr
	OpContains
	OpMatches
)

// BinaryExpr is a left/right expression joined by a BinOp.
type BinaryExpr struct {
	Op    BinOp
	Left  Expr
	Right Expr
	Span  span.Span
}

func (*BinaryExpr) exprNode()             {}
func (e *BinaryExpr) ExprSpan() span.Span { return e.Span }

// UnOp enumerates unary (prefix) operators.
type UnOp int

const (
	OpNeg UnOp = iota
	OpNot
)

// UnaryExpr is a prefix operator applied to an operand.
type UnaryExpr struct {
	Op      UnOp
	Operand Expr
	Span    span.Span
}

func (*UnaryExpr) exprNode()             {}
func (e *UnaryExpr) ExprSpan() span.Span { return e.Span }

// MemberExpr is "object.member" navigation, on maps and magic schema
// objects.
type MemberExpr struct {
	Object Expr
	Member string
	Span   span.Span
}

func (*MemberExpr) exprNode()             {}
func (e *MemberExpr) ExprSpan() span.Span { return e.Span }

// SubscriptExpr is "object[index]"; index 0 means "most recent" (reverse
// indexing) per spec.md §4.8.
type SubscriptExpr struct {
	Object Expr
	Index  Expr
	Span   span.Span
}

func (*SubscriptExpr) exprNode()             {}
func (e *SubscriptExpr) ExprSpan() span.Span { return e.Span }

// GroupedExpr is a parenthesized sub-expression, kept distinct so
// re-printing preserves explicit grouping.
type GroupedExpr struct {
	Inner Expr
	Span  span.Span
}

func (*GroupedExpr) exprNode()             {}
func (e *GroupedExpr) ExprSpan() span.Span { return e.Span }

// ExistenceExpr checks whether a variable-ref resolves without error
// ("exists <name>").
type ExistenceExpr struct {
	Ref  *VariableRefExpr
	Span span.Span
}

func (*ExistenceExpr) exprNode()             {}
func (e *ExistenceExpr) ExprSpan() span.Span { return e.Span }

// TypeCheckExpr compares the runtime type tag of Subject to TypeName
// ("<subject> is a <type>").
type TypeCheckExpr struct {
	Subject  Expr
	TypeName string
	Span     span.Span
}

func (*TypeCheckExpr) exprNode()             {}
func (e *TypeCheckExpr) ExprSpan() span.Span { return e.Span }

// RegexExpr is a /pattern/flags literal.
type RegexExpr struct {
	Pattern string
	Flags   string
	Span    span.Span
}

func (*RegexExpr) exprNode()             {}
func (e *RegexExpr) ExprSpan() span.Span { return e.Span }

// ExprVisitor groups one callback per expression variant for Fold-style
// traversal.
type ExprVisitor struct {
	Literal     func(*LiteralExpr) any
	Interp      func(*InterpolatedStringExpr) any
	VariableRef func(*VariableRefExpr) any
	Array       func(*ArrayLiteralExpr) any
	Map         func(*MapLiteralExpr) any
	Binary      func(*BinaryExpr) any
	Unary       func(*UnaryExpr) any
	Member      func(*MemberExpr) any
	Subscript   func(*SubscriptExpr) any
	Grouped     func(*GroupedExpr) any
	Existence   func(*ExistenceExpr) any
	TypeCheck   func(*TypeCheckExpr) any
	Regex       func(*RegexExpr) any
}

// FoldExpr dispatches e to the matching callback in v.
func FoldExpr(e Expr, v ExprVisitor) any {
	switch n := e.(type) {
	case *LiteralExpr:
		if v.Literal != nil {
			return v.Literal(n)
		}
	case *InterpolatedStringExpr:
		if v.Interp != nil {
			return v.Interp(n)
		}
	case *VariableRefExpr:
		if v.VariableRef != nil {
			return v.VariableRef(n)
		}
	case *ArrayLiteralExpr:
		if v.Array != nil {
			return v.Array(n)
		}
	case *MapLiteralExpr:
		if v.Map != nil {
			return v.Map(n)
		}
	case *BinaryExpr:
		if v.Binary != nil {
			return v.Binary(n)
		}
	case *UnaryExpr:
		if v.Unary != nil {
			return v.Unary(n)
		}
	case *MemberExpr:
		if v.Member != nil {
			return v.Member(n)
		}
	case *SubscriptExpr:
		if v.Subscript != nil {
			return v.Subscript(n)
		}
	case *GroupedExpr:
		if v.Grouped != nil {
			return v.Grouped(n)
		}
	case *ExistenceExpr:
		if v.Existence != nil {
			return v.Existence(n)
		}
	case *TypeCheckExpr:
		if v.TypeCheck != nil {
			return v.TypeCheck(n)
		}
	case *RegexExpr:
		if v.Regex != nil {
			return v.Regex(n)
		}
	}
	return nil
}
