// Package lexer turns ARO source text into a token stream: characters to
// tokens, including first-class articles and prepositions, string
// interpolation, and regex/division disambiguation, in the single-lookahead
// scanning style of the teacher's tunascript lexer.
package lexer

import "github.com/arolang/aro-sub011/internal/aro/span"

// Kind classifies a Token.
type Kind int

const (
	KindDelimiter Kind = iota
	KindOperator
	KindKeyword
	KindIdentifier
	KindLiteral
	KindArticle
	KindPreposition
	KindInterpStart
	KindInterpEnd
	KindEOF
	KindRegex
	KindError
)

func (k Kind) String() string {
	names := [...]string{
		"delimiter", "operator", "keyword", "identifier", "literal",
		"article", "preposition", "interpolation-start", "interpolation-end",
		"EOF", "regex", "error",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "unknown"
}

// LiteralKind further classifies a KindLiteral token.
type LiteralKind int

const (
	LiteralNone LiteralKind = iota
	LiteralString
	LiteralInterpString
	LiteralInteger
	LiteralFloat
	LiteralBoolean
)

// Articles are the closed set of reserved article words.
var Articles = map[string]bool{"a": true, "an": true, "the": true}

// Prepositions is the closed, source-attribution-bearing preposition set.
var Prepositions = map[string]bool{
	"from": true, "for": true, "against": true, "to": true, "into": true,
	"via": true, "with": true, "on": true, "at": true, "by": true,
}

// Keywords is the closed set of structural keywords. Note "for" is NOT a
// keyword: it stays a preposition at the lexer level, and the parser alone
// disambiguates the "for each" loop head with one token of lookahead.
var Keywords = map[string]bool{
	"where": true, "when": true, "each": true, "match": true,
	"otherwise": true, "require": true, "publish": true, "import": true,
}

// Token is one lexical unit with its source span.
type Token struct {
	Kind        Kind
	LiteralKind LiteralKind
	Lexeme      string
	Span        span.Span

	// Segments holds the interpolated-string pieces when LiteralKind is
	// LiteralInterpString: alternating text segments and embedded
	// expression token streams, recorded as nested Tokens so the parser
	// can re-enter expression parsing on each one.
	Segments []InterpSegment
}

// InterpSegment is one piece of an interpolated string literal.
type InterpSegment struct {
	// Text is set when this is a literal text segment (Expr is nil).
	Text string

	// Expr holds the token stream lexed from between "${" and the
	// matching "}" when this segment is an embedded expression.
	Expr []Token
}

func (t Token) String() string {
	return t.Lexeme
}
