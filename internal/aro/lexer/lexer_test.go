package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_Lex_tokenKindSequence(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		expect []Kind
	}{
		{name: "empty", input: "", expect: []Kind{KindEOF}},
		{name: "integer", input: "42", expect: []Kind{KindLiteral, KindEOF}},
		{name: "float", input: "3.14", expect: []Kind{KindLiteral, KindEOF}},
		{name: "article the", input: "the", expect: []Kind{KindArticle, KindEOF}},
		{name: "preposition from", input: "from", expect: []Kind{KindPreposition, KindEOF}},
		{name: "keyword where", input: "where", expect: []Kind{KindKeyword, KindEOF}},
		{name: "boolean true", input: "true", expect: []Kind{KindLiteral, KindEOF}},
		{name: "identifier", input: "sum", expect: []Kind{KindIdentifier, KindEOF}},
		{
			name:  "aro statement skeleton",
			input: "<Compute> the <sum> from <3> + <4>.",
			expect: []Kind{
				KindOperator, KindIdentifier, KindOperator,
				KindArticle, KindOperator, KindIdentifier, KindOperator,
				KindPreposition, KindOperator, KindLiteral, KindOperator,
				KindOperator, KindOperator, KindLiteral, KindOperator,
				KindDelimiter, KindEOF,
			},
		},
		{name: "equality op", input: "a == b", expect: []Kind{KindIdentifier, KindOperator, KindIdentifier, KindEOF}},
		{name: "line comment", input: "a // comment\nb", expect: []Kind{KindIdentifier, KindIdentifier, KindEOF}},
		{name: "block comment", input: "a (* skip me *) b", expect: []Kind{KindIdentifier, KindIdentifier, KindEOF}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			toks, errs := Lex(tc.input)
			assert.Empty(t, errs)
			kinds := make([]Kind, len(toks))
			for i, tok := range toks {
				kinds[i] = tok.Kind
			}
			assert.Equal(t, tc.expect, kinds)
		})
	}
}

func Test_Lex_unterminatedString(t *testing.T) {
	_, errs := Lex(`"unterminated`)
	assert.NotEmpty(t, errs)
}

func Test_Lex_interpolation(t *testing.T) {
	toks, errs := Lex(`"hello ${name}!"`)
	assert.Empty(t, errs)
	assert.Equal(t, KindLiteral, toks[0].Kind)
	assert.Equal(t, LiteralInterpString, toks[0].LiteralKind)
	assert.Len(t, toks[0].Segments, 3)
	assert.Equal(t, "hello ", toks[0].Segments[0].Text)
	assert.NotNil(t, toks[0].Segments[1].Expr)
	assert.Equal(t, "!", toks[0].Segments[2].Text)
}

func Test_Lex_interpolation_noEmbeddedExpressions(t *testing.T) {
	toks, errs := Lex(`"plain text"`)
	assert.Empty(t, errs)
	assert.Equal(t, LiteralString, toks[0].LiteralKind)
	assert.Equal(t, "plain text", toks[0].Lexeme)
}

func Test_Lex_regexVsDivision(t *testing.T) {
	toks, errs := Lex(`a / b`)
	assert.Empty(t, errs)
	assert.Equal(t, KindOperator, toks[1].Kind)
	assert.Equal(t, "/", toks[1].Lexeme)

	toks, errs = Lex(`/abc/`)
	assert.Empty(t, errs)
	assert.Equal(t, KindRegex, toks[0].Kind)
	assert.Equal(t, "abc", toks[0].Lexeme)
}

func Test_Lex_regexEmptyPattern(t *testing.T) {
	toks, errs := Lex(`x = //`)
	_ = toks
	assert.NotEmpty(t, errs)
}

func Test_Render_roundTrip(t *testing.T) {
	src := "<Compute> the <sum> from <3> + <4> ."
	toks, errs := Lex(src)
	assert.Empty(t, errs)
	rendered := Render(toks)
	toks2, errs2 := Lex(rendered)
	assert.Empty(t, errs2)
	assert.Equal(t, len(toks), len(toks2))
	for i := range toks {
		assert.Equal(t, toks[i].Kind, toks2[i].Kind)
		assert.Equal(t, toks[i].Lexeme, toks2[i].Lexeme)
	}
}
