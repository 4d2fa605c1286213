// Package parser builds an ARO AST from a token stream using recursive
// descent for program/feature-set/statement structure and Pratt
// (precedence-climbing) parsing for expressions, in the same style as the
// teacher's tunascript parser (token.nud/led dispatch driven by a
// left-binding-power table).
package parser

import (
	"strings"

	"github.com/arolang/aro-sub011/internal/aro/ast"
	"github.com/arolang/aro-sub011/internal/aro/diag"
	"github.com/arolang/aro-sub011/internal/aro/lexer"
	"github.com/arolang/aro-sub011/internal/aro/span"
)

// Parser holds parse state over one token stream.
type Parser struct {
	toks  []lexer.Token
	pos   int
	diags *diag.Bag
}

// Parse lexes and parses src, returning the built Program and the
// diagnostics collected along the way. The program is valid to inspect
// even when diags.HasErrors() is true: parse errors are recovered from at
// statement/feature-set granularity rather than aborting the whole parse.
func Parse(src string) (*ast.Program, *diag.Bag) {
	toks, lexErrs := lexer.Lex(src)
	bag := &diag.Bag{}
	for _, e := range lexErrs {
		bag.Errorf(diag.KindParse, e.Span, "%s", e.Message)
	}
	p := &Parser{toks: toks, diags: bag}
	prog := p.parseProgram()
	return prog, bag
}

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: lexer.KindEOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) peekAt(off int) lexer.Token {
	idx := p.pos + off
	if idx >= len(p.toks) {
		return lexer.Token{Kind: lexer.KindEOF}
	}
	return p.toks[idx]
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) atEOF() bool { return p.cur().Kind == lexer.KindEOF }

func (p *Parser) errorf(sp span.Span, format string, args ...any) {
	p.diags.Errorf(diag.KindParse, sp, format, args...)
}

func (p *Parser) expectDelim(lexeme string) (lexer.Token, bool) {
	t := p.cur()
	if (t.Kind == lexer.KindDelimiter || t.Kind == lexer.KindOperator) && t.Lexeme == lexeme {
		return p.advance(), true
	}
	p.errorf(t.Span, "expected %q but found %q", lexeme, t.Lexeme)
	return t, false
}

// --- program / feature set -------------------------------------------------

func (p *Parser) parseProgram() *ast.Program {
	prog := &ast.Program{}
	start := p.cur().Span

	for !p.atEOF() {
		if p.cur().Kind == lexer.KindKeyword && p.cur().Lexeme == "import" {
			prog.Imports = append(prog.Imports, p.parseImport())
			continue
		}
		if p.cur().Lexeme == "(" {
			fs := p.parseFeatureSet()
			if fs != nil {
				prog.FeatureSets = append(prog.FeatureSets, fs)
			}
			continue
		}
		// Parse error recovery: skip to the next '(' that starts a
		// feature set.
		bad := p.advance()
		p.errorf(bad.Span, "expected feature set or import, found %q", bad.Lexeme)
		p.skipTo("(")
	}

	prog.Span = span.Join(start, p.cur().Span)
	return prog
}

func (p *Parser) skipTo(lexeme string) {
	for !p.atEOF() && p.cur().Lexeme != lexeme {
		p.advance()
	}
}

func (p *Parser) parseImport() string {
	p.advance() // 'import' keyword
	var parts []string
	for p.cur().Kind == lexer.KindIdentifier {
		parts = append(parts, p.advance().Lexeme)
	}
	if p.cur().Lexeme == "." {
		p.advance()
	}
	return strings.Join(parts, " ")
}

// parseFeatureSet parses "( name : activity [<guards>] ) { statements }".
func (p *Parser) parseFeatureSet() *ast.FeatureSet {
	start, _ := p.expectDelim("(")

	name := p.parseIdentifierSequence()
	p.expectDelim(":")
	activity := p.parseIdentifierSequence()

	if p.cur().Lexeme == "<" {
		// trailing StateGuardSet on the business activity; skipped and
		// discarded here. The FeatureSet node carries no guard, so handler
		// wiring in internal/aro/engine applies no value filter from it.
		p.skipBalancedAngle()
	}

	p.expectDelim(")")
	p.expectDelim("{")

	fs := &ast.FeatureSet{Name: name, BusinessActivity: activity}
	for !p.atEOF() && p.cur().Lexeme != "}" {
		before := p.pos
		stmt := p.parseStatement()
		if stmt != nil {
			fs.Statements = append(fs.Statements, stmt)
		}
		if p.pos == before {
			// guarantee forward progress on unrecoverable input
			p.advance()
		}
	}
	end, _ := p.expectDelim("}")
	fs.Span = span.Join(start.Span, end.Span)
	return fs
}

// parseIdentifierSequence accepts an identifier sequence for feature-set
// names and business activities, tolerating certain keyword lexemes
// (e.g. "match", "where") as plain name words per spec.md §4.2.
func (p *Parser) parseIdentifierSequence() string {
	var words []string
	for {
		t := p.cur()
		if t.Kind == lexer.KindIdentifier || t.Kind == lexer.KindKeyword {
			words = append(words, p.advance().Lexeme)
			continue
		}
		break
	}
	return strings.Join(words, " ")
}

func (p *Parser) skipBalancedAngle() {
	depth := 0
	for !p.atEOF() {
		t := p.advance()
		if t.Lexeme == "<" {
			depth++
		} else if t.Lexeme == ">" {
			depth--
			if depth == 0 {
				return
			}
		}
	}
}

// --- statements -------------------------------------------------------------

func (p *Parser) parseStatement() ast.Stmt {
	t := p.cur()

	if t.Kind == lexer.KindKeyword {
		switch t.Lexeme {
		case "publish":
			return p.parsePublishStatement()
		case "require":
			return p.parseRequireStatement()
		case "match":
			return p.parseMatchStatement()
		case "for":
			// unreachable: "for" lexes as KindPreposition, not keyword.
		}
	}
	if t.Kind == lexer.KindPreposition && t.Lexeme == "for" && p.peekAt(1).Lexeme == "each" {
		return p.parseForEachLoop()
	}
	if t.Lexeme == "<" {
		return p.parseAROStatement()
	}

	p.errorf(t.Span, "unexpected token %q at start of statement", t.Lexeme)
	p.skipToStatementBoundary()
	return nil
}

// skipToStatementBoundary recovers from a statement-level parse error by
// advancing past the next '.', or stopping at '}' or the next '<'.
func (p *Parser) skipToStatementBoundary() {
	for !p.atEOF() {
		t := p.cur()
		if t.Lexeme == "}" || t.Lexeme == "<" {
			return
		}
		p.advance()
		if t.Lexeme == "." {
			return
		}
	}
}

func (p *Parser) parsePublishStatement() ast.Stmt {
	start := p.advance().Span // 'publish'
	p.consumeArticle()
	noun := p.parseBracketedQualifiedNoun()
	end, _ := p.expectDelim(".")
	return &ast.PublishStatement{Name: noun, Span: span.Join(start, end.Span)}
}

func (p *Parser) parseRequireStatement() ast.Stmt {
	start := p.advance().Span // 'require'
	p.consumeArticle()
	noun := p.parseBracketedQualifiedNoun()
	end, _ := p.expectDelim(".")
	return &ast.RequireStatement{Name: noun, Span: span.Join(start, end.Span)}
}

func (p *Parser) consumeArticle() {
	if p.cur().Kind == lexer.KindArticle {
		p.advance()
	}
}

// parseMatchStatement parses "match <subject> { when <v> { stmts } ...
// [otherwise { stmts }] }".
func (p *Parser) parseMatchStatement() ast.Stmt {
	start := p.advance().Span // 'match'
	subject := p.parseExpression(0)
	p.expectDelim("{")

	m := &ast.MatchStatement{Subject: subject}
	for !p.atEOF() && p.cur().Lexeme != "}" {
		if p.cur().Kind == lexer.KindKeyword && p.cur().Lexeme == "when" {
			p.advance()
			val := p.parseExpression(0)
			p.expectDelim("{")
			body := p.parseStatementsUntil("}")
			p.expectDelim("}")
			m.Cases = append(m.Cases, ast.MatchCase{Value: val, Body: body})
			continue
		}
		if p.cur().Kind == lexer.KindKeyword && p.cur().Lexeme == "otherwise" {
			p.advance()
			p.expectDelim("{")
			m.Otherwise = p.parseStatementsUntil("}")
			p.expectDelim("}")
			continue
		}
		bad := p.advance()
		p.errorf(bad.Span, "expected 'when' or 'otherwise' in match body, found %q", bad.Lexeme)
	}
	end, _ := p.expectDelim("}")
	m.Span = span.Join(start, end.Span)
	return m
}

func (p *Parser) parseForEachLoop() ast.Stmt {
	start := p.advance().Span // 'for'
	p.advance()               // 'each'
	p.consumeArticle()
	item := p.parseBracketedIdentifier()

	// "in"/"from" the source collection; "from" lexes as a preposition,
	// "in" as a plain identifier.
	if p.cur().Kind == lexer.KindPreposition || (p.cur().Kind == lexer.KindIdentifier && p.cur().Lexeme == "in") {
		p.advance()
	}
	p.consumeArticle()
	source := p.parseExpression(0)

	p.expectDelim("{")
	body := p.parseStatementsUntil("}")
	end, _ := p.expectDelim("}")

	return &ast.ForEachLoop{ItemName: item, Source: source, Body: body, Span: span.Join(start, end.Span)}
}

func (p *Parser) parseStatementsUntil(closing string) []ast.Stmt {
	var stmts []ast.Stmt
	for !p.atEOF() && p.cur().Lexeme != closing {
		before := p.pos
		s := p.parseStatement()
		if s != nil {
			stmts = append(stmts, s)
		}
		if p.pos == before {
			p.advance()
		}
	}
	return stmts
}

// parseBracketedIdentifier parses "<name>" and returns the bare name.
func (p *Parser) parseBracketedIdentifier() string {
	n := p.parseBracketedQualifiedNoun()
	return n.Base
}

// parseAROStatement parses the full
// "<verb> [article] <result> preposition [article] <object> [clauses] ."
// grammar.
func (p *Parser) parseAROStatement() ast.Stmt {
	verbTok, verbSpan := p.parseBracketedVerb()
	p.consumeArticle()
	result := p.parseBracketedQualifiedNoun()

	stmt := &ast.AROStatement{Verb: verbTok, VerbSpan: verbSpan, Result: result}

	// Optional object clause: preposition [article] <object>. "to"/"with"
	// are range-clause keywords (parsed below by parseStatementClauses),
	// not object prepositions, so they must not be consumed here.
	if t := p.cur(); t.Kind == lexer.KindPreposition && t.Lexeme != "to" && t.Lexeme != "with" {
		prep := p.advance().Lexeme
		switch prep {
		case "from", "for", "against", "via":
			// These prepositions may introduce either an object noun or a
			// value-producing expression/sink, depending on what follows.
			if p.cur().Lexeme == "<" && p.looksLikeBareObjectNoun() {
				p.consumeArticle()
				obj := p.parseBracketedQualifiedNoun()
				stmt.Object = &ast.ObjectClause{Preposition: prep, Noun: obj}
			} else {
				expr := p.parseExpression(0)
				stmt.Value = ast.ValueSource{Kind: ast.ValueExpression, Expr: expr}
				stmt.Object = &ast.ObjectClause{Preposition: prep, Noun: ast.QualifiedNoun{Base: "_expression_"}}
			}
		default:
			p.consumeArticle()
			obj := p.parseBracketedQualifiedNoun()
			stmt.Object = &ast.ObjectClause{Preposition: prep, Noun: obj}
		}
	}

	p.parseStatementClauses(stmt)

	end, _ := p.expectDelim(".")
	stmt.Span = span.Join(verbSpan, end.Span)
	return stmt
}

// looksLikeBareObjectNoun reports whether the bracketed content starting
// at the cursor is a single identifier (an object noun) rather than the
// start of a larger expression such as "<3> + <4>" -- decided with one
// token of lookahead past the matching '>'.
func (p *Parser) looksLikeBareObjectNoun() bool {
	// Find the matching '>' for the '<' at p.pos and inspect what follows.
	depth := 0
	i := p.pos
	for i < len(p.toks) {
		t := p.toks[i]
		if t.Lexeme == "<" {
			depth++
		} else if t.Lexeme == ">" {
			depth--
			if depth == 0 {
				break
			}
		}
		i++
	}
	next := lexer.Token{Kind: lexer.KindEOF}
	if i+1 < len(p.toks) {
		next = p.toks[i+1]
	}
	switch next.Lexeme {
	case "+", "-", "*", "/", "++", "==", "!=", "<=", ">=", "&&", "||":
		return false
	default:
		return true
	}
}

func (p *Parser) parseStatementClauses(stmt *ast.AROStatement) {
	for {
		t := p.cur()
		if t.Kind != lexer.KindKeyword && !(t.Kind == lexer.KindPreposition && (t.Lexeme == "to" || t.Lexeme == "with" || t.Lexeme == "by")) {
			return
		}
		switch t.Lexeme {
		case "where":
			p.advance()
			ensureQuery(stmt).Where = p.parseExpression(0)
		case "when":
			p.advance()
			stmt.Guard = p.parseExpression(0)
		case "by":
			p.advance()
			n := p.parseBracketedQualifiedNoun()
			ensureQuery(stmt).By = &n
		case "to":
			p.advance()
			ensureRange(stmt).To = p.parseExpression(0)
		case "with":
			p.advance()
			ensureRange(stmt).With = p.parseExpression(0)
		default:
			return
		}
	}
}

func (p *Parser) parseBracketedVerb() (string, span.Span) {
	start, _ := p.expectDelim("<")
	name := p.parseIdentifierSequence()
	end, _ := p.expectDelim(">")
	return name, span.Join(start.Span, end.Span)
}

// parseBracketedQualifiedNoun parses "<base-ident[.specifier]* [: Type]>",
// assembling hyphenated compound identifiers as it goes.
func (p *Parser) parseBracketedQualifiedNoun() ast.QualifiedNoun {
	start, _ := p.expectDelim("<")
	base := p.parseHyphenatedIdentifier()
	n := ast.QualifiedNoun{Base: base}

	for p.cur().Lexeme == "." {
		p.advance()
		if p.cur().Kind == lexer.KindIdentifier {
			n.Specifiers = append(n.Specifiers, p.advance().Lexeme)
		} else {
			n.Generic = true
			break
		}
	}
	if p.cur().Lexeme == ":" {
		p.advance()
		n.TypeAnnot = p.parseHyphenatedIdentifier()
	}
	end, _ := p.expectDelim(">")
	n.Span = span.Join(start.Span, end.Span)
	return n
}

// parseHyphenatedIdentifier repeatedly accepts identifier '-' identifier
// to assemble compound identifiers like "business-activity".
func (p *Parser) parseHyphenatedIdentifier() string {
	var sb strings.Builder
	if p.cur().Kind == lexer.KindIdentifier || p.cur().Kind == lexer.KindKeyword {
		sb.WriteString(p.advance().Lexeme)
	} else {
		t := p.cur()
		p.errorf(t.Span, "expected identifier, found %q", t.Lexeme)
		return ""
	}
	for p.cur().Lexeme == "-" && (p.peekAt(1).Kind == lexer.KindIdentifier) {
		p.advance() // '-'
		sb.WriteString("-")
		sb.WriteString(p.advance().Lexeme)
	}
	return sb.String()
}

// --- expressions (Pratt / precedence-climbing) ------------------------------

type bindingPower int

const (
	bpNone bindingPower = iota
	bpOr
	bpAnd
	bpEquality
	bpComparison
	bpTerm
	bpFactor
	bpUnary
	bpPostfix
)

func lbp(t lexer.Token) bindingPower {
	if t.Kind == lexer.KindKeyword && (t.Lexeme == "contains" || t.Lexeme == "matches") {
		return bpEquality
	}
	if t.Kind == lexer.KindIdentifier {
		switch strings.ToLower(t.Lexeme) {
		case "contains", "matches", "is":
			return bpEquality
		}
	}
	switch t.Lexeme {
	case "||":
		return bpOr
	case "&&":
		return bpAnd
	case "==", "!=":
		return bpEquality
	case "<=", ">=":
		return bpComparison
	case "+", "-", "++":
		return bpTerm
	case "*", "/":
		return bpFactor
	case ".", "[":
		return bpPostfix
	default:
		return bpNone
	}
}

// parseExpression runs precedence-climbing parsing with the given
// right-binding-power floor.
func (p *Parser) parseExpression(minBp bindingPower) ast.Expr {
	left := p.parsePrefix()
	for minBp < lbp(p.cur()) {
		// '.' not followed by an identifier terminates the statement.
		if p.cur().Lexeme == "." && p.peekAt(1).Kind != lexer.KindIdentifier {
			break
		}
		left = p.parseInfix(left)
	}
	return left
}

func (p *Parser) parsePrefix() ast.Expr {
	t := p.cur()
	switch {
	case t.Lexeme == "!":
		p.advance()
		operand := p.parseExpression(bpUnary)
		return &ast.UnaryExpr{Op: ast.OpNot, Operand: operand, Span: span.Join(t.Span, operand.ExprSpan())}
	case t.Lexeme == "-":
		p.advance()
		operand := p.parseExpression(bpUnary)
		return &ast.UnaryExpr{Op: ast.OpNeg, Operand: operand, Span: span.Join(t.Span, operand.ExprSpan())}
	case t.Lexeme == "(":
		p.advance()
		inner := p.parseExpression(0)
		end, _ := p.expectDelim(")")
		return &ast.GroupedExpr{Inner: inner, Span: span.Join(t.Span, end.Span)}
	case t.Lexeme == "[":
		return p.parseArrayLiteral()
	case t.Lexeme == "{":
		return p.parseMapLiteral()
	case t.Kind == lexer.KindRegex:
		p.advance()
		pattern, flags := t.Lexeme, ""
		if idx := strings.IndexByte(t.Lexeme, 0); idx >= 0 {
			pattern, flags = t.Lexeme[:idx], t.Lexeme[idx+1:]
		}
		return &ast.RegexExpr{Pattern: pattern, Flags: flags, Span: t.Span}
	case t.Kind == lexer.KindLiteral:
		return p.parseLiteralExpr()
	case t.Lexeme == "<":
		return p.parseBracketedAtom()
	default:
		p.errorf(t.Span, "unexpected %q at start of expression", t.Lexeme)
		p.advance()
		return &ast.LiteralExpr{Kind: ast.LitString, Text: "", Span: t.Span}
	}
}

// parseBracketedAtom handles the three things "<...>" can open in
// expression position: existence checks ("<exists x>") and ordinary
// variable references / literals. Type checks are written after the
// closing bracket ("<x> is a string") and handled as postfix by
// parseInfix.
func (p *Parser) parseBracketedAtom() ast.Expr {
	start, _ := p.expectDelim("<")

	if p.cur().Kind == lexer.KindIdentifier && strings.EqualFold(p.cur().Lexeme, "exists") {
		p.advance()
		refNoun := p.parseHyphenatedIdentifier()
		end, _ := p.expectDelim(">")
		ref := &ast.VariableRefExpr{Noun: ast.QualifiedNoun{Base: refNoun}, Span: span.Join(start.Span, end.Span)}
		return &ast.ExistenceExpr{Ref: ref, Span: ref.Span}
	}

	if p.cur().Kind == lexer.KindLiteral {
		lit := p.parseLiteralExpr()
		p.expectDelim(">")
		return lit
	}

	noun := ast.QualifiedNoun{Base: p.parseHyphenatedIdentifier()}
	for p.cur().Lexeme == "." {
		p.advance()
		if p.cur().Kind == lexer.KindIdentifier {
			noun.Specifiers = append(noun.Specifiers, p.advance().Lexeme)
		} else {
			noun.Generic = true
			break
		}
	}
	end, _ := p.expectDelim(">")
	return &ast.VariableRefExpr{Noun: noun, Span: span.Join(start.Span, end.Span)}
}

func (p *Parser) parseLiteralExpr() ast.Expr {
	t := p.advance()
	switch t.LiteralKind {
	case lexer.LiteralInteger:
		return &ast.LiteralExpr{Kind: ast.LitInteger, Text: t.Lexeme, Span: t.Span}
	case lexer.LiteralFloat:
		return &ast.LiteralExpr{Kind: ast.LitFloat, Text: t.Lexeme, Span: t.Span}
	case lexer.LiteralBoolean:
		return &ast.LiteralExpr{Kind: ast.LitBoolean, Text: t.Lexeme, Span: t.Span}
	case lexer.LiteralInterpString:
		return p.buildInterpExpr(t)
	default:
		return &ast.LiteralExpr{Kind: ast.LitString, Text: t.Lexeme, Span: t.Span}
	}
}

func (p *Parser) buildInterpExpr(t lexer.Token) ast.Expr {
	ie := &ast.InterpolatedStringExpr{Span: t.Span}
	for _, seg := range t.Segments {
		if seg.Expr == nil {
			ie.Parts = append(ie.Parts, ast.InterpPart{Text: seg.Text})
			continue
		}
		sub := &Parser{toks: seg.Expr, diags: p.diags}
		inner := sub.parseExpression(0)
		ie.Parts = append(ie.Parts, ast.InterpPart{Expr: inner})
	}
	return ie
}

func (p *Parser) parseArrayLiteral() ast.Expr {
	start, _ := p.expectDelim("[")
	arr := &ast.ArrayLiteralExpr{}
	for !p.atEOF() && p.cur().Lexeme != "]" {
		arr.Elements = append(arr.Elements, p.parseExpression(0))
		if p.cur().Lexeme == "," {
			p.advance()
		} else {
			break
		}
	}
	end, _ := p.expectDelim("]")
	arr.Span = span.Join(start.Span, end.Span)
	return arr
}

func (p *Parser) parseMapLiteral() ast.Expr {
	start, _ := p.expectDelim("{")
	m := &ast.MapLiteralExpr{}
	for !p.atEOF() && p.cur().Lexeme != "}" {
		key := p.parseExpression(bpPostfix + 1)
		p.expectDelim(":")
		val := p.parseExpression(0)
		m.Entries = append(m.Entries, ast.MapEntry{Key: key, Value: val})
		if p.cur().Lexeme == "," {
			p.advance()
		} else {
			break
		}
	}
	end, _ := p.expectDelim("}")
	m.Span = span.Join(start.Span, end.Span)
	return m
}

func (p *Parser) parseInfix(left ast.Expr) ast.Expr {
	t := p.cur()

	if t.Lexeme == "." {
		p.advance()
		if p.cur().Kind == lexer.KindIdentifier {
			member := p.advance()
			return &ast.MemberExpr{Object: left, Member: member.Lexeme, Span: span.Join(left.ExprSpan(), member.Span)}
		}
		p.errorf(p.cur().Span, "expected member name after '.'")
		return left
	}
	if t.Lexeme == "[" {
		p.advance()
		idx := p.parseExpression(0)
		end, _ := p.expectDelim("]")
		return &ast.SubscriptExpr{Object: left, Index: idx, Span: span.Join(left.ExprSpan(), end.Span)}
	}
	if t.Kind == lexer.KindIdentifier {
		switch strings.ToLower(t.Lexeme) {
		case "contains":
			p.advance()
			right := p.parseExpression(bpEquality)
			return &ast.BinaryExpr{Op: ast.OpContains, Left: left, Right: right, Span: span.Join(left.ExprSpan(), right.ExprSpan())}
		case "matches":
			p.advance()
			right := p.parseExpression(bpEquality)
			return &ast.BinaryExpr{Op: ast.OpMatches, Left: left, Right: right, Span: span.Join(left.ExprSpan(), right.ExprSpan())}
		case "is":
			p.advance()
			p.consumeArticle()
			typeName := p.advance().Lexeme
			return &ast.TypeCheckExpr{Subject: left, TypeName: typeName, Span: left.ExprSpan()}
		}
	}

	p.advance()
	bp := lbp(t)
	right := p.parseExpression(bp)
	op, ok := binOpFor(t.Lexeme)
	if !ok {
		p.errorf(t.Span, "unknown binary operator %q", t.Lexeme)
		return left
	}
	return &ast.BinaryExpr{Op: op, Left: left, Right: right, Span: span.Join(left.ExprSpan(), right.ExprSpan())}
}

func binOpFor(lexeme string) (ast.BinOp, bool) {
	switch lexeme {
	case "+":
		return ast.OpAdd, true
	case "-":
		return ast.OpSub, true
	case "*":
		return ast.OpMul, true
	case "/":
		return ast.OpDiv, true
	case "++":
		return ast.OpConcat, true
	case "==":
		return ast.OpEq, true
	case "!=":
		return ast.OpNeq, true
	case "<=":
		return ast.OpLte, true
	case ">=":
		return ast.OpGte, true
	case "&&":
		return ast.OpAnd, true
	case "||":
		return ast.OpOr, true
	default:
		return 0, false
	}
}

func ensureQuery(stmt *ast.AROStatement) *ast.QueryModifiers {
	if stmt.Query == nil {
		stmt.Query = &ast.QueryModifiers{}
	}
	return stmt.Query
}

func ensureRange(stmt *ast.AROStatement) *ast.RangeModifiers {
	if stmt.Range == nil {
		stmt.Range = &ast.RangeModifiers{}
	}
	return stmt.Range
}
