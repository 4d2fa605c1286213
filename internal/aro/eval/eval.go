// Package eval implements the pure expression evaluator from spec.md
// §4.8: (expression, context) -> value, with arithmetic int/float
// promotion, string concatenation, int/float/date-by-epoch comparison
// coercion, contains/matches, member/subscript navigation, and
// existence/type-check semantics. The dispatch shape (one function per
// ast.Expr variant via FoldExpr) continues the sum-type traversal style
// established in internal/aro/ast, generalizing the teacher's
// tunascript/eval.go switch-on-node-kind evaluator to a Fold callback set.
package eval

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/arolang/aro-sub011/internal/aro/ast"
	"github.com/arolang/aro-sub011/internal/aro/runtime"
	"github.com/arolang/aro-sub011/internal/aro/types"
)

// Error is an expression-evaluation failure message, surfaced by the
// executor as an ExpressionError per spec.md §7. It carries no source
// span.
type Error struct {
	Message string
}

func (e *Error) Error() string { return e.Message }

func errf(format string, args ...any) error {
	return &Error{Message: fmt.Sprintf(format, args...)}
}

type result struct {
	v   types.Value
	err error
}

// Evaluate computes the value of e against ctx.
func Evaluate(e ast.Expr, ctx *runtime.Context) (types.Value, error) {
	r, _ := ast.FoldExpr(e, ast.ExprVisitor{
		Literal:     func(n *ast.LiteralExpr) any { return evalLiteral(n) },
		Interp:      func(n *ast.InterpolatedStringExpr) any { return evalInterp(n, ctx) },
		VariableRef: func(n *ast.VariableRefExpr) any { return evalVariableRef(n, ctx) },
		Array:       func(n *ast.ArrayLiteralExpr) any { return evalArray(n, ctx) },
		Map:         func(n *ast.MapLiteralExpr) any { return evalMap(n, ctx) },
		Binary:      func(n *ast.BinaryExpr) any { return evalBinary(n, ctx) },
		Unary:       func(n *ast.UnaryExpr) any { return evalUnary(n, ctx) },
		Member:      func(n *ast.MemberExpr) any { return evalMember(n, ctx) },
		Subscript:   func(n *ast.SubscriptExpr) any { return evalSubscript(n, ctx) },
		Grouped:     func(n *ast.GroupedExpr) any { v, err := Evaluate(n.Inner, ctx); return result{v, err} },
		Existence:   func(n *ast.ExistenceExpr) any { return evalExistence(n, ctx) },
		TypeCheck:   func(n *ast.TypeCheckExpr) any { return evalTypeCheck(n, ctx) },
		Regex:       func(n *ast.RegexExpr) any { return evalRegex(n) },
	}).(result)
	return r.v, r.err
}

func ok(v types.Value) result        { return result{v: v} }
func fail(err error) result          { return result{err: err} }
func failf(f string, a ...any) result { return result{err: errf(f, a...)} }

func evalLiteral(n *ast.LiteralExpr) any {
	switch n.Kind {
	case ast.LitInteger:
		return ok(parseIntLiteral(n.Text))
	case ast.LitFloat:
		return ok(parseFloatLiteral(n.Text))
	case ast.LitBoolean:
		return ok(types.Bool(strings.EqualFold(n.Text, "true")))
	default:
		return ok(types.Str(n.Text))
	}
}

func evalInterp(n *ast.InterpolatedStringExpr, ctx *runtime.Context) any {
	var sb strings.Builder
	for _, part := range n.Parts {
		if part.Expr == nil {
			sb.WriteString(part.Text)
			continue
		}
		v, err := Evaluate(part.Expr, ctx)
		if err != nil {
			return fail(err)
		}
		sb.WriteString(v.AsString())
	}
	return ok(types.Str(sb.String()))
}

func evalVariableRef(n *ast.VariableRefExpr, ctx *runtime.Context) any {
	name := n.Noun.String()
	if v, found := ctx.Resolve(n.Noun.Base); found {
		if len(n.Noun.Specifiers) == 0 {
			return ok(v)
		}
		return navigateSpecifiers(v, n.Noun.Specifiers)
	}
	return failf("%q is not bound", name)
}

// ResolveNoun resolves a QualifiedNoun the same way a VariableRefExpr
// does (base lookup plus specifier-chain member navigation), exported so
// the actions package can resolve Result/Object descriptors without
// duplicating member-navigation logic.
func ResolveNoun(ctx *runtime.Context, noun ast.QualifiedNoun) (types.Value, error) {
	v, found := ctx.Resolve(noun.Base)
	if !found {
		return types.Value{}, errf("%q is not bound", noun.String())
	}
	if len(noun.Specifiers) == 0 {
		return v, nil
	}
	r := navigateSpecifiers(v, noun.Specifiers)
	return r.v, r.err
}

// ValuesEqual exposes the language-level "==" coercion (int/float,
// schema-by-epoch) to callers outside this package, such as the
// feature-set executor's Match statement, so they do not reimplement
// numAwareEqual's rules.
func ValuesEqual(l, r types.Value) bool {
	return numAwareEqual(l, r)
}

func navigateSpecifiers(v types.Value, specifiers []string) result {
	cur := v
	for _, spec := range specifiers {
		next, err := memberOf(cur, spec)
		if err != nil {
			return fail(err)
		}
		cur = next
	}
	return ok(cur)
}

func evalArray(n *ast.ArrayLiteralExpr, ctx *runtime.Context) any {
	items := make([]types.Value, 0, len(n.Elements))
	for _, el := range n.Elements {
		v, err := Evaluate(el, ctx)
		if err != nil {
			return fail(err)
		}
		items = append(items, v)
	}
	return ok(types.Arr(items...))
}

func evalMap(n *ast.MapLiteralExpr, ctx *runtime.Context) any {
	m := make(map[string]types.Value, len(n.Entries))
	for _, ent := range n.Entries {
		k, err := Evaluate(ent.Key, ctx)
		if err != nil {
			return fail(err)
		}
		v, err := Evaluate(ent.Value, ctx)
		if err != nil {
			return fail(err)
		}
		m[k.AsString()] = v
	}
	return ok(types.Obj(m))
}

func evalUnary(n *ast.UnaryExpr, ctx *runtime.Context) any {
	v, err := Evaluate(n.Operand, ctx)
	if err != nil {
		return fail(err)
	}
	switch n.Op {
	case ast.OpNot:
		return ok(types.Bool(!v.AsBool()))
	case ast.OpNeg:
		f, isInt, err := asNumber(v)
		if err != nil {
			return fail(err)
		}
		if isInt {
			return ok(types.Int(-int64(f)))
		}
		return ok(types.Flt(-f))
	default:
		return failf("unknown unary operator")
	}
}

func evalMember(n *ast.MemberExpr, ctx *runtime.Context) any {
	v, err := Evaluate(n.Object, ctx)
	if err != nil {
		return fail(err)
	}
	m, err := memberOf(v, n.Member)
	if err != nil {
		return fail(err)
	}
	return ok(m)
}

func memberOf(v types.Value, member string) (types.Value, error) {
	switch v.Type.Kind {
	case types.KindMap:
		fields, _ := v.Raw.(map[string]types.Value)
		if field, ok := fields[member]; ok {
			return field, nil
		}
		return types.Value{}, errf("map has no field %q", member)
	case types.KindSchema:
		schema, _ := v.Raw.(types.Schema)
		if schema == nil {
			return types.Value{}, errf("schema value has no properties")
		}
		if field, ok := schema.Property(member); ok {
			return field, nil
		}
		return types.Value{}, errf("%s has no property %q", schema.SchemaName(), member)
	default:
		return types.Value{}, errf("cannot access member %q of a %s", member, v.Type)
	}
}

func evalSubscript(n *ast.SubscriptExpr, ctx *runtime.Context) any {
	obj, err := Evaluate(n.Object, ctx)
	if err != nil {
		return fail(err)
	}
	idxVal, err := Evaluate(n.Index, ctx)
	if err != nil {
		return fail(err)
	}
	if obj.Type.Kind != types.KindList {
		return failf("cannot subscript a %s", obj.Type)
	}
	items, _ := obj.Raw.([]types.Value)
	idx, _, err := asNumber(idxVal)
	if err != nil {
		return fail(err)
	}
	// index 0 means "most recent" (reverse indexing).
	pos := len(items) - 1 - int(idx)
	if pos < 0 || pos >= len(items) {
		return failf("index %d out of range for a list of length %d", int64(idx), len(items))
	}
	return ok(items[pos])
}

func evalExistence(n *ast.ExistenceExpr, ctx *runtime.Context) any {
	_, found := ctx.Resolve(n.Ref.Noun.Base)
	return ok(types.Bool(found))
}

func evalTypeCheck(n *ast.TypeCheckExpr, ctx *runtime.Context) any {
	v, err := Evaluate(n.Subject, ctx)
	if err != nil {
		return ok(types.Bool(false))
	}
	return ok(types.Bool(strings.EqualFold(v.Type.Kind.String(), n.TypeName)))
}

func evalRegex(n *ast.RegexExpr) any {
	return ok(types.Obj(map[string]types.Value{
		"pattern": types.Str(n.Pattern),
		"flags":   types.Str(n.Flags),
	}))
}

func evalBinary(n *ast.BinaryExpr, ctx *runtime.Context) any {
	l, err := Evaluate(n.Left, ctx)
	if err != nil {
		return fail(err)
	}

	// short-circuit boolean operators
	if n.Op == ast.OpAnd && !l.AsBool() {
		return ok(types.Bool(false))
	}
	if n.Op == ast.OpOr && l.AsBool() {
		return ok(types.Bool(true))
	}

	r, err := Evaluate(n.Right, ctx)
	if err != nil {
		return fail(err)
	}

	switch n.Op {
	case ast.OpAdd, ast.OpSub, ast.OpMul, ast.OpDiv:
		return arithmetic(n.Op, l, r)
	case ast.OpConcat:
		return ok(types.Str(l.AsString() + r.AsString()))
	case ast.OpEq:
		return ok(types.Bool(numAwareEqual(l, r)))
	case ast.OpNeq:
		return ok(types.Bool(!numAwareEqual(l, r)))
	case ast.OpLte:
		return compare(l, r, func(c int) bool { return c <= 0 })
	case ast.OpGte:
		return compare(l, r, func(c int) bool { return c >= 0 })
	case ast.OpAnd:
		return ok(types.Bool(r.AsBool()))
	case ast.OpOr:
		return ok(types.Bool(r.AsBool()))
	case ast.OpContains:
		return contains(l, r)
	case ast.OpMatches:
		return matches(l, r)
	default:
		return failf("unknown binary operator")
	}
}

func arithmetic(op ast.BinOp, l, r types.Value) result {
	lf, lInt, err := asNumber(l)
	if err != nil {
		return fail(err)
	}
	rf, rInt, err := asNumber(r)
	if err != nil {
		return fail(err)
	}

	var f float64
	switch op {
	case ast.OpAdd:
		f = lf + rf
	case ast.OpSub:
		f = lf - rf
	case ast.OpMul:
		f = lf * rf
	case ast.OpDiv:
		if rf == 0 {
			return failf("division by zero")
		}
		f = lf / rf
	}

	if lInt && rInt {
		if op == ast.OpDiv {
			if int64(lf)%int64(rf) == 0 {
				return ok(types.Int(int64(lf) / int64(rf)))
			}
			return ok(types.Flt(f))
		}
		return ok(types.Int(int64(f)))
	}
	return ok(types.Flt(f))
}

// asNumber coerces v to a float64, reporting whether v was an integer
// (for int-preservation in arithmetic).
func asNumber(v types.Value) (float64, bool, error) {
	switch v.Type.Kind {
	case types.KindInteger:
		n, _ := v.Raw.(int64)
		return float64(n), true, nil
	case types.KindFloat:
		f, _ := v.Raw.(float64)
		return f, false, nil
	default:
		return 0, false, errf("expected a number, found a %s", v.Type)
	}
}

// numAwareEqual implements "==" per spec.md §4.8: int and float operands
// coerce before comparing (3 == 3.0 is true), distinct from
// types.Value.Equal's strict-type dedup semantics used by the
// repository.
func numAwareEqual(l, r types.Value) bool {
	if isNumeric(l) && isNumeric(r) {
		lf, _, _ := asNumber(l)
		rf, _, _ := asNumber(r)
		return lf == rf
	}
	if l.Type.Kind == types.KindSchema && r.Type.Kind == types.KindSchema {
		if c, hasEpoch := epochCompare(l, r); hasEpoch {
			return c == 0
		}
	}
	return l.Equal(r)
}

func isNumeric(v types.Value) bool {
	return v.Type.Kind == types.KindInteger || v.Type.Kind == types.KindFloat
}

func epochCompare(l, r types.Value) (int, bool) {
	lEpoch, lOK := epochOf(l)
	rEpoch, rOK := epochOf(r)
	if !lOK || !rOK {
		return 0, false
	}
	switch {
	case lEpoch < rEpoch:
		return -1, true
	case lEpoch > rEpoch:
		return 1, true
	default:
		return 0, true
	}
}

func epochOf(v types.Value) (int64, bool) {
	schema, ok := v.Raw.(types.Schema)
	if !ok {
		return 0, false
	}
	prop, ok := schema.Property("epoch")
	if !ok {
		return 0, false
	}
	f, _, err := asNumber(prop)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

func compare(l, r types.Value, accept func(int) bool) result {
	if l.Type.Kind == types.KindSchema && r.Type.Kind == types.KindSchema {
		if c, hasEpoch := epochCompare(l, r); hasEpoch {
			return ok(types.Bool(accept(c)))
		}
	}
	if isNumeric(l) && isNumeric(r) {
		lf, _, _ := asNumber(l)
		rf, _, _ := asNumber(r)
		switch {
		case lf < rf:
			return ok(types.Bool(accept(-1)))
		case lf > rf:
			return ok(types.Bool(accept(1)))
		default:
			return ok(types.Bool(accept(0)))
		}
	}
	if l.Type.Kind == types.KindString && r.Type.Kind == types.KindString {
		ls, _ := l.Raw.(string)
		rs, _ := r.Raw.(string)
		return ok(types.Bool(accept(strings.Compare(ls, rs))))
	}
	return failf("cannot compare a %s to a %s", l.Type, r.Type)
}

func contains(l, r types.Value) result {
	switch l.Type.Kind {
	case types.KindList:
		items, _ := l.Raw.([]types.Value)
		for _, item := range items {
			if numAwareEqual(item, r) {
				return ok(types.Bool(true))
			}
		}
		return ok(types.Bool(false))
	case types.KindString:
		if r.Type.Kind != types.KindString {
			return failf("contains on a string requires a string operand")
		}
		ls, _ := l.Raw.(string)
		rs, _ := r.Raw.(string)
		return ok(types.Bool(strings.Contains(ls, rs)))
	case types.KindMap:
		fields, _ := l.Raw.(map[string]types.Value)
		_, found := fields[r.AsString()]
		return ok(types.Bool(found))
	default:
		return failf("cannot use contains on a %s", l.Type)
	}
}

func matches(l, r types.Value) result {
	if l.Type.Kind != types.KindString {
		return failf("matches requires a string left-hand side")
	}
	subject, _ := l.Raw.(string)

	var pattern, flags string
	switch r.Type.Kind {
	case types.KindString:
		pattern, _ = r.Raw.(string)
	case types.KindMap:
		fields, _ := r.Raw.(map[string]types.Value)
		if p, ok := fields["pattern"]; ok {
			pattern = p.AsString()
		}
		if f, ok := fields["flags"]; ok {
			flags = f.AsString()
		}
	default:
		return failf("matches requires a string pattern or a {pattern, flags} map")
	}

	goFlags := regexFlagPrefix(flags)
	re, err := regexp.Compile(goFlags + pattern)
	if err != nil {
		return fail(errf("invalid regex pattern %q: %v", pattern, err))
	}
	return ok(types.Bool(re.MatchString(subject)))
}

// regexFlagPrefix translates the language's i/s/m flags (case-insensitive,
// dot-matches-newline, multiline) to Go regexp's inline flag syntax.
func regexFlagPrefix(flags string) string {
	var goFlags []byte
	for _, f := range flags {
		switch f {
		case 'i', 's', 'm':
			goFlags = append(goFlags, byte(f))
		}
	}
	if len(goFlags) == 0 {
		return ""
	}
	return "(?" + string(goFlags) + ")"
}

func parseIntLiteral(text string) types.Value {
	var n int64
	neg := false
	i := 0
	if i < len(text) && text[i] == '-' {
		neg = true
		i++
	}
	for ; i < len(text); i++ {
		c := text[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int64(c-'0')
	}
	if neg {
		n = -n
	}
	return types.Int(n)
}

func parseFloatLiteral(text string) types.Value {
	var f float64
	fmt.Sscanf(text, "%g", &f)
	return types.Flt(f)
}
