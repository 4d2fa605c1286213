package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arolang/aro-sub011/internal/aro/ast"
	"github.com/arolang/aro-sub011/internal/aro/runtime"
	"github.com/arolang/aro-sub011/internal/aro/types"
)

func lit(kind ast.LitKind, text string) ast.Expr {
	return &ast.LiteralExpr{Kind: kind, Text: text}
}

func ref(name string) ast.Expr {
	return &ast.VariableRefExpr{Noun: ast.QualifiedNoun{Base: name}}
}

func bin(op ast.BinOp, l, r ast.Expr) ast.Expr {
	return &ast.BinaryExpr{Op: op, Left: l, Right: r}
}

func Test_Evaluate_intArithmeticStaysInteger(t *testing.T) {
	ctx := runtime.New("checkout", "machine")
	v, err := Evaluate(bin(ast.OpAdd, lit(ast.LitInteger, "2"), lit(ast.LitInteger, "3")), ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Int(5), v)
}

func Test_Evaluate_intDivisionPromotesToFloatWhenInexact(t *testing.T) {
	ctx := runtime.New("checkout", "machine")
	v, err := Evaluate(bin(ast.OpDiv, lit(ast.LitInteger, "7"), lit(ast.LitInteger, "2")), ctx)
	require.NoError(t, err)
	assert.Equal(t, types.KindFloat, v.Type.Kind)
	assert.InDelta(t, 3.5, v.Raw.(float64), 0.0001)
}

func Test_Evaluate_intDivisionStaysIntegerWhenExact(t *testing.T) {
	ctx := runtime.New("checkout", "machine")
	v, err := Evaluate(bin(ast.OpDiv, lit(ast.LitInteger, "6"), lit(ast.LitInteger, "3")), ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Int(2), v)
}

func Test_Evaluate_concatBuildsString(t *testing.T) {
	ctx := runtime.New("checkout", "machine")
	v, err := Evaluate(bin(ast.OpConcat, lit(ast.LitString, "order-"), lit(ast.LitInteger, "42")), ctx)
	require.NoError(t, err)
	assert.Equal(t, "order-42", v.AsString())
}

func Test_Evaluate_equalityCoercesIntAndFloat(t *testing.T) {
	ctx := runtime.New("checkout", "machine")
	v, err := Evaluate(bin(ast.OpEq, lit(ast.LitInteger, "3"), lit(ast.LitFloat, "3.0")), ctx)
	require.NoError(t, err)
	assert.True(t, v.AsBool())
}

func Test_Evaluate_variableRefResolvesFromContext(t *testing.T) {
	ctx := runtime.New("checkout", "machine")
	ctx.Bind("total", types.Int(10), false)
	v, err := Evaluate(ref("total"), ctx)
	require.NoError(t, err)
	assert.Equal(t, types.Int(10), v)
}

func Test_Evaluate_unboundVariableRefIsError(t *testing.T) {
	ctx := runtime.New("checkout", "machine")
	_, err := Evaluate(ref("missing"), ctx)
	assert.Error(t, err)
}

func Test_Evaluate_memberAccessOnMapLiteral(t *testing.T) {
	ctx := runtime.New("checkout", "machine")
	m := &ast.MapLiteralExpr{Entries: []ast.MapEntry{
		{Key: lit(ast.LitString, "status"), Value: lit(ast.LitString, "paid")},
	}}
	v, err := Evaluate(&ast.MemberExpr{Object: m, Member: "status"}, ctx)
	require.NoError(t, err)
	assert.Equal(t, "paid", v.AsString())
}

func Test_Evaluate_subscriptIsReverseIndexed(t *testing.T) {
	ctx := runtime.New("checkout", "machine")
	arr := &ast.ArrayLiteralExpr{Elements: []ast.Expr{
		lit(ast.LitString, "first"), lit(ast.LitString, "second"), lit(ast.LitString, "third"),
	}}
	v, err := Evaluate(&ast.SubscriptExpr{Object: arr, Index: lit(ast.LitInteger, "0")}, ctx)
	require.NoError(t, err)
	assert.Equal(t, "third", v.AsString())
}

func Test_Evaluate_containsOnString(t *testing.T) {
	ctx := runtime.New("checkout", "machine")
	v, err := Evaluate(bin(ast.OpContains, lit(ast.LitString, "hello world"), lit(ast.LitString, "world")), ctx)
	require.NoError(t, err)
	assert.True(t, v.AsBool())
}

func Test_Evaluate_matchesAgainstStringPattern(t *testing.T) {
	ctx := runtime.New("checkout", "machine")
	v, err := Evaluate(bin(ast.OpMatches, lit(ast.LitString, "ORD-123"), lit(ast.LitString, `^ORD-\d+$`)), ctx)
	require.NoError(t, err)
	assert.True(t, v.AsBool())
}

func Test_Evaluate_matchesAgainstRegexLiteralWithFlags(t *testing.T) {
	ctx := runtime.New("checkout", "machine")
	v, err := Evaluate(bin(ast.OpMatches, lit(ast.LitString, "HELLO"), &ast.RegexExpr{Pattern: "^hello$", Flags: "i"}), ctx)
	require.NoError(t, err)
	assert.True(t, v.AsBool())
}

func Test_Evaluate_existenceFalseForUnboundName(t *testing.T) {
	ctx := runtime.New("checkout", "machine")
	v, err := Evaluate(&ast.ExistenceExpr{Ref: &ast.VariableRefExpr{Noun: ast.QualifiedNoun{Base: "ghost"}}}, ctx)
	require.NoError(t, err)
	assert.False(t, v.AsBool())
}

func Test_Evaluate_typeCheckMatchesKind(t *testing.T) {
	ctx := runtime.New("checkout", "machine")
	v, err := Evaluate(&ast.TypeCheckExpr{Subject: lit(ast.LitString, "hi"), TypeName: "string"}, ctx)
	require.NoError(t, err)
	assert.True(t, v.AsBool())
}

func Test_Evaluate_andShortCircuitsOnFalse(t *testing.T) {
	ctx := runtime.New("checkout", "machine")
	v, err := Evaluate(bin(ast.OpAnd, lit(ast.LitBoolean, "false"), ref("never-bound")), ctx)
	require.NoError(t, err)
	assert.False(t, v.AsBool())
}
