package exec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arolang/aro-sub011/internal/aro/actions"
	"github.com/arolang/aro-sub011/internal/aro/ast"
	"github.com/arolang/aro-sub011/internal/aro/events"
	"github.com/arolang/aro-sub011/internal/aro/repository"
	"github.com/arolang/aro-sub011/internal/aro/runtime"
	"github.com/arolang/aro-sub011/internal/aro/types"
)

func newTestContext() *runtime.Context {
	ctx := runtime.New("Order Processing", "machine")
	ctx.RegisterService("repositories", repository.NewStore())
	ctx.RegisterService("eventbus", events.New(4))
	ctx.SetGlobals(runtime.NewGlobals())
	return ctx
}

func qn(base string, specifiers ...string) ast.QualifiedNoun {
	return ast.QualifiedNoun{Base: base, Specifiers: specifiers}
}

func lit(kind ast.LitKind, text string) ast.Expr {
	return &ast.LiteralExpr{Kind: kind, Text: text}
}

func ref(name string) ast.Expr {
	return &ast.VariableRefExpr{Noun: qn(name)}
}

// "Compute the total from <2> + <3>." binds directly without dispatching
// an action, per spec.md §4.6 step 1.
func Test_Run_expressionBindShortcutSkipsActionDispatch(t *testing.T) {
	ctx := newTestContext()
	fs := &ast.FeatureSet{
		Name:             "Totals",
		BusinessActivity: "Order Processing",
		Statements: []ast.Stmt{
			&ast.AROStatement{
				Verb:   "Compute",
				Result: qn("total"),
				Value:  ast.ValueSource{Kind: ast.ValueExpression, Expr: &ast.BinaryExpr{Op: ast.OpAdd, Left: lit(ast.LitInteger, "2"), Right: lit(ast.LitInteger, "3")}},
				Object: &ast.ObjectClause{Preposition: "from", Noun: qn("_expression_")},
			},
		},
	}
	resp, err := Run(fs, ctx, actions.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)

	v, ok := ctx.Resolve("total")
	require.True(t, ok)
	assert.Equal(t, int64(5), v.Raw)
}

// "Return the OK with sum." stops the feature set and surfaces the
// response instead of running later statements.
func Test_Run_returnShortCircuitsFeatureSet(t *testing.T) {
	ctx := newTestContext()
	ctx.Bind("sum", types.Int(7), false)
	fs := &ast.FeatureSet{
		Name: "Checkout",
		Statements: []ast.Stmt{
			&ast.AROStatement{Verb: "Return", Result: qn("OK"), Range: &ast.RangeModifiers{With: ref("sum")}},
			&ast.AROStatement{Verb: "Store", Result: qn("order"), Object: &ast.ObjectClause{Preposition: "in", Noun: qn("order-repository")}},
		},
	}
	resp, err := Run(fs, ctx, actions.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
	fields := resp.Data.Raw.(map[string]types.Value)
	assert.Equal(t, types.Int(7), fields["sum"])
}

// An action failure aborts the feature set and surfaces as an Error
// Response (per spec.md §7), not as a bare Go error from Run — only an
// unknown verb is fatal enough to propagate as an error.
func Test_Run_actionFailureAbortsWithErrorResponse(t *testing.T) {
	ctx := newTestContext()
	fs := &ast.FeatureSet{
		Name: "Checkout",
		Statements: []ast.Stmt{
			&ast.AROStatement{Verb: "Delete", Result: qn("order"), Object: &ast.ObjectClause{Preposition: "from", Noun: qn("order-repository")}},
		},
	}
	resp, err := Run(fs, ctx, actions.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, "Error", resp.Status)

	execErr := ctx.ExecutionError()
	require.Error(t, execErr)
	aroErr, ok := execErr.(*AROError)
	require.True(t, ok)
	assert.Equal(t, "Delete", aroErr.Verb)
	assert.Equal(t, "Checkout", aroErr.FeatureSet)
}

// An unknown verb is the one ActionError kind spec.md §7 escalates to
// fatal, surfacing as a Go error from Run rather than an Error Response.
func Test_Run_unknownVerbIsFatal(t *testing.T) {
	ctx := newTestContext()
	fs := &ast.FeatureSet{
		Name: "Checkout",
		Statements: []ast.Stmt{
			&ast.AROStatement{Verb: "Teleport", Result: qn("order")},
		},
	}
	_, err := Run(fs, ctx, actions.NewRegistry())
	require.Error(t, err)
	_, ok := err.(*UnknownVerbError)
	require.True(t, ok)
}

// "when <condition>" skips the statement entirely when the guard is
// false, so the bound value stays unset.
func Test_Run_guardFalseSkipsStatement(t *testing.T) {
	ctx := newTestContext()
	fs := &ast.FeatureSet{
		Name: "Checkout",
		Statements: []ast.Stmt{
			&ast.AROStatement{
				Verb:   "Set",
				Result: qn("flag"),
				Guard:  lit(ast.LitBoolean, "false"),
				Value:  ast.ValueSource{Kind: ast.ValueExpression, Expr: lit(ast.LitBoolean, "true")},
				Object: &ast.ObjectClause{Preposition: "to", Noun: qn("_expression_")},
			},
		},
	}
	_, err := Run(fs, ctx, actions.NewRegistry())
	require.NoError(t, err)
	_, ok := ctx.Resolve("flag")
	assert.False(t, ok)
}

// ForEach binds the item name immutably per iteration and runs the body
// in a child context.
func Test_Run_forEachBindsItemPerIteration(t *testing.T) {
	ctx := newTestContext()
	ctx.Bind("amounts", types.Arr(types.Int(1), types.Int(2), types.Int(3)), false)
	var seen []int64
	registry := actions.NewRegistry()
	registry.Register("record", recordAction{seen: &seen})
	fs := &ast.FeatureSet{
		Name: "Sweep",
		Statements: []ast.Stmt{
			&ast.ForEachLoop{
				ItemName: "amount",
				Source:   ref("amounts"),
				Body: []ast.Stmt{
					&ast.AROStatement{
						Verb:   "Record",
						Result: qn("recorded"),
					},
				},
			},
		},
	}

	_, err := Run(fs, ctx, registry)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, seen)
}

type recordAction struct{ seen *[]int64 }

// Invoke reads the fixed loop-variable name "amount" rather than
// stmt.Result.Base: the Record statement's result name must differ from
// "amount" so binding the action's return value doesn't try to rebind
// the loop variable itself inside the same per-iteration child context.
func (r recordAction) Invoke(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
	v, ok := ctx.Resolve("amount")
	if !ok {
		return types.Value{}, nil
	}
	*r.seen = append(*r.seen, v.Raw.(int64))
	return v, nil
}

// Match runs the first matching case's body in a child context.
func Test_Run_matchRunsFirstMatchingCase(t *testing.T) {
	ctx := newTestContext()
	ctx.Bind("status", types.Str("paid"), false)
	fs := &ast.FeatureSet{
		Name: "Routing",
		Statements: []ast.Stmt{
			&ast.MatchStatement{
				Subject: ref("status"),
				Cases: []ast.MatchCase{
					{
						Value: lit(ast.LitString, "draft"),
						Body:  []ast.Stmt{&ast.AROStatement{Verb: "Return", Result: qn("Draft")}},
					},
					{
						Value: lit(ast.LitString, "paid"),
						Body:  []ast.Stmt{&ast.AROStatement{Verb: "Return", Result: qn("Paid")}},
					},
				},
			},
		},
	}
	resp, err := Run(fs, ctx, actions.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, "Paid", resp.Status)
}

// Require fails fast when the named dependency never resolved, aborting
// the feature set with an Error Response.
func Test_Run_requireFailsWhenDependencyMissing(t *testing.T) {
	ctx := newTestContext()
	fs := &ast.FeatureSet{
		Name: "Startup",
		Statements: []ast.Stmt{
			&ast.RequireStatement{Name: qn("database")},
		},
	}
	resp, err := Run(fs, ctx, actions.NewRegistry())
	require.NoError(t, err)
	assert.Equal(t, "Error", resp.Status)
}

// Publish writes into the shared Globals registry, visible to a sibling
// root context.
func Test_Run_publishStatementWritesToGlobals(t *testing.T) {
	globals := runtime.NewGlobals()
	a := newTestContext()
	a.SetGlobals(globals)
	b := newTestContext()
	b.SetGlobals(globals)

	a.Bind("user", types.Str("alice"), false)
	fs := &ast.FeatureSet{
		Name: "Security",
		Statements: []ast.Stmt{
			&ast.PublishStatement{Name: qn("user")},
		},
	}
	_, err := Run(fs, a, actions.NewRegistry())
	require.NoError(t, err)

	v, ok := b.Resolve("user")
	require.True(t, ok)
	assert.Equal(t, "alice", v.AsString())
}
