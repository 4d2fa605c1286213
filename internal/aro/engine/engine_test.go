package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arolang/aro-sub011/internal/aro/ast"
	"github.com/arolang/aro-sub011/internal/aro/runtime"
	"github.com/arolang/aro-sub011/internal/aro/sema"
	"github.com/arolang/aro-sub011/internal/aro/types"
)

func qn(base string, specifiers ...string) ast.QualifiedNoun {
	return ast.QualifiedNoun{Base: base, Specifiers: specifiers}
}

func lit(kind ast.LitKind, text string) ast.Expr {
	return &ast.LiteralExpr{Kind: kind, Text: text}
}

// funcAction adapts a plain function to actions.Action, for tests that
// need a custom verb without a dedicated named type.
type funcAction func(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error)

func (f funcAction) Invoke(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
	return f(ctx, stmt)
}

func program(sets ...*sema.AnalyzedFeatureSet) *sema.AnalyzedProgram {
	return &sema.AnalyzedProgram{FeatureSets: sets}
}

// Execute runs the named entry feature set and returns its Response,
// surfacing it to the caller as a Go value rather than a Go error.
func Test_Execute_runsEntryFeatureSet(t *testing.T) {
	eng := New(Config{})
	ap := program(&sema.AnalyzedFeatureSet{
		FeatureSet: &ast.FeatureSet{
			Name:             "Application-Start",
			BusinessActivity: "Startup",
			Statements: []ast.Stmt{
				&ast.AROStatement{Verb: "Return", Result: qn("OK")},
			},
		},
	})

	resp, err := eng.Execute(ap, "Application-Start")
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
}

// A missing entry point is a fatal condition the engine's caller must
// handle, per spec.md §4.7 step 1.
func Test_Execute_missingEntryPointErrors(t *testing.T) {
	eng := New(Config{})
	ap := program(&sema.AnalyzedFeatureSet{
		FeatureSet: &ast.FeatureSet{Name: "Application-Start", Statements: []ast.Stmt{}},
	})

	_, err := eng.Execute(ap, "Nonexistent")
	require.Error(t, err)
}

// An entry point that emits a domain event wires a "<Tag> Handler"
// feature set through the bus, and Execute's AwaitQuiescence call blocks
// until that handler has actually run.
func Test_Execute_wiresDomainHandlerAndAwaitsQuiescence(t *testing.T) {
	eng := New(Config{QuiescenceTimeout: time.Second})

	var mu sync.Mutex
	var captured string
	eng.Registry().Register("record", funcAction(func(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
		v, _ := ctx.Resolve("event")
		mu.Lock()
		captured = v.AsString()
		mu.Unlock()
		return v, nil
	}))

	entry := &sema.AnalyzedFeatureSet{
		FeatureSet: &ast.FeatureSet{
			Name:             "Application-Start",
			BusinessActivity: "Startup",
			Statements: []ast.Stmt{
				&ast.AROStatement{
					Verb:   "Emit",
					Result: qn("OrderCreated"),
					Range:  &ast.RangeModifiers{With: lit(ast.LitString, "order-42")},
				},
				&ast.AROStatement{Verb: "Return", Result: qn("OK")},
			},
		},
	}
	notify := &sema.AnalyzedFeatureSet{
		FeatureSet: &ast.FeatureSet{
			Name:             "Notify",
			BusinessActivity: "OrderCreated Handler",
			Statements: []ast.Stmt{
				&ast.AROStatement{Verb: "Record", Result: qn("captured")},
			},
		},
		HandlesTag: "OrderCreated",
	}

	resp, err := eng.Execute(program(entry, notify), "Application-Start")
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "order-42", captured)
}

// A "<repo>-repository Observer" feature set is wired to RepositoryChanged,
// filtered to its own repository name, and fires when Store touches a
// matching repository.
func Test_Execute_wiresRepositoryObserverFilteredByName(t *testing.T) {
	eng := New(Config{QuiescenceTimeout: time.Second})

	var mu sync.Mutex
	var changeType string
	eng.Registry().Register("record", funcAction(func(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
		v, _ := ctx.Resolve("event")
		fields, _ := v.Raw.(map[string]types.Value)
		mu.Lock()
		changeType = fields["changeType"].AsString()
		mu.Unlock()
		return v, nil
	}))

	entry := &sema.AnalyzedFeatureSet{
		FeatureSet: &ast.FeatureSet{
			Name:             "Application-Start",
			BusinessActivity: "Startup",
			Statements: []ast.Stmt{
				&ast.AROStatement{
					Verb:   "Set",
					Result: qn("order"),
					Value:  ast.ValueSource{Kind: ast.ValueExpression, Expr: lit(ast.LitString, "order-1")},
					Object: &ast.ObjectClause{Preposition: "to", Noun: qn("_expression_")},
				},
				&ast.AROStatement{
					Verb:   "Store",
					Result: qn("order"),
					Object: &ast.ObjectClause{Preposition: "in", Noun: qn("order-repository")},
				},
				&ast.AROStatement{Verb: "Return", Result: qn("OK")},
			},
		},
	}
	observer := &sema.AnalyzedFeatureSet{
		FeatureSet: &ast.FeatureSet{
			Name:             "Audit",
			BusinessActivity: "order-repository Observer",
			Statements: []ast.Stmt{
				&ast.AROStatement{Verb: "Record", Result: qn("captured")},
			},
		},
	}

	resp, err := eng.Execute(program(entry, observer), "Application-Start")
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "created", changeType)
}

// Application-End runs after the entry feature set, bound with a
// "shutdown" descriptor carrying the entry's outcome.
func Test_Execute_runsApplicationEndWithShutdownDescriptor(t *testing.T) {
	eng := New(Config{QuiescenceTimeout: time.Second})

	var mu sync.Mutex
	var reason string
	eng.Registry().Register("record", funcAction(func(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
		v, _ := ctx.Resolve("shutdown")
		fields, _ := v.Raw.(map[string]types.Value)
		mu.Lock()
		reason = fields["status"].AsString()
		mu.Unlock()
		return v, nil
	}))

	entry := &sema.AnalyzedFeatureSet{
		FeatureSet: &ast.FeatureSet{
			Name:             "Application-Start",
			BusinessActivity: "Startup",
			Statements: []ast.Stmt{
				&ast.AROStatement{Verb: "Return", Result: qn("OK")},
			},
		},
	}
	end := &sema.AnalyzedFeatureSet{
		FeatureSet: &ast.FeatureSet{
			Name:             "Application-End",
			BusinessActivity: "Success",
			Statements: []ast.Stmt{
				&ast.AROStatement{Verb: "Record", Result: qn("captured")},
			},
		},
	}

	resp, err := eng.Execute(program(entry, end), "Application-Start")
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "OK", reason)
}

// ShutdownCoordinator runs its callbacks exactly once and unblocks every
// waiter, whether Stop is called directly or more than once.
func Test_ShutdownCoordinator_stopRunsCallbacksOnceAndUnblocksWaiters(t *testing.T) {
	sc := NewShutdownCoordinator()
	var calls int
	sc.OnShutdown(func() { calls++ })

	done := make(chan struct{})
	go func() {
		sc.WaitForShutdown()
		close(done)
	}()

	sc.Stop()
	sc.Stop()

	<-done
	assert.Equal(t, 1, calls)
	assert.True(t, sc.Signal())
}
