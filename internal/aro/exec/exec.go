// Package exec implements the Feature-Set Executor from spec.md §4.6:
// sequential statement execution over a RuntimeContext, the
// "_expression_"/"_literal_" binding shortcuts, AROError enrichment of
// action failures, and response short-circuiting. The sequential,
// stop-on-response loop is grounded on the teacher's internal/command
// dispatch loop (internal/command/command.go), which walks a command
// list issuing one handler call at a time and stops early once a
// terminal outcome is reached.
//
// Per spec.md §7's propagation policy, an ActionError/ExpressionError
// inside a feature set becomes an AROError that aborts the feature set
// and is surfaced as an Error Response (recorded on the context via
// SetExecutionError too) — it is NOT returned as a Go error from Run.
// Only genuinely fatal conditions (an unknown verb, which signals a
// program bug rather than bad runtime data) propagate as a Go error, so
// the engine can treat them as unrecoverable per spec.md §7's last line.
package exec

import (
	"fmt"
	"strings"

	"github.com/dekarrin/rosed"

	"github.com/arolang/aro-sub011/internal/aro/actions"
	"github.com/arolang/aro-sub011/internal/aro/ast"
	"github.com/arolang/aro-sub011/internal/aro/eval"
	"github.com/arolang/aro-sub011/internal/aro/runtime"
	"github.com/arolang/aro-sub011/internal/aro/types"
	"github.com/arolang/aro-sub011/internal/aro/verbs"
)

const humanWrapWidth = 72

// AROError is an action failure enriched with statement context, per
// spec.md §7: "Cannot {verb} the {result} {preposition} the {object}".
// Result and Object hold the descriptor form of each noun (base plus
// '.'-joined specifiers), not the variable's resolved value.
type AROError struct {
	Verb        string
	Result      string
	Preposition string
	Object      string
	When        string // non-empty if the statement carried a guard clause
	FeatureSet  string
	Vars        map[string]string
	Cause       error
}

func (e *AROError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "cannot %s the %s", e.Verb, e.Result)
	if e.Object != "" {
		fmt.Fprintf(&sb, " %s the %s", e.Preposition, e.Object)
	}
	if e.When != "" {
		fmt.Fprintf(&sb, " when %s", e.When)
	}
	fmt.Fprintf(&sb, " (in %s): %v", e.FeatureSet, e.Cause)
	return sb.String()
}

func (e *AROError) Unwrap() error { return e.Cause }

// UnknownVerbError is the one ActionError kind spec.md §7 escalates to
// fatal even though it is otherwise an ordinary ActionError: an unknown
// verb means the program references an action that was never
// registered, a build-time mistake rather than a bad runtime value.
type UnknownVerbError struct {
	Verb string
}

func (e *UnknownVerbError) Error() string {
	return fmt.Sprintf("unknown verb %q", e.Verb)
}

func wrapAROError(featureSet string, stmt *ast.AROStatement, cause error) *AROError {
	if existing, ok := cause.(*AROError); ok {
		return existing
	}
	resultStr := descriptorString(stmt.Result.Base, stmt.Result.Specifiers)
	objectStr, preposition := "", ""
	if stmt.Object != nil {
		objectStr = descriptorString(stmt.Object.Noun.Base, stmt.Object.Noun.Specifiers)
		preposition = stmt.Object.Preposition
	}
	vars := map[string]string{"result": resultStr}
	if objectStr != "" {
		vars["object"] = objectStr
	}
	when := ""
	if stmt.Guard != nil {
		when = "guard condition"
	}
	return &AROError{
		Verb:        stmt.Verb,
		Result:      resultStr,
		Preposition: preposition,
		Object:      objectStr,
		When:        when,
		FeatureSet:  featureSet,
		Vars:        vars,
		Cause:       cause,
	}
}

func descriptorString(base string, specifiers []string) string {
	if len(specifiers) == 0 {
		return base
	}
	return base + "." + strings.Join(specifiers, ".")
}

// abort records err as both the context's execution error and an Error
// Response, implementing spec.md §7's "AROError aborts the feature set
// and is surfaced as the Response" policy for every non-fatal failure.
// In the "human" output context the Reason is line-wrapped for terminal
// display, the same rosed.Edit(...).Wrap(...) idiom the teacher uses for
// its own console/debug text.
func abort(ctx *runtime.Context, err *AROError) {
	ctx.SetExecutionError(err)
	reason := err.Error()
	if ctx.OutputContext() == "human" {
		reason = rosed.Edit(reason).Wrap(humanWrapWidth).String()
	}
	ctx.SetResponse(runtime.Response{Status: "Error", Reason: reason})
}

// Run executes fs's statements in source order against ctx, dispatching
// actions through registry. It returns the Response set by a
// response-role action, by an aborted (non-fatal) AROError, or
// Response::ok on normal completion. The returned error is non-nil only
// for a fatal condition (currently: an unknown verb).
func Run(fs *ast.FeatureSet, ctx *runtime.Context, registry *actions.Registry) (runtime.Response, error) {
	resp, err := runStatements(fs.Name, fs.Statements, ctx, registry)
	if err != nil {
		return runtime.Response{}, err
	}
	if resp != nil {
		return *resp, nil
	}
	return runtime.Response{Status: "OK"}, nil
}

// runStatements executes stmts in order, returning a non-nil *Response
// as soon as one is set on ctx (or by a nested block), and a non-nil
// error only for a fatal, unrecoverable failure.
func runStatements(featureSet string, stmts []ast.Stmt, ctx *runtime.Context, registry *actions.Registry) (*runtime.Response, error) {
	for _, stmt := range stmts {
		resp, err := execOne(featureSet, stmt, ctx, registry)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
		if r, ok := ctx.GetResponse(); ok {
			return &r, nil
		}
	}
	return nil, nil
}

func execOne(featureSet string, stmt ast.Stmt, ctx *runtime.Context, registry *actions.Registry) (*runtime.Response, error) {
	var resp *runtime.Response
	var fatal error

	ast.FoldStmt(stmt, ast.StmtVisitor{
		ARO: func(n *ast.AROStatement) any {
			fatal = execARO(featureSet, n, ctx, registry)
			return nil
		},
		Publish: func(n *ast.PublishStatement) any {
			execPublish(featureSet, n, ctx, registry)
			return nil
		},
		Require: func(n *ast.RequireStatement) any {
			execRequire(featureSet, n, ctx)
			return nil
		},
		Match: func(n *ast.MatchStatement) any {
			resp, fatal = execMatch(featureSet, n, ctx, registry)
			return nil
		},
		ForEach: func(n *ast.ForEachLoop) any {
			resp, fatal = execForEach(featureSet, n, ctx, registry)
			return nil
		},
	})
	return resp, fatal
}

// execARO returns a non-nil error only for the fatal unknown-verb case;
// every other failure is recorded on ctx via abort() and observed by the
// caller's subsequent ctx.GetResponse() check.
func execARO(featureSet string, stmt *ast.AROStatement, ctx *runtime.Context, registry *actions.Registry) error {
	if stmt.Guard != nil {
		keep, err := eval.Evaluate(stmt.Guard, ctx)
		if err != nil {
			abort(ctx, wrapAROError(featureSet, stmt, err))
			return nil
		}
		if !keep.AsBool() {
			return nil
		}
	}

	allowRebind := verbs.AllowsRebind(stmt.Verb)
	role := verbs.RoleOf(stmt.Verb)

	switch stmt.Value.Kind {
	case ast.ValueExpression, ast.ValueSink:
		v, err := eval.Evaluate(stmt.Value.Expr, ctx)
		if err != nil {
			abort(ctx, wrapAROError(featureSet, stmt, err))
			return nil
		}
		ctx.Bind("_expression_", v, true)
		if stmt.Object != nil && stmt.Object.Noun.Base == "_expression_" {
			ctx.Bind(stmt.Result.Base, v, allowRebind)
			if role != ast.RoleResponse {
				// "Set x to expr" / "Compute t from a*b": the bind itself
				// is the whole effect, no action dispatch follows.
				return nil
			}
		}
	case ast.ValueLiteral:
		v, err := eval.Evaluate(stmt.Value.Literal, ctx)
		if err != nil {
			abort(ctx, wrapAROError(featureSet, stmt, err))
			return nil
		}
		ctx.Bind("_literal_", v, true)
	}

	action, ok := registry.Lookup(stmt.Verb)
	if !ok {
		return &UnknownVerbError{Verb: stmt.Verb}
	}
	v, err := action.Invoke(ctx, stmt)
	if err != nil {
		abort(ctx, wrapAROError(featureSet, stmt, err))
		return nil
	}
	if role == ast.RoleExport && !allowRebind {
		// "Store the <order> ...": an already-bound result name keeps its
		// value instead of being rebound.
		if _, bound := ctx.Resolve(stmt.Result.Base); bound {
			return nil
		}
	}
	if role != ast.RoleResponse {
		ctx.Bind(stmt.Result.Base, v, allowRebind)
	}
	return nil
}

// execPublish runs "Publish the <name>." by delegating to the registry's
// Publish action against a synthetic statement, so the global-registry
// write stays in one place (internal/aro/actions) instead of being
// duplicated here.
func execPublish(featureSet string, n *ast.PublishStatement, ctx *runtime.Context, registry *actions.Registry) {
	stmt := syntheticStmt("Publish", n.Name)
	action, ok := registry.Lookup("publish")
	if !ok {
		abort(ctx, wrapAROError(featureSet, stmt, fmt.Errorf("publish action not registered")))
		return
	}
	if _, err := action.Invoke(ctx, stmt); err != nil {
		abort(ctx, wrapAROError(featureSet, stmt, err))
	}
}

// execRequire runs "Require the <name>." — sema already verified the
// dependency is declared at compile time; at run time this checks the
// name actually resolves, failing fast rather than letting a later,
// unrelated statement surface a confusing error.
func execRequire(featureSet string, n *ast.RequireStatement, ctx *runtime.Context) {
	if _, ok := ctx.Resolve(n.Name.Base); !ok {
		stmt := syntheticStmt("Require", n.Name)
		abort(ctx, wrapAROError(featureSet, stmt, fmt.Errorf("required dependency %q is not available", n.Name.String())))
	}
}

func syntheticStmt(verb string, result ast.QualifiedNoun) *ast.AROStatement {
	return &ast.AROStatement{Verb: verb, Result: result}
}

// execMatch pattern-matches Subject against each case's value in order,
// running the first match's body (or Otherwise, if present and nothing
// matched) in a child context per spec.md §4.6's structural-verb note:
// ForEach/Match create child contexts with per-iteration immutable
// bindings rather than going through the action registry.
func execMatch(featureSet string, n *ast.MatchStatement, ctx *runtime.Context, registry *actions.Registry) (*runtime.Response, error) {
	subject, err := eval.Evaluate(n.Subject, ctx)
	if err != nil {
		abort(ctx, &AROError{Verb: "Match", Result: "Match", FeatureSet: featureSet, Cause: err})
		r, _ := ctx.GetResponse()
		return &r, nil
	}
	for _, c := range n.Cases {
		caseVal, err := eval.Evaluate(c.Value, ctx)
		if err != nil {
			abort(ctx, &AROError{Verb: "Match", Result: "Match", FeatureSet: featureSet, Cause: err})
			r, _ := ctx.GetResponse()
			return &r, nil
		}
		if eval.ValuesEqual(subject, caseVal) {
			child := ctx.Child(ctx.BusinessActivity())
			return runStatements(featureSet, c.Body, child, registry)
		}
	}
	if n.Otherwise != nil {
		child := ctx.Child(ctx.BusinessActivity())
		return runStatements(featureSet, n.Otherwise, child, registry)
	}
	return nil, nil
}

// execForEach iterates Source's elements, binding ItemName immutably in
// a fresh child context per iteration and running Body against it. A
// Response set inside any iteration short-circuits the remaining
// iterations, same as any other statement in the enclosing feature set.
func execForEach(featureSet string, n *ast.ForEachLoop, ctx *runtime.Context, registry *actions.Registry) (*runtime.Response, error) {
	source, err := eval.Evaluate(n.Source, ctx)
	if err != nil {
		abort(ctx, &AROError{Verb: "ForEach", Result: "ForEach", FeatureSet: featureSet, Cause: err})
		r, _ := ctx.GetResponse()
		return &r, nil
	}
	if source.Type.Kind != types.KindList {
		abort(ctx, &AROError{Verb: "ForEach", Result: "ForEach", FeatureSet: featureSet, Cause: fmt.Errorf("cannot iterate a %s", source.Type)})
		r, _ := ctx.GetResponse()
		return &r, nil
	}
	items, _ := source.Raw.([]types.Value)
	for _, item := range items {
		child := ctx.Child(ctx.BusinessActivity())
		child.Bind(n.ItemName, item, false)
		resp, err := runStatements(featureSet, n.Body, child, registry)
		if err != nil {
			return nil, err
		}
		if resp != nil {
			return resp, nil
		}
	}
	return nil, nil
}
