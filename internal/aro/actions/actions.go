// Package actions implements the Action registry and built-in actions
// from spec.md §4.5: a verb-keyed dispatch table where each Action
// receives the statement's Result/Object descriptors plus the running
// RuntimeContext and returns a Sendable value or an ActionError. The
// registry-of-factories-keyed-by-string shape is grounded on the
// teacher's internal/command package (a lowercase-keyed table mapping a
// player-typed verb to a handler), generalized here from player commands
// to ARO's own verb vocabulary.
package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/arolang/aro-sub011/internal/aro/ast"
	"github.com/arolang/aro-sub011/internal/aro/eval"
	"github.com/arolang/aro-sub011/internal/aro/events"
	"github.com/arolang/aro-sub011/internal/aro/logging"
	"github.com/arolang/aro-sub011/internal/aro/repository"
	"github.com/arolang/aro-sub011/internal/aro/runtime"
	"github.com/arolang/aro-sub011/internal/aro/types"
)

// Error is an ActionError: a built-in or custom action's own failure,
// wrapped by the executor into an AROError carrying statement context
// (verb, result, object, feature set) per spec.md §7.
type Error struct {
	Verb    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("cannot %s: %s", e.Verb, e.Message)
}

func errf(verb, format string, args ...any) error {
	return &Error{Verb: verb, Message: fmt.Sprintf(format, args...)}
}

// HTTPClient is the optional service backing Request/Fetch when no
// locally-bound value answers the descriptor.
type HTTPClient interface {
	Get(path string) (types.Value, error)
}

// FileSystem is the optional service backing Read/Write-class actions.
type FileSystem interface {
	Read(path string) (types.Value, error)
}

// Action is one verb's runtime behavior.
type Action interface {
	Invoke(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error)
}

// Registry maps a lowercased verb to the Action that implements it.
// Registration is meant to happen once at startup (per spec.md §4.5);
// resolution never mutates the map, so concurrent Lookup calls need no
// locking once setup is complete.
type Registry struct {
	actions map[string]Action
}

// NewRegistry builds a Registry seeded with every built-in action from
// spec.md §4.5.
func NewRegistry() *Registry {
	r := &Registry{actions: map[string]Action{}}

	request := requestAction{}
	for _, v := range []string{"extract", "parse", "retrieve", "read", "request", "fetch"} {
		r.actions[v] = request
	}

	compute := computeAction{}
	for _, v := range []string{"compute", "calculate", "derive", "transform", "map", "filter", "reduce", "validate", "create", "format"} {
		r.actions[v] = compute
	}

	r.actions["store"] = storeAction{}
	r.actions["update"] = storeAction{}
	r.actions["delete"] = deleteAction{}

	state := stateAction{}
	for _, v := range []string{"accept", "set", "modify", "change"} {
		r.actions[v] = state
	}

	r.actions["return"] = returnAction{}
	r.actions["throw"] = throwAction{}

	r.actions["log"] = logAction{}
	r.actions["emit"] = emitAction{track: true}
	r.actions["send"] = emitAction{track: true}
	r.actions["publish"] = publishAction{}

	return r
}

// Register installs a (possibly custom, externally supplied) action
// under verb, overriding any built-in with the same name.
func (r *Registry) Register(verb string, a Action) {
	r.actions[strings.ToLower(verb)] = a
}

// Lookup resolves verb (case-insensitive) to its Action.
func (r *Registry) Lookup(verb string) (Action, bool) {
	a, ok := r.actions[strings.ToLower(verb)]
	return a, ok
}

// resolveValue picks the value an action should act on: the object
// noun's value when the statement has an object clause (the executor
// already binds the "_expression_" shortcut before reaching here), else
// the already-bound result name itself (covers "Publish the <user>",
// where the Result was populated by an earlier statement).
func resolveValue(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
	if stmt.Object != nil {
		return eval.ResolveNoun(ctx, stmt.Object.Noun)
	}
	return eval.ResolveNoun(ctx, stmt.Result)
}

func repoStore(ctx *runtime.Context) (*repository.Store, error) {
	svc, ok := ctx.Service("repositories")
	if !ok {
		return nil, fmt.Errorf("no repository store registered on this context")
	}
	store, ok := svc.(*repository.Store)
	if !ok {
		return nil, fmt.Errorf("service %q is not a *repository.Store", "repositories")
	}
	return store, nil
}

func bus(ctx *runtime.Context) (*events.Bus, bool) {
	svc, ok := ctx.Service("eventbus")
	if !ok {
		return nil, false
	}
	b, ok := svc.(*events.Bus)
	return b, ok
}

func logger(ctx *runtime.Context) (logging.Service, bool) {
	svc, ok := ctx.Service("logger")
	if !ok {
		return nil, false
	}
	l, ok := svc.(logging.Service)
	return l, ok
}

// ---- request role: Extract / Parse / Retrieve / Read / Request / Fetch ----

type requestAction struct{}

func (requestAction) Invoke(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
	verb := strings.ToLower(stmt.Verb)
	if (verb == "request" || verb == "fetch") && stmt.Object != nil {
		if client, ok := ctx.Service("http-client"); ok {
			if c, ok := client.(HTTPClient); ok {
				if _, locallyBound := ctx.Resolve(stmt.Object.Noun.Base); !locallyBound {
					v, err := c.Get(stmt.Object.Noun.String())
					if err != nil {
						return types.Value{}, errf(stmt.Verb, "%v", err)
					}
					return v, nil
				}
			}
		}
	}
	if verb == "read" {
		if fs, ok := ctx.Service("filesystem"); ok {
			if f, ok := fs.(FileSystem); ok && stmt.Object != nil {
				if _, locallyBound := ctx.Resolve(stmt.Object.Noun.Base); !locallyBound {
					v, err := f.Read(stmt.Object.Noun.String())
					if err != nil {
						return types.Value{}, errf(stmt.Verb, "%v", err)
					}
					return v, nil
				}
			}
		}
	}
	v, err := resolveValue(ctx, stmt)
	if err != nil {
		return types.Value{}, errf(stmt.Verb, "%v", err)
	}
	return v, nil
}

// ---- own role: Compute / Calculate / Derive / Transform / Map / Filter /
// Reduce / Validate / Create / Format ----

type computeAction struct{}

func (computeAction) Invoke(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
	switch strings.ToLower(stmt.Verb) {
	case "filter":
		return filterList(ctx, stmt)
	case "reduce":
		return reduceList(ctx, stmt)
	default:
		v, err := resolveValue(ctx, stmt)
		if err != nil {
			return types.Value{}, errf(stmt.Verb, "%v", err)
		}
		return v, nil
	}
}

func filterList(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
	source, err := resolveValue(ctx, stmt)
	if err != nil {
		return types.Value{}, errf(stmt.Verb, "%v", err)
	}
	if source.Type.Kind != types.KindList {
		return types.Value{}, errf(stmt.Verb, "cannot filter a %s", source.Type)
	}
	if stmt.Query == nil || stmt.Query.Where == nil {
		return source, nil
	}
	items, _ := source.Raw.([]types.Value)
	out := make([]types.Value, 0, len(items))
	for _, item := range items {
		child := ctx.Child(ctx.BusinessActivity())
		child.Bind("_item_", item, true)
		keep, err := eval.Evaluate(stmt.Query.Where, child)
		if err != nil {
			return types.Value{}, errf(stmt.Verb, "%v", err)
		}
		if keep.AsBool() {
			out = append(out, item)
		}
	}
	return types.Arr(out...), nil
}

func reduceList(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
	source, err := resolveValue(ctx, stmt)
	if err != nil {
		return types.Value{}, errf(stmt.Verb, "%v", err)
	}
	if source.Type.Kind != types.KindList {
		return types.Value{}, errf(stmt.Verb, "cannot reduce a %s", source.Type)
	}
	items, _ := source.Raw.([]types.Value)
	agg := "count"
	if stmt.Query != nil && stmt.Query.Aggregation != "" {
		agg = strings.ToLower(stmt.Query.Aggregation)
	}
	switch agg {
	case "count":
		return types.Int(int64(len(items))), nil
	case "sum":
		var total float64
		var allInt = true
		for _, it := range items {
			switch it.Type.Kind {
			case types.KindInteger:
				total += float64(it.Raw.(int64))
			case types.KindFloat:
				allInt = false
				total += it.Raw.(float64)
			default:
				return types.Value{}, errf(stmt.Verb, "cannot sum a %s", it.Type)
			}
		}
		if allInt {
			return types.Int(int64(total)), nil
		}
		return types.Flt(total), nil
	case "avg":
		if len(items) == 0 {
			return types.Flt(0), nil
		}
		var total float64
		for _, it := range items {
			switch it.Type.Kind {
			case types.KindInteger:
				total += float64(it.Raw.(int64))
			case types.KindFloat:
				total += it.Raw.(float64)
			default:
				return types.Value{}, errf(stmt.Verb, "cannot average a %s", it.Type)
			}
		}
		return types.Flt(total / float64(len(items))), nil
	default:
		return types.Value{}, errf(stmt.Verb, "unknown aggregation %q", agg)
	}
}

// ---- export role: Store / Update ----

type storeAction struct{}

func (storeAction) Invoke(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
	if stmt.Object == nil {
		return types.Value{}, errf(stmt.Verb, "requires an object naming the repository")
	}
	value, err := eval.ResolveNoun(ctx, stmt.Result)
	if err != nil {
		return types.Value{}, errf(stmt.Verb, "%v", err)
	}
	store, err := repoStore(ctx)
	if err != nil {
		return types.Value{}, errf(stmt.Verb, "%v", err)
	}
	repoName := stmt.Object.Noun.Base
	res := store.Get(repoName).Store(value)

	changeType := "created"
	if res.IsUpdate {
		changeType = "updated"
	}
	publishRepositoryChanged(ctx, repoName, changeType, res.Old, res.New, res.EntityID)
	return res.New, nil
}

// ---- export role: Delete ----

type deleteAction struct{}

func (deleteAction) Invoke(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
	if stmt.Object == nil {
		return types.Value{}, errf(stmt.Verb, "requires an object naming the repository")
	}
	value, err := eval.ResolveNoun(ctx, stmt.Result)
	if err != nil {
		return types.Value{}, errf(stmt.Verb, "%v", err)
	}
	fields, ok := value.Raw.(map[string]types.Value)
	if !ok {
		return types.Value{}, errf(stmt.Verb, "delete requires an entity with an id field")
	}
	id, ok := fields["id"]
	if !ok {
		return types.Value{}, errf(stmt.Verb, "delete requires an entity with an id field")
	}
	store, err := repoStore(ctx)
	if err != nil {
		return types.Value{}, errf(stmt.Verb, "%v", err)
	}
	repoName := stmt.Object.Noun.Base
	res := store.Get(repoName).DeleteByField("id", id)
	for _, removed := range res.Removed {
		publishRepositoryChanged(ctx, repoName, "deleted", removed, types.Value{}, id.AsString())
	}
	return value, nil
}

func publishRepositoryChanged(ctx *runtime.Context, repoName, changeType string, oldVal, newVal types.Value, entityID string) {
	b, ok := bus(ctx)
	if !ok {
		return
	}
	b.PublishAndTrack(context.Background(), events.Event{
		Tag: "RepositoryChanged",
		Payload: types.Obj(map[string]types.Value{
			"repository": types.Str(repoName),
			"changeType": types.Str(changeType),
			"entityId":   types.Str(entityID),
			"oldValue":   oldVal,
			"newValue":   newVal,
		}),
	})
}

// ---- rebind-allowed own role: Accept / Set / Modify / Change ----

type stateAction struct{}

func (stateAction) Invoke(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
	previous, hadPrevious := ctx.Resolve(stmt.Result.Base)
	newValue, err := resolveValue(ctx, stmt)
	if err != nil {
		return types.Value{}, errf(stmt.Verb, "%v", err)
	}
	if hadPrevious && !previous.Equal(newValue) {
		publishStateTransition(ctx, stmt.Result.Base, previous, newValue)
	}
	return newValue, nil
}

func publishStateTransition(ctx *runtime.Context, field string, oldVal, newVal types.Value) {
	b, ok := bus(ctx)
	if !ok {
		return
	}
	b.PublishAndTrack(context.Background(), events.Event{
		Tag: "StateTransition",
		Payload: types.Obj(map[string]types.Value{
			"field":    types.Str(field),
			"oldValue": oldVal,
			"newValue": newVal,
		}),
	})
}

// ---- response role: Return ----

type returnAction struct{}

func (returnAction) Invoke(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
	data, err := responseData(ctx, stmt)
	if err != nil {
		return types.Value{}, errf(stmt.Verb, "%v", err)
	}
	ctx.SetResponse(runtime.Response{Status: stmt.Result.Base, Data: data})
	return data, nil
}

// responseData evaluates a Return/Throw statement's payload. A "with
// <name>" range clause that references a single variable wraps the
// value under that variable's name (spec.md §8 scenario 1: "Return an OK
// with sum" yields data.sum), matching the way the statement reads.
func responseData(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
	if stmt.Range != nil && stmt.Range.With != nil {
		v, err := eval.Evaluate(stmt.Range.With, ctx)
		if err != nil {
			return types.Value{}, err
		}
		if ref, ok := stmt.Range.With.(*ast.VariableRefExpr); ok {
			return types.Obj(map[string]types.Value{ref.Noun.Base: v}), nil
		}
		return v, nil
	}
	if stmt.Object != nil {
		return eval.ResolveNoun(ctx, stmt.Object.Noun)
	}
	return types.Value{}, nil
}

// ---- response role: Throw ----

type throwAction struct{}

func (throwAction) Invoke(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
	data, err := responseData(ctx, stmt)
	if err != nil {
		return types.Value{}, errf(stmt.Verb, "%v", err)
	}
	ctx.SetResponse(runtime.Response{Status: "Error", Reason: stmt.Result.Base, Data: data})
	return data, nil
}

// ---- export role: Log ----

type logAction struct{}

func (logAction) Invoke(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
	value, err := resolveValue(ctx, stmt)
	if err != nil {
		return types.Value{}, errf(stmt.Verb, "%v", err)
	}
	if l, ok := logger(ctx); ok {
		l.WithExecution(ctx.BusinessActivity()).Info(value.AsString())
	}
	return value, nil
}

// ---- export role: Emit / Send ----

type emitAction struct {
	track bool
}

func (a emitAction) Invoke(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
	payload, err := responseData(ctx, stmt)
	if err != nil {
		return types.Value{}, errf(stmt.Verb, "%v", err)
	}
	if b, ok := bus(ctx); ok {
		ev := events.Event{Tag: stmt.Result.Base, Payload: payload}
		if a.track {
			b.PublishAndTrack(context.Background(), ev)
		} else {
			b.Publish(context.Background(), ev)
		}
	}
	return payload, nil
}

// ---- export role: Publish ----

type publishAction struct{}

func (publishAction) Invoke(ctx *runtime.Context, stmt *ast.AROStatement) (types.Value, error) {
	value, err := resolveValue(ctx, stmt)
	if err != nil {
		return types.Value{}, errf(stmt.Verb, "%v", err)
	}
	if g := ctx.GlobalsRegistry(); g != nil {
		g.Publish(stmt.Result.Base, value)
	}
	return value, nil
}
