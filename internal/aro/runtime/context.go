// Package runtime implements the thread-safe typed variable store (the
// RuntimeContext from spec.md §4.4) that every action and expression
// evaluation runs against. Locking follows the same coarse
// single-mutex-per-instance shape the teacher uses for its own shared
// game state (internal/game), since ARO contexts are short-lived and
// rarely contended enough to need finer-grained locking.
package runtime

import (
	"fmt"
	"sync"
	"time"

	"github.com/arolang/aro-sub011/internal/aro/types"
)

// DateService supplies the "now" magic name.
type DateService interface {
	Now() time.Time
}

// Globals is the process-wide published-symbol registry shared by every
// context forked from one Engine's base context. The semantic analyzer
// checks business-activity membership for a published symbol at compile
// time (internal/aro/sema); this store just holds the run-time values so
// a feature set in one root context can see what a sibling feature set
// (in a different root context, forked from the same base) published.
type Globals struct {
	mu      sync.RWMutex
	entries map[string]types.Value
}

// NewGlobals creates an empty published-symbol registry.
func NewGlobals() *Globals {
	return &Globals{entries: map[string]types.Value{}}
}

// Publish records name's value, visible to every context sharing this
// Globals instance.
func (g *Globals) Publish(name string, v types.Value) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.entries[name] = v
}

// Resolve looks up a previously published name.
func (g *Globals) Resolve(name string) (types.Value, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	v, ok := g.entries[name]
	return v, ok
}

// MetricsService supplies the "metrics" magic name.
type MetricsService interface {
	Snapshot() types.Value
}

// Response is what a Return/Throw-class action sets on the context,
// short-circuiting the enclosing feature set.
type Response struct {
	Status string
	Reason string
	Data   types.Value
}

// ImmutabilityViolation is panicked by Bind when a non-rebind-allowed
// statement tries to rebind an already-bound, non-underscore name. The
// semantic analyzer rejects this at compile time; this panic is the
// runtime's defensive backstop for programs built without going through
// analysis (e.g. directly from a hand-built AST in a test).
type ImmutabilityViolation struct {
	Name string
}

func (e *ImmutabilityViolation) Error() string {
	return fmt.Sprintf("cannot rebind already-bound name %q", e.Name)
}

// Context is one scope of typed bindings, optionally chained to a
// parent. Children share the parent's service and repository registries
// but keep their own local bindings.
type Context struct {
	mu sync.RWMutex

	parent           *Context
	businessActivity string
	outputContext    string // "human" | "machine" | "developer"
	isCompiled       bool

	bindings  map[string]types.Value
	immutable map[string]bool

	response      *Response
	executionErr  error

	services     map[string]any
	repositories map[string]any

	dateService DateService
	metrics     MetricsService
	contract    types.Value
	globals     *Globals
}

// New creates a root context for the given business activity.
func New(businessActivity, outputContext string) *Context {
	return &Context{
		businessActivity: businessActivity,
		outputContext:    outputContext,
		bindings:         map[string]types.Value{},
		immutable:        map[string]bool{},
		services:         map[string]any{},
		repositories:     map[string]any{},
	}
}

// Child creates a new context sharing this context's service/repository
// registries and inheriting outputContext/isCompiled, but with its own
// local bindings — used for ForEach/Match iteration scopes and per-event
// handler dispatch.
func (c *Context) Child(businessActivity string) *Context {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &Context{
		parent:           c,
		businessActivity: businessActivity,
		outputContext:    c.outputContext,
		isCompiled:       c.isCompiled,
		bindings:         map[string]types.Value{},
		immutable:        map[string]bool{},
		services:         c.services,
		repositories:     c.repositories,
		dateService:      c.dateService,
		metrics:          c.metrics,
		contract:         c.contract,
		globals:          c.globals,
	}
}

// BusinessActivity returns the activity this context was created for.
func (c *Context) BusinessActivity() string { return c.businessActivity }

// OutputContext returns "human", "machine", or "developer".
func (c *Context) OutputContext() string { return c.outputContext }

// SetCompiled marks this context (and its future children) as running
// in compiled-binary mode, where SetExecutionError is consulted instead
// of propagating errors as Go values.
func (c *Context) SetCompiled(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isCompiled = v
}

// IsCompiled reports compiled-binary mode.
func (c *Context) IsCompiled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.isCompiled
}

// Bind records value under name, inferring a DataType if value does not
// already carry one. allowRebind corresponds to the statement's verb
// being in {accept, update, modify, change, set}. Panics with
// *ImmutabilityViolation if name is already bound, is not
// underscore-prefixed, and allowRebind is false.
func (c *Context) Bind(name string, value types.Value, allowRebind bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value.Type.Kind == types.KindUnknown && value.Raw != nil {
		value = types.New(value.Raw)
	}
	if _, exists := c.bindings[name]; exists {
		if !hasUnderscorePrefix(name) && !allowRebind {
			panic(&ImmutabilityViolation{Name: name})
		}
	}
	c.bindings[name] = value
	if !hasUnderscorePrefix(name) {
		c.immutable[name] = true
	}
}

func hasUnderscorePrefix(name string) bool {
	return len(name) > 0 && name[0] == '_'
}

// Resolve looks up name in this context, then its parent chain, then
// magic names at the root.
func (c *Context) Resolve(name string) (types.Value, bool) {
	c.mu.RLock()
	v, ok := c.bindings[name]
	parent := c.parent
	c.mu.RUnlock()
	if ok {
		return v, true
	}
	if parent != nil {
		return parent.Resolve(name)
	}
	if v, ok := c.resolveMagic(name); ok {
		return v, true
	}
	c.mu.RLock()
	globals := c.globals
	c.mu.RUnlock()
	if globals != nil {
		return globals.Resolve(name)
	}
	return types.Value{}, false
}

// ResolveTyped is an alias of Resolve kept for parity with spec.md's
// named resolve/resolve_typed pair; the Value returned already carries
// its DataType, so there is nothing extra to materialize here.
func (c *Context) ResolveTyped(name string) (types.Value, bool) {
	return c.Resolve(name)
}

// TypeOf resolves name's DataType without needing the caller to re-derive
// it from the Value.
func (c *Context) TypeOf(name string) (types.DataType, bool) {
	v, ok := c.Resolve(name)
	if !ok {
		return types.DataType{}, false
	}
	return v.Type, true
}

func (c *Context) resolveMagic(name string) (types.Value, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch name {
	case "now":
		if c.dateService != nil {
			return types.New(c.dateService.Now()), true
		}
		return types.New(time.Now()), true
	case "Contract":
		return c.contract, !c.contract.Type.Equal(types.Unknown())
	case "http-server":
		if m, ok := c.contract.Raw.(map[string]types.Value); ok {
			if srv, ok := m["http-server"]; ok {
				return srv, true
			}
		}
		return types.Value{}, false
	case "metrics":
		if c.metrics != nil {
			return c.metrics.Snapshot(), true
		}
		return types.Value{}, false
	default:
		return types.Value{}, false
	}
}

// SetDateService registers the DateService backing the "now" magic name.
func (c *Context) SetDateService(ds DateService) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dateService = ds
}

// SetMetricsService registers the MetricsService backing "metrics".
func (c *Context) SetMetricsService(ms MetricsService) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.metrics = ms
}

// SetContract registers the Contract object backing "Contract" and
// "http-server".
func (c *Context) SetContract(v types.Value) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contract = v
}

// SetGlobals installs the published-symbol registry shared by every
// context forked from this one.
func (c *Context) SetGlobals(g *Globals) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.globals = g
}

// GlobalsRegistry returns the published-symbol registry installed on
// this context (possibly nil if SetGlobals was never called on the
// root), for actions that publish a variable at run time.
func (c *Context) GlobalsRegistry() *Globals {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.globals
}

// SetResponse records the first Response set on this context; later
// calls are no-ops, matching "set_execution_error records only the
// first error" policy applied symmetrically to responses.
func (c *Context) SetResponse(r Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.response == nil {
		c.response = &r
	}
}

// GetResponse returns the response set on this context, if any.
func (c *Context) GetResponse() (Response, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.response == nil {
		return Response{}, false
	}
	return *c.response, true
}

// SetExecutionError records only the first error.
func (c *Context) SetExecutionError(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.executionErr == nil {
		c.executionErr = err
	}
}

// ExecutionError returns the first error recorded via
// SetExecutionError, if any.
func (c *Context) ExecutionError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.executionErr
}

// RegisterService installs svc under key; lookups from child contexts
// see it too since the registry map is shared, not copied.
func (c *Context) RegisterService(key string, svc any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[key] = svc
}

// Service resolves a previously registered service by key.
func (c *Context) Service(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	svc, ok := c.services[key]
	return svc, ok
}

// RegisterRepository installs a repository handle under name.
func (c *Context) RegisterRepository(name string, repo any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repositories[name] = repo
}

// Repository resolves a repository handle by name.
func (c *Context) Repository(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	repo, ok := c.repositories[name]
	return repo, ok
}
