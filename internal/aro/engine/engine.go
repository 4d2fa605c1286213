// Package engine implements the Execution Engine from spec.md §4.7: it
// owns one Event Bus and Repository Store per running program, wires
// handlers against an AnalyzedProgram's feature sets by business-activity
// suffix heuristics, runs the entry feature set through the Feature-Set
// Executor, awaits quiescence, and runs an Application-End feature set
// before returning. Signal handling and the shutdown coordinator are
// grounded on r3e-network-service_layer's
// infrastructure/middleware.GracefulShutdown: a callback list run under a
// mutex, a close-once channel unblocking waiters, SIGINT/SIGTERM wired
// through os/signal.
package engine

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/arolang/aro-sub011/internal/aro/actions"
	"github.com/arolang/aro-sub011/internal/aro/events"
	"github.com/arolang/aro-sub011/internal/aro/exec"
	"github.com/arolang/aro-sub011/internal/aro/logging"
	"github.com/arolang/aro-sub011/internal/aro/repository"
	"github.com/arolang/aro-sub011/internal/aro/runtime"
	"github.com/arolang/aro-sub011/internal/aro/sema"
	"github.com/arolang/aro-sub011/internal/aro/types"
)

// Config configures one Engine instance. Optional services are nil by
// default; an Engine runs fine without any of them, it simply leaves the
// corresponding magic name/service unresolved.
type Config struct {
	OutputContext     string // "human" | "machine" | "developer"; default "machine"
	WorkerLimit       int    // Event Bus fan-out cap; 0 = unbounded
	LogFeature        string
	LogLevel          string
	LogFormat         string
	QuiescenceTimeout time.Duration
	HTTPClient        actions.HTTPClient
	FileSystem        actions.FileSystem
	DateService       runtime.DateService
	MetricsService    runtime.MetricsService
	Contract          types.Value
}

func (c Config) withDefaults() Config {
	if c.OutputContext == "" {
		c.OutputContext = "machine"
	}
	if c.LogFeature == "" {
		c.LogFeature = "aro-engine"
	}
	if c.QuiescenceTimeout <= 0 {
		c.QuiescenceTimeout = 5 * time.Second
	}
	return c
}

// ShutdownCoordinator is the signal any long-running action may poll,
// and the mechanism that unblocks WaitForShutdown once Stop runs
// (directly, or via SIGINT/SIGTERM through ListenForSignals).
type ShutdownCoordinator struct {
	mu        sync.Mutex
	done      chan struct{}
	closed    bool
	callbacks []func()
}

// NewShutdownCoordinator creates an armed, not-yet-stopped coordinator.
func NewShutdownCoordinator() *ShutdownCoordinator {
	return &ShutdownCoordinator{done: make(chan struct{})}
}

// OnShutdown registers a cleanup callback run (in registration order)
// when Stop is first called.
func (s *ShutdownCoordinator) OnShutdown(cb func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, cb)
}

// Stop runs every registered callback once and closes Done(); later
// calls are no-ops.
func (s *ShutdownCoordinator) Stop() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	cbs := s.callbacks
	s.mu.Unlock()

	for _, cb := range cbs {
		func() {
			defer func() { recover() }()
			cb()
		}()
	}
	close(s.done)
}

// Done returns a channel closed once Stop has run.
func (s *ShutdownCoordinator) Done() <-chan struct{} { return s.done }

// Signal reports whether shutdown has been requested, for a long-running
// action to poll without blocking.
func (s *ShutdownCoordinator) Signal() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// WaitForShutdown blocks until Stop has run.
func (s *ShutdownCoordinator) WaitForShutdown() { <-s.done }

// Engine runs ARO programs per spec.md §4.7.
type Engine struct {
	cfg      Config
	bus      *events.Bus
	repos    *repository.Store
	logger   logging.Service
	globals  *runtime.Globals
	registry *actions.Registry
	shutdown *ShutdownCoordinator
}

// New builds an Engine with its own Event Bus, Repository Store, and
// published-symbol Globals registry, seeded with every built-in action.
func New(cfg Config) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:      cfg,
		bus:      events.New(cfg.WorkerLimit),
		repos:    repository.NewStore(),
		logger:   logging.New(cfg.LogFeature, cfg.LogLevel, cfg.LogFormat),
		globals:  runtime.NewGlobals(),
		registry: actions.NewRegistry(),
		shutdown: NewShutdownCoordinator(),
	}
}

// Bus exposes the Event Bus, e.g. for an embedder's own subscriptions
// registered before Execute runs.
func (e *Engine) Bus() *events.Bus { return e.bus }

// Repositories exposes the repository store.
func (e *Engine) Repositories() *repository.Store { return e.repos }

// Registry exposes the action registry so an embedder can register a
// custom action before Execute runs, per spec.md §4.5: "External
// embedders register custom actions via the registry before execute."
func (e *Engine) Registry() *actions.Registry { return e.registry }

// Shutdown exposes the coordinator so a long-running custom action can
// poll Signal() or register a cleanup callback via OnShutdown.
func (e *Engine) Shutdown() *ShutdownCoordinator { return e.shutdown }

// ListenForSignals arranges for SIGINT/SIGTERM to call Stop.
func (e *Engine) ListenForSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		e.Stop()
	}()
}

// Stop publishes ApplicationStopping and signals the ShutdownCoordinator,
// unblocking WaitForShutdown.
func (e *Engine) Stop() {
	e.bus.Publish(context.Background(), events.Event{Tag: "ApplicationStopping"})
	e.shutdown.Stop()
}

// Execute runs entryPoint (default "Application-Start") to completion
// per spec.md §4.7's numbered steps: locate the entry feature set, emit
// ApplicationStarted, build the root context and register services,
// wire handlers, run the entry feature set, await quiescence, then run
// Application-End.
func (e *Engine) Execute(ap *sema.AnalyzedProgram, entryPoint string) (runtime.Response, error) {
	if entryPoint == "" {
		entryPoint = "Application-Start"
	}
	entry := findFeatureSet(ap, entryPoint)
	if entry == nil {
		return runtime.Response{}, fmt.Errorf("entry point %q not found", entryPoint)
	}

	e.bus.Publish(context.Background(), events.Event{Tag: "ApplicationStarted"})

	root := runtime.New(entry.FeatureSet.BusinessActivity, e.cfg.OutputContext)
	e.registerServices(root)
	e.wireHandlers(ap, entry, root)

	resp, err := exec.Run(entry.FeatureSet, root, e.registry)
	if err != nil {
		return runtime.Response{}, err
	}

	if !e.bus.AwaitQuiescence(e.cfg.QuiescenceTimeout) {
		e.log(root).Warn("event bus did not reach quiescence before timeout")
	}

	e.runApplicationEnd(ap, root, resp)

	return resp, nil
}

func (e *Engine) registerServices(ctx *runtime.Context) {
	ctx.RegisterService("repositories", e.repos)
	ctx.RegisterService("eventbus", e.bus)
	ctx.RegisterService("logger", e.logger)
	if e.cfg.HTTPClient != nil {
		ctx.RegisterService("http-client", e.cfg.HTTPClient)
	}
	if e.cfg.FileSystem != nil {
		ctx.RegisterService("filesystem", e.cfg.FileSystem)
	}
	if e.cfg.DateService != nil {
		ctx.SetDateService(e.cfg.DateService)
	}
	if e.cfg.MetricsService != nil {
		ctx.SetMetricsService(e.cfg.MetricsService)
	}
	if !e.cfg.Contract.Type.Equal(types.Unknown()) {
		ctx.SetContract(e.cfg.Contract)
	}
	ctx.SetGlobals(e.globals)
}

func (e *Engine) log(ctx *runtime.Context) logging.Entry {
	return e.logger.WithExecution(ctx.BusinessActivity())
}

func findFeatureSet(ap *sema.AnalyzedProgram, name string) *sema.AnalyzedFeatureSet {
	for _, afs := range ap.FeatureSets {
		if afs.FeatureSet.Name == name {
			return afs
		}
	}
	return nil
}

// wireHandlers scans every feature set other than the entry point and
// Application-End, subscribing it to the bus by the business-activity
// suffix heuristics of spec.md §4.7 step 5. The precedence below (File/
// Socket, then repository Observer, then StateObserver, then Handler)
// disambiguates a business activity that could otherwise match more than
// one suffix.
func (e *Engine) wireHandlers(ap *sema.AnalyzedProgram, entry *sema.AnalyzedFeatureSet, root *runtime.Context) {
	for _, afs := range ap.FeatureSets {
		if afs == entry || afs.FeatureSet.Name == "Application-End" {
			continue
		}
		activity := afs.FeatureSet.BusinessActivity
		switch {
		case strings.HasSuffix(activity, "Socket"):
			e.wireSocketHandler(afs, root)
		case strings.HasSuffix(activity, "File"):
			e.wireFileHandler(afs, root)
		case strings.HasSuffix(activity, "-repository Observer"):
			e.wireRepositoryObserver(afs, root)
		case strings.Contains(activity, "StateObserver"):
			e.wireStateObserver(afs, root)
		case afs.HandlesTag != "":
			e.wireDomainHandler(afs, root)
		}
	}
}

// dispatch runs afs's feature set in a child of root for every matching
// event, binding ev.Payload under bindName first. A failure isolates per
// spec.md §4.9: it is logged and republished as ErrorOccurred(recoverable
// = true), never propagated to the publisher.
func (e *Engine) dispatch(afs *sema.AnalyzedFeatureSet, root *runtime.Context, bindName string) events.Handler {
	return func(ctx context.Context, ev events.Event) {
		child := root.Child(afs.FeatureSet.BusinessActivity)
		child.Bind(bindName, ev.Payload, false)
		if _, err := exec.Run(afs.FeatureSet, child, e.registry); err != nil {
			e.log(child).Error(fmt.Sprintf("handler %s failed: %v", afs.FeatureSet.Name, err))
			e.bus.Publish(ctx, events.Event{
				Tag: "ErrorOccurred",
				Payload: types.Obj(map[string]types.Value{
					"recoverable": types.Bool(true),
					"source":      types.Str(afs.FeatureSet.Name),
					"reason":      types.Str(err.Error()),
				}),
			})
		}
	}
}

func (e *Engine) wireDomainHandler(afs *sema.AnalyzedFeatureSet, root *runtime.Context) {
	e.bus.Subscribe(afs.HandlesTag, nil, e.dispatch(afs, root, "event"))
}

func (e *Engine) wireRepositoryObserver(afs *sema.AnalyzedFeatureSet, root *runtime.Context) {
	repoName := strings.TrimSuffix(afs.FeatureSet.BusinessActivity, " Observer")
	guard := &events.StateGuardSet{Fields: map[string][]types.Value{"repository": {types.Str(repoName)}}}
	e.bus.Subscribe("RepositoryChanged", guard, e.dispatch(afs, root, "event"))
}

func (e *Engine) wireStateObserver(afs *sema.AnalyzedFeatureSet, root *runtime.Context) {
	field := strings.TrimSpace(strings.TrimSuffix(afs.FeatureSet.BusinessActivity, "StateObserver"))
	var guard *events.StateGuardSet
	if field != "" {
		guard = &events.StateGuardSet{Fields: map[string][]types.Value{"field": {types.Str(field)}}}
	}
	e.bus.Subscribe("StateTransition", guard, e.dispatch(afs, root, "transition"))
}

// wireFileHandler subscribes to the three file-system event tags a
// "<Prefix>File" business activity implies: <Prefix>Created/Modified/
// Deleted, matching spec.md §4.7's "created/modified/deleted" heuristic.
func (e *Engine) wireFileHandler(afs *sema.AnalyzedFeatureSet, root *runtime.Context) {
	base := strings.TrimSpace(strings.TrimSuffix(afs.FeatureSet.BusinessActivity, "File"))
	handler := e.dispatch(afs, root, "packet")
	for _, suffix := range []string{"Created", "Modified", "Deleted"} {
		e.bus.Subscribe(base+suffix, nil, handler)
	}
}

// wireSocketHandler subscribes to the three connection-lifecycle event
// tags a "<Prefix>Socket" business activity implies: <Prefix>Connected/
// Data/Disconnected, matching spec.md §4.7's "connected/data/disconnected"
// heuristic.
func (e *Engine) wireSocketHandler(afs *sema.AnalyzedFeatureSet, root *runtime.Context) {
	base := strings.TrimSpace(strings.TrimSuffix(afs.FeatureSet.BusinessActivity, "Socket"))
	handler := e.dispatch(afs, root, "connection")
	for _, suffix := range []string{"Connected", "Data", "Disconnected"} {
		e.bus.Subscribe(base+suffix, nil, handler)
	}
}

// runApplicationEnd runs the Success/Error Application-End feature set
// matching resp's outcome, in a fresh child context bound with a
// "shutdown" descriptor. Failures inside it are logged, never
// propagated, per spec.md §4.7 step 8.
func (e *Engine) runApplicationEnd(ap *sema.AnalyzedProgram, root *runtime.Context, resp runtime.Response) {
	activity := "Success"
	if resp.Status == "Error" {
		activity = "Error"
	}
	var end *sema.AnalyzedFeatureSet
	for _, afs := range ap.FeatureSets {
		if afs.FeatureSet.Name == "Application-End" && afs.FeatureSet.BusinessActivity == activity {
			end = afs
			break
		}
	}
	if end == nil {
		return
	}

	child := root.Child(activity)
	child.Bind("shutdown", types.Obj(map[string]types.Value{
		"reason": types.Str(resp.Reason),
		"status": types.Str(resp.Status),
	}), false)

	defer func() {
		if r := recover(); r != nil {
			e.log(child).Error(fmt.Sprintf("panic in Application-End: %v", r))
		}
	}()
	if _, err := exec.Run(end.FeatureSet, child, e.registry); err != nil {
		e.log(child).Error(fmt.Sprintf("Application-End failed: %v", err))
	}
}
