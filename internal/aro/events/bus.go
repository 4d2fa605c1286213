// Package events implements the process-wide pub/sub Event Bus from
// spec.md §4.9: typed subscriptions with StateGuardSet filtering,
// in-flight handler tracking, and an atomic check-and-register
// quiescence barrier. The worker-pool fan-out is grounded on
// golang.org/x/sync/errgroup (bounded by a semaphore, the same
// worker-limiting idiom the teacher does not need but the corpus's
// service-platform example reaches for whenever it fans work out across
// goroutines) so handlers run off whatever goroutine published the
// event.
package events

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/arolang/aro-sub011/internal/aro/types"
)

// Event is one published occurrence: a type tag plus a payload.
type Event struct {
	Tag     string
	Payload types.Value
}

// StateGuardSet is the "<field:value,value;field:value>" filter attached
// to a subscription: a guard matches an event's payload when every field
// group matches (AND across groups) and, within a group, the payload's
// field value equals any one of the listed values (OR within a group).
type StateGuardSet struct {
	Fields map[string][]types.Value
}

// Matches reports whether payload satisfies every field group. A nil
// StateGuardSet always matches.
func (g *StateGuardSet) Matches(payload types.Value) bool {
	if g == nil || len(g.Fields) == 0 {
		return true
	}
	fields, ok := payload.Raw.(map[string]types.Value)
	if !ok {
		return false
	}
	for name, wanted := range g.Fields {
		actual, ok := fields[name]
		if !ok {
			return false
		}
		matched := false
		for _, w := range wanted {
			if actual.Equal(w) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	return true
}

// Handler processes one matching Event under a per-dispatch context
// (typically a forked runtime.Context, passed through as context.Context
// Value to keep this package independent of the runtime package).
type Handler func(ctx context.Context, ev Event)

// Subscription is the handle returned by Subscribe; currently only used
// for equality/logging, since ARO has no Unsubscribe operation in
// scope.
type Subscription struct {
	ID  string
	Tag string
}

type subscriber struct {
	id      string
	tag     string
	guard   *StateGuardSet
	handler Handler
}

// Bus is one Engine instance's event bus.
type Bus struct {
	mu          sync.Mutex
	subs        map[string][]*subscriber
	nextSubID   int
	inFlight    int
	waiters     []chan struct{}
	workerLimit int
}

// New creates a Bus whose handler fan-out is capped at workerLimit
// concurrent handlers (0 means unbounded).
func New(workerLimit int) *Bus {
	return &Bus{subs: map[string][]*subscriber{}, workerLimit: workerLimit}
}

// Subscribe registers handler to run for every Publish/PublishAndTrack
// whose tag matches and whose payload satisfies guard (nil guard always
// matches).
func (b *Bus) Subscribe(tag string, guard *StateGuardSet, handler Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSubID++
	sub := &subscriber{id: intToID(b.nextSubID), tag: tag, guard: guard, handler: handler}
	b.subs[tag] = append(b.subs[tag], sub)
	return Subscription{ID: sub.id, Tag: tag}
}

func intToID(n int) string {
	const digits = "0123456789"
	if n == 0 {
		return "0"
	}
	var buf []byte
	for n > 0 {
		buf = append([]byte{digits[n%10]}, buf...)
		n /= 10
	}
	return "sub-" + string(buf)
}

// Publish fans ev out to every matching subscriber without tracking
// in-flight completion; use PublishAndTrack when a caller needs to
// await quiescence afterward.
func (b *Bus) Publish(ctx context.Context, ev Event) {
	b.dispatch(ctx, ev, false)
}

// PublishAndTrack fans ev out, incrementing the in-flight counter for
// each dispatched handler and decrementing it on completion; when the
// counter reaches zero it wakes any quiescence waiters.
func (b *Bus) PublishAndTrack(ctx context.Context, ev Event) {
	b.dispatch(ctx, ev, true)
}

func (b *Bus) dispatch(ctx context.Context, ev Event, track bool) {
	b.mu.Lock()
	matched := make([]*subscriber, 0, len(b.subs[ev.Tag]))
	for _, sub := range b.subs[ev.Tag] {
		if sub.guard.Matches(ev.Payload) {
			matched = append(matched, sub)
		}
	}
	if track {
		b.inFlight += len(matched)
	}
	b.mu.Unlock()

	if len(matched) == 0 {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	if b.workerLimit > 0 {
		g.SetLimit(b.workerLimit)
	}
	for _, sub := range matched {
		sub := sub
		g.Go(func() error {
			defer func() {
				if track {
					b.finishOne()
				}
				if r := recover(); r != nil {
					b.publishError(gctx, ev, r)
				}
			}()
			sub.handler(gctx, ev)
			return nil
		})
	}
	// Errors from handlers are isolated per spec.md §4.9 and never
	// propagated. The publisher does not wait for handlers to finish (it
	// only blocks in g.Go while workerLimit handlers are already running);
	// PublishAndTrack plus AwaitQuiescence observes completion.
	go func() { _ = g.Wait() }()
}

func (b *Bus) publishError(ctx context.Context, cause Event, reason any) {
	b.Publish(ctx, Event{
		Tag: "ErrorOccurred",
		Payload: types.Obj(map[string]types.Value{
			"recoverable": types.Bool(true),
			"source":      types.Str(cause.Tag),
			"reason":      types.Str(toErrorString(reason)),
		}),
	})
}

func toErrorString(reason any) string {
	if err, ok := reason.(error); ok {
		return err.Error()
	}
	return "panic in event handler"
}

func (b *Bus) finishOne() {
	b.mu.Lock()
	b.inFlight--
	if b.inFlight < 0 {
		b.inFlight = 0
	}
	quiescent := b.inFlight == 0
	var toWake []chan struct{}
	if quiescent {
		toWake, b.waiters = b.waiters, nil
	}
	b.mu.Unlock()
	for _, w := range toWake {
		close(w)
	}
}

// AwaitQuiescence blocks until the in-flight handler count reaches zero
// or timeout elapses, returning true if it observed quiescence. The
// check-and-register happens under the same lock so a handler that
// finishes between the check and the wait registration cannot produce a
// missed wakeup.
func (b *Bus) AwaitQuiescence(timeout time.Duration) bool {
	b.mu.Lock()
	if b.inFlight == 0 {
		b.mu.Unlock()
		return true
	}
	wake := make(chan struct{})
	b.waiters = append(b.waiters, wake)
	b.mu.Unlock()

	select {
	case <-wake:
		return true
	case <-time.After(timeout):
		return false
	}
}
