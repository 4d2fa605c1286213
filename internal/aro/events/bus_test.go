package events

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arolang/aro-sub011/internal/aro/types"
)

func Test_Publish_deliversToMatchingSubscriber(t *testing.T) {
	bus := New(4)
	var got Event
	done := make(chan struct{})
	bus.Subscribe("OrderPlaced", nil, func(_ context.Context, ev Event) {
		got = ev
		close(done)
	})

	bus.Publish(context.Background(), Event{Tag: "OrderPlaced", Payload: types.Str("o1")})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler never ran")
	}
	assert.Equal(t, "OrderPlaced", got.Tag)
}

func Test_Subscribe_guardFiltersNonMatchingPayload(t *testing.T) {
	bus := New(4)
	var calls int32
	guard := &StateGuardSet{Fields: map[string][]types.Value{"status": {types.Str("paid")}}}
	bus.Subscribe("OrderUpdated", guard, func(context.Context, Event) {
		atomic.AddInt32(&calls, 1)
	})

	bus.PublishAndTrack(context.Background(), Event{
		Tag:     "OrderUpdated",
		Payload: types.Obj(map[string]types.Value{"status": types.Str("pending")}),
	})
	require.True(t, bus.AwaitQuiescence(time.Second))
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	bus.PublishAndTrack(context.Background(), Event{
		Tag:     "OrderUpdated",
		Payload: types.Obj(map[string]types.Value{"status": types.Str("paid")}),
	})
	require.True(t, bus.AwaitQuiescence(time.Second))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func Test_AwaitQuiescence_trueWhenNothingInFlight(t *testing.T) {
	bus := New(4)
	assert.True(t, bus.AwaitQuiescence(10*time.Millisecond))
}

func Test_AwaitQuiescence_timesOutWhenHandlerBlocks(t *testing.T) {
	bus := New(4)
	release := make(chan struct{})
	bus.Subscribe("Slow", nil, func(context.Context, Event) {
		<-release
	})
	bus.PublishAndTrack(context.Background(), Event{Tag: "Slow"})

	assert.False(t, bus.AwaitQuiescence(20*time.Millisecond))
	close(release)
	assert.True(t, bus.AwaitQuiescence(time.Second))
}

func Test_Publish_handlerPanicPublishesErrorOccurred(t *testing.T) {
	bus := New(4)
	done := make(chan Event, 1)
	bus.Subscribe("ErrorOccurred", nil, func(_ context.Context, ev Event) {
		done <- ev
	})
	bus.Subscribe("Risky", nil, func(context.Context, Event) {
		panic("boom")
	})

	bus.PublishAndTrack(context.Background(), Event{Tag: "Risky"})
	require.True(t, bus.AwaitQuiescence(time.Second))

	select {
	case ev := <-done:
		fields := ev.Payload.Raw.(map[string]types.Value)
		assert.True(t, fields["recoverable"].AsBool())
	case <-time.After(time.Second):
		t.Fatal("ErrorOccurred was never published")
	}
}
