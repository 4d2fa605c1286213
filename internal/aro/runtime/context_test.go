package runtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arolang/aro-sub011/internal/aro/types"
)

func Test_Bind_rebindWithoutAllowIsPanic(t *testing.T) {
	ctx := New("Order Processing", "human")
	ctx.Bind("total", types.Int(1), false)
	assert.Panics(t, func() {
		ctx.Bind("total", types.Int(2), false)
	})
}

func Test_Bind_rebindWithAllowSucceeds(t *testing.T) {
	ctx := New("Order Processing", "human")
	ctx.Bind("total", types.Int(1), false)
	assert.NotPanics(t, func() {
		ctx.Bind("total", types.Int(2), true)
	})
	v, ok := ctx.Resolve("total")
	require.True(t, ok)
	assert.Equal(t, int64(2), v.Raw)
}

func Test_Bind_underscorePrefixedNeverLocksImmutable(t *testing.T) {
	ctx := New("Order Processing", "human")
	ctx.Bind("_literal_", types.Int(1), false)
	assert.NotPanics(t, func() {
		ctx.Bind("_literal_", types.Int(2), false)
	})
}

func Test_Resolve_delegatesToParent(t *testing.T) {
	parent := New("Order Processing", "human")
	parent.Bind("order-id", types.Str("abc"), false)
	child := parent.Child("Order Processing")

	v, ok := child.Resolve("order-id")
	require.True(t, ok)
	assert.Equal(t, "abc", v.Raw)
}

type fixedDate struct{ t time.Time }

func (f fixedDate) Now() time.Time { return f.t }

func Test_Resolve_nowMagicName(t *testing.T) {
	ctx := New("Order Processing", "human")
	fixed := time.Date(2026, 7, 30, 0, 0, 0, 0, time.UTC)
	ctx.SetDateService(fixedDate{fixed})

	v, ok := ctx.Resolve("now")
	require.True(t, ok)
	assert.Equal(t, fixed, v.Raw)
}

func Test_Response_setOnlyFirstWins(t *testing.T) {
	ctx := New("Order Processing", "human")
	ctx.SetResponse(Response{Status: "ok"})
	ctx.SetResponse(Response{Status: "error"})

	r, ok := ctx.GetResponse()
	require.True(t, ok)
	assert.Equal(t, "ok", r.Status)
}

func Test_Globals_publishedValueVisibleFromSiblingRoot(t *testing.T) {
	globals := NewGlobals()
	a := New("Security", "human")
	a.SetGlobals(globals)
	b := New("Security", "human")
	b.SetGlobals(globals)

	globals.Publish("user", types.Str("alice"))

	v, ok := b.Resolve("user")
	require.True(t, ok)
	assert.Equal(t, "alice", v.AsString())
}

func Test_Services_visibleFromChild(t *testing.T) {
	ctx := New("Order Processing", "human")
	ctx.RegisterService("clock", fixedDate{time.Now()})
	child := ctx.Child("Order Processing")

	svc, ok := child.Service("clock")
	require.True(t, ok)
	assert.IsType(t, fixedDate{}, svc)
}
