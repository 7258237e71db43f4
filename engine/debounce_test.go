package engine

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/internal/testutil"
	"github.com/stretchr/testify/assert"
)

func TestDebounce_FiresOnlyFinalValue(t *testing.T) {
	clock := testutil.NewFakeClock()
	var dropped atomic.Int32
	cbs := NewCallbackManager()
	cbs.RegisterCallback(NewFunctionCallback(CallbackDebounceDrop, func(context.Context, *CallbackContext) error {
		dropped.Add(1)
		return nil
	}))

	e := newTestEngine(t, core.SessionContext{}, func(o *Options) {
		o.Clock = clock
		o.Callbacks = cbs
	})

	query := DeclareInput[string](e, "query")
	out := DeclareOutput[string](e, "query", core.Replay)
	Debounce(query, 300*time.Millisecond).On(func(_ *Context, v string) { out.Emit(v) })

	obs := testutil.NewObserver(out.Observe)

	for _, q := range []string{"c", "ca", "cat"} {
		query.Push(q)
	}
	testutil.Settle(t, e)
	assert.Equal(t, 1, clock.Pending())

	clock.Advance(299 * time.Millisecond)
	testutil.Settle(t, e)
	assert.Empty(t, obs.Values())

	clock.Advance(time.Millisecond)
	testutil.Settle(t, e)
	assert.Equal(t, []string{"cat"}, obs.Values())
	assert.Equal(t, int32(2), dropped.Load())

	query.Push("dog")
	testutil.Settle(t, e)
	clock.Advance(300 * time.Millisecond)
	testutil.Settle(t, e)
	assert.Equal(t, []string{"cat", "dog"}, obs.Values())
}

func TestDebounce_DefaultWindowAndDispose(t *testing.T) {
	clock := testutil.NewFakeClock()
	e := New(core.SessionContext{}, func(o *Options) {
		o.Clock = clock
		o.Config.DefaultDebounce = time.Second
	})

	in := DeclareInput[int](e, "n")
	var fired atomic.Int32
	Debounce(in, 0).On(func(*Context, int) { fired.Add(1) })

	in.Push(1)
	testutil.Settle(t, e)
	assert.Equal(t, 1, clock.Pending())

	assert.NoError(t, e.Dispose())
	assert.Equal(t, 0, clock.Pending())

	clock.Advance(time.Second)
	assert.Equal(t, int32(0), fired.Load())
}
