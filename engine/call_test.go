package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userFacingError struct{ msg string }

func (e *userFacingError) Error() string       { return "api: " + e.msg }
func (e *userFacingError) UserMessage() string { return e.msg }

func TestCall_ProgressSettlesBeforeSuccess(t *testing.T) {
	e := newTestEngine(t, core.SessionContext{})
	submit := DeclareInput[string](e, "submit")
	progress := DeclareOutput[bool](e, "progress", core.Replay)
	success := DeclareOutput[string](e, "success", core.Event)

	log := &orderLog{}
	progress.Observe(func(v bool) {
		if v {
			log.add("progress:true")
		} else {
			log.add("progress:false")
		}
	})
	success.Observe(func(v string) { log.add("success:" + v) })

	submit.On(func(c *Context, v string) {
		Call(c, func(context.Context) (string, error) { return v, nil }, CallOptions[string]{
			Progress:  progress,
			OnSuccess: func(_ *Context, r string) { success.Emit(r) },
		})
	})

	submit.Push("ok")
	testutil.Settle(t, e)

	assert.Equal(t, []string{"progress:true", "progress:false", "success:ok"}, log.list())
}

func TestCall_DefaultErrorOutput(t *testing.T) {
	e := newTestEngine(t, core.SessionContext{})
	submit := DeclareInput[struct{}](e, "submit")
	progress := DeclareOutput[bool](e, "progress", core.Replay)

	submit.On(func(c *Context, _ struct{}) {
		Call(c, func(context.Context) (int, error) {
			return 0, &userFacingError{msg: "Something went wrong"}
		}, CallOptions[int]{Progress: progress})
	})

	progressObs := testutil.NewObserver(progress.Observe)
	errs := testutil.NewObserver(e.Errors().Observe)

	submit.Push(struct{}{})
	testutil.Settle(t, e)

	assert.Equal(t, []bool{true, false}, progressObs.Values())
	assert.Equal(t, []string{"Something went wrong"}, errs.Values())

	// Error outputs keep working after a failure.
	submit.Push(struct{}{})
	testutil.Settle(t, e)
	assert.Equal(t, 2, errs.Count())
}

func TestCall_PanicBecomesError(t *testing.T) {
	e := newTestEngine(t, core.SessionContext{})
	go1 := DeclareInput[struct{}](e, "go")

	var got error
	go1.On(func(c *Context, _ struct{}) {
		Call(c, func(context.Context) (int, error) {
			panic("boom")
		}, CallOptions[int]{OnError: func(_ *Context, err error) { got = err }})
	})

	go1.Push(struct{}{})
	testutil.Settle(t, e)

	require.Error(t, got)
	assert.True(t, errors.Is(got, core.ErrCollaboratorPanic))
	assert.Contains(t, got.Error(), "boom")
}

func TestCall_SwitchLatestDropsStaleResult(t *testing.T) {
	e := newTestEngine(t, core.SessionContext{})
	query := DeclareInput[string](e, "query")
	results := DeclareOutput[string](e, "results", core.Replay)
	fetching := DeclareOutput[bool](e, "fetching", core.Replay)

	firstCancelled := make(chan struct{})
	query.On(func(c *Context, q string) {
		Call(c, func(ctx context.Context) (string, error) {
			if q == "slow" {
				<-ctx.Done()
				close(firstCancelled)
				return "stale:" + q, nil
			}
			return "fresh:" + q, nil
		}, CallOptions[string]{
			Key:       "search",
			Progress:  fetching,
			Computes:  []Computer{results},
			OnSuccess: func(_ *Context, r string) { results.Emit(r) },
		})
	})

	obs := testutil.NewObserver(results.Observe)
	fetchingObs := testutil.NewObserver(fetching.Observe)

	query.Push("slow")
	query.Push("fast")
	<-firstCancelled
	testutil.Settle(t, e)

	assert.Equal(t, []string{"fresh:fast"}, obs.Values())
	assert.Equal(t, []bool{true, false}, fetchingObs.Values())
}

func TestCall_CancelByKeySettlesProgress(t *testing.T) {
	e := newTestEngine(t, core.SessionContext{})
	start := DeclareInput[struct{}](e, "start")
	stop := DeclareInput[struct{}](e, "stop")
	loading := DeclareOutput[bool](e, "loading", core.Replay)

	var applied bool
	start.On(func(c *Context, _ struct{}) {
		Call(c, func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		}, CallOptions[int]{
			Key:       "load",
			Progress:  loading,
			OnSuccess: func(*Context, int) { applied = true },
			OnError:   func(*Context, error) { applied = true },
		})
	})

	var cancelled bool
	stop.On(func(c *Context, _ struct{}) {
		cancelled = c.Cancel("load")
		assert.False(t, c.Cancel("load"))
	})

	obs := testutil.NewObserver(loading.Observe)
	start.Push(struct{}{})
	stop.Push(struct{}{})
	testutil.Settle(t, e)

	assert.True(t, cancelled)
	assert.False(t, applied)
	assert.Equal(t, []bool{true, false}, obs.Values())
}

func TestCall_NilResultIsAnError(t *testing.T) {
	e := newTestEngine(t, core.SessionContext{})
	load := DeclareInput[struct{}](e, "load")
	loading := DeclareOutput[bool](e, "loading", core.Replay)

	type record struct{ Name string }
	var applied bool
	load.On(func(c *Context, _ struct{}) {
		Call(c, func(context.Context) (*record, error) { return nil, nil }, CallOptions[*record]{
			Name:      "fetch_record",
			Progress:  loading,
			OnSuccess: func(_ *Context, r *record) { applied = r.Name != "" },
		})
	})

	loadingObs := testutil.NewObserver(loading.Observe)
	errs := testutil.NewObserver(e.Errors().Observe)

	load.Push(struct{}{})
	testutil.Settle(t, e)

	assert.False(t, applied)
	assert.Equal(t, []bool{true, false}, loadingObs.Values())
	require.Equal(t, 1, errs.Count())
	last, _ := errs.Last()
	assert.Contains(t, last, core.ErrEmptyResult.Error())
}

func TestCall_HandlerPanicBecomesErrorOutput(t *testing.T) {
	var seen []error
	cm := NewCallbackManager()
	cm.RegisterCallback(NewFunctionCallback(CallbackOnError, func(_ context.Context, cc *CallbackContext) error {
		seen = append(seen, cc.Err)
		return nil
	}))

	e := newTestEngine(t, core.SessionContext{}, func(o *Options) { o.Callbacks = cm })
	load := DeclareInput[int](e, "load")
	out := DeclareOutput[int](e, "out", core.Replay)

	load.On(func(c *Context, n int) {
		Call(c, func(context.Context) (int, error) { return n, nil }, CallOptions[int]{
			OnSuccess: func(_ *Context, v int) {
				if v == 0 {
					var m map[string]int
					m["boom"] = v
				}
				out.Emit(v)
			},
		})
	})

	outObs := testutil.NewObserver(out.Observe)
	errs := testutil.NewObserver(e.Errors().Observe)

	load.Push(0)
	testutil.Settle(t, e)
	require.Equal(t, 1, errs.Count())
	last, _ := errs.Last()
	assert.Contains(t, last, core.ErrResultHandlerPanic.Error())
	require.Len(t, seen, 1)
	assert.True(t, errors.Is(seen[0], core.ErrResultHandlerPanic))

	// The engine keeps running.
	load.Push(7)
	testutil.Settle(t, e)
	assert.Equal(t, []int{7}, outObs.Values())
	assert.Equal(t, 1, errs.Count())
}

func TestCall_SupersedingWithOtherProgressSettlesIt(t *testing.T) {
	e := newTestEngine(t, core.SessionContext{})
	first := DeclareInput[struct{}](e, "first")
	second := DeclareInput[struct{}](e, "second")
	a := DeclareOutput[bool](e, "a", core.Replay)
	b := DeclareOutput[bool](e, "b", core.Replay)

	block := func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	first.On(func(c *Context, _ struct{}) {
		Call(c, block, CallOptions[int]{Key: "load", Progress: a})
	})
	second.On(func(c *Context, _ struct{}) {
		Call(c, func(context.Context) (int, error) { return 1, nil }, CallOptions[int]{Key: "load", Progress: b})
	})

	aObs := testutil.NewObserver(a.Observe)
	bObs := testutil.NewObserver(b.Observe)

	first.Push(struct{}{})
	second.Push(struct{}{})
	testutil.Settle(t, e)

	assert.Equal(t, []bool{true, false}, aObs.Values())
	assert.Equal(t, []bool{true, false}, bObs.Values())
}
