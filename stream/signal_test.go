package stream

import (
	"testing"

	"github.com/hupe1980/viewflow/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queue is a manual dispatcher: work runs only when flushed.
type queue struct{ fns []func() }

func (q *queue) dispatch(fn func()) bool {
	q.fns = append(q.fns, fn)
	return true
}

func (q *queue) flush() {
	for len(q.fns) > 0 {
		fn := q.fns[0]
		q.fns = q.fns[1:]
		fn()
	}
}

func TestSignal_ReplayDeliversCurrentValue(t *testing.T) {
	s := NewSignal[int]("count", core.Replay, nil)
	assert.Equal(t, Uninitialized, s.State())

	s.Emit(1)
	s.Emit(2)

	var got []int
	s.Subscribe(func(v int) { got = append(got, v) })
	assert.Equal(t, []int{2}, got)

	s.Emit(3)
	assert.Equal(t, []int{2, 3}, got)
	assert.Equal(t, Emitted, s.State())
}

func TestSignal_EventDoesNotReplay(t *testing.T) {
	s := NewSignal[string]("error", core.Event, nil)
	s.Emit("first")

	var got []string
	s.Subscribe(func(v string) { got = append(got, v) })
	assert.Empty(t, got)

	s.Emit("second")
	assert.Equal(t, []string{"second"}, got)

	v, ok := s.Value()
	assert.True(t, ok)
	assert.Equal(t, "second", v)
}

func TestSignal_ReplayRacingEmitIsNotDuplicated(t *testing.T) {
	q := &queue{}
	s := NewSignal[int]("n", core.Replay, q.dispatch)
	s.Emit(1)

	var got []int
	s.Subscribe(func(v int) { got = append(got, v) })
	// A newer value is emitted before the queued replay runs.
	s.Emit(2)
	q.flush()

	assert.Equal(t, []int{2}, got, "stale replay must be skipped")
}

func TestSignal_Release(t *testing.T) {
	s := NewSignal[int]("n", core.Replay, nil)

	var a, b []int
	subA := s.Subscribe(func(v int) { a = append(a, v) })
	s.Subscribe(func(v int) { b = append(b, v) })
	require.Equal(t, 2, s.Subscribers())

	s.Emit(1)
	subA.Release()
	subA.Release()
	s.Emit(2)

	assert.True(t, subA.Released())
	assert.Equal(t, []int{1}, a)
	assert.Equal(t, []int{1, 2}, b)
	assert.Equal(t, 1, s.Subscribers())
}

func TestSignal_CloseIsTerminal(t *testing.T) {
	s := NewSignal[int]("n", core.Replay, nil)

	var got []int
	sub := s.Subscribe(func(v int) { got = append(got, v) })
	s.Close()

	assert.False(t, s.Emit(1))
	assert.True(t, sub.Released())
	assert.Equal(t, Disposed, s.State())

	late := s.Subscribe(func(v int) { got = append(got, v) })
	assert.True(t, late.Released())
	assert.Empty(t, got)
}

func TestSignal_MarkComputing(t *testing.T) {
	s := NewSignal[bool]("loading", core.Replay, nil)
	s.MarkComputing()
	assert.Equal(t, Computing, s.State())
	s.Emit(true)
	assert.Equal(t, Emitted, s.State())
	s.Close()
	s.MarkComputing()
	assert.Equal(t, Disposed, s.State())
}

func TestSignal_SubscribeAny(t *testing.T) {
	var sub Subscriber = NewSignal[string]("title", core.Replay, nil)
	assert.Equal(t, "title", sub.Name())
	assert.Equal(t, core.Replay, sub.Kind())

	var got []any
	sub.SubscribeAny(func(v any) { got = append(got, v) })
	sub.(*Signal[string]).Emit("hello")
	assert.Equal(t, []any{"hello"}, got)
}
