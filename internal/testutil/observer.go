package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/viewflow/stream"
	"github.com/stretchr/testify/require"
)

// Observer records every value delivered to a subscription, the way the
// presentation layer would see it.
//
//	obs := testutil.NewObserver(vm.Progress.Observe)
//	...
//	assert.Equal(t, []bool{true, false}, obs.Values())
type Observer[T any] struct {
	mu     sync.Mutex
	values []T
	sub    stream.Subscription
}

// NewObserver subscribes with the given observe function.
func NewObserver[T any](observe func(fn func(T)) stream.Subscription) *Observer[T] {
	o := &Observer[T]{}
	o.sub = observe(func(v T) {
		o.mu.Lock()
		defer o.mu.Unlock()
		o.values = append(o.values, v)
	})
	return o
}

// Values returns a copy of the recorded values. A nil-free empty slice is
// returned when nothing was recorded so it compares equal to []T{}.
func (o *Observer[T]) Values() []T {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]T, len(o.values))
	copy(out, o.values)
	return out
}

// Count returns the number of recorded values.
func (o *Observer[T]) Count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.values)
}

// Last returns the most recent value.
func (o *Observer[T]) Last() (T, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.values) == 0 {
		var zero T
		return zero, false
	}
	return o.values[len(o.values)-1], true
}

// Reset forgets recorded values.
func (o *Observer[T]) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.values = nil
}

// Subscription returns the underlying subscription.
func (o *Observer[T]) Subscription() stream.Subscription { return o.sub }

// Idler is satisfied by *engine.Engine and the screen view-models.
type Idler interface {
	Idle(ctx context.Context) error
}

// Settle waits until i is idle, failing the test after two seconds.
func Settle(t testing.TB, i Idler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, i.Idle(ctx), "engine did not settle")
}
