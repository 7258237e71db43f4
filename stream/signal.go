package stream

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/hupe1980/viewflow/core"
)

// State is the lifecycle state of a Signal.
type State int

const (
	// Uninitialized means nothing has been emitted yet.
	Uninitialized State = iota
	// Computing means a derivation feeding this signal is in flight.
	Computing
	// Emitted means at least one value has been emitted.
	Emitted
	// Disposed is terminal: no further emissions or subscriptions.
	Disposed
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "uninitialized"
	case Computing:
		return "computing"
	case Emitted:
		return "emitted"
	case Disposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// Dispatcher schedules fn on the consumption context. It reports false when
// the context no longer accepts work.
type Dispatcher func(fn func()) bool

// Inline runs fn on the calling goroutine.
func Inline(fn func()) bool {
	fn()
	return true
}

// Subscription binds a consumer to a signal until released.
type Subscription interface {
	ID() string
	Release()
	Released() bool
}

// Subscriber is the untyped view of a Signal used for name-based lookups.
type Subscriber interface {
	Name() string
	Kind() core.OutputKind
	State() State
	SubscribeAny(fn func(any)) Subscription
}

// Signal is one named output stream.
type Signal[T any] struct {
	name     string
	kind     core.OutputKind
	dispatch Dispatcher

	mu    sync.Mutex
	seq   uint64
	last  T
	has   bool
	state State
	subs  []*subscription[T]
}

// NewSignal creates a signal. A nil dispatcher delivers inline.
func NewSignal[T any](name string, kind core.OutputKind, dispatch Dispatcher) *Signal[T] {
	if dispatch == nil {
		dispatch = Inline
	}
	return &Signal[T]{name: name, kind: kind, dispatch: dispatch}
}

// Name returns the output name.
func (s *Signal[T]) Name() string { return s.name }

// Kind returns the replay semantics.
func (s *Signal[T]) Kind() core.OutputKind { return s.kind }

// State returns the current lifecycle state.
func (s *Signal[T]) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Value returns the last emitted value. Event signals also remember it for
// inspection, but never replay it.
func (s *Signal[T]) Value() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.has
}

// MarkComputing moves the signal into Computing until the next emission.
func (s *Signal[T]) MarkComputing() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Disposed {
		s.state = Computing
	}
}

// Emit publishes v to every live subscriber on the caller's goroutine. The
// caller must be on the consumption context. Emit after Close is ignored and
// reported as false.
func (s *Signal[T]) Emit(v T) bool {
	s.mu.Lock()
	if s.state == Disposed {
		s.mu.Unlock()
		return false
	}
	s.seq++
	seq := s.seq
	s.last, s.has = v, true
	s.state = Emitted
	subs := make([]*subscription[T], len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(seq, v)
	}
	return true
}

// Subscribe registers fn. For Replay signals the current value (if any) is
// delivered through the dispatcher. Subscribing to a closed signal returns a
// released subscription.
func (s *Signal[T]) Subscribe(fn func(T)) Subscription {
	sub := &subscription[T]{id: uuid.NewString(), fn: fn, signal: s}

	s.mu.Lock()
	if s.state == Disposed {
		s.mu.Unlock()
		sub.released.Store(true)
		return sub
	}
	s.subs = append(s.subs, sub)
	replay := s.kind == core.Replay && s.has
	seq, v := s.seq, s.last
	s.mu.Unlock()

	if replay {
		s.dispatch(func() { sub.deliver(seq, v) })
	}
	return sub
}

// SubscribeAny implements Subscriber.
func (s *Signal[T]) SubscribeAny(fn func(any)) Subscription {
	return s.Subscribe(func(v T) { fn(v) })
}

// Subscribers returns the number of live subscriptions.
func (s *Signal[T]) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Close releases every subscription and moves the signal to Disposed.
func (s *Signal[T]) Close() {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.state = Disposed
	s.mu.Unlock()

	for _, sub := range subs {
		sub.released.Store(true)
	}
}

func (s *Signal[T]) remove(sub *subscription[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.subs {
		if cur == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

type subscription[T any] struct {
	id       string
	fn       func(T)
	signal   *Signal[T]
	released atomic.Bool
	// lastSeq is only touched on the consumption context.
	lastSeq uint64
}

func (s *subscription[T]) ID() string { return s.id }

func (s *subscription[T]) Released() bool { return s.released.Load() }

func (s *subscription[T]) Release() {
	if s.released.Swap(true) {
		return
	}
	s.signal.remove(s)
}

func (s *subscription[T]) deliver(seq uint64, v T) {
	if s.released.Load() || seq <= s.lastSeq {
		return
	}
	s.lastSeq = seq
	s.fn(v)
}
