package engine

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/stream"
)

type inputPort interface {
	pushAny(v any)
	payloadType() string
}

type outputPort interface {
	stream.Subscriber
	close()
}

// Input is a declared input channel with payload type T.
type Input[T any] struct {
	e    *Engine
	name string

	mu       sync.RWMutex
	handlers []func(*Context, T)
}

// Compile-time check that Input implements inputPort.
var _ inputPort = (*Input[int])(nil)

// DeclareInput registers an input named name. Redeclaring a name panics.
func DeclareInput[T any](e *Engine, name string) *Input[T] {
	in := &Input[T]{e: e, name: name}
	e.registerInput(name, in)
	return in
}

// On binds fn to in. It is the package-level form of (*Input[T]).On.
func On[T any](in *Input[T], fn func(c *Context, v T)) {
	in.On(fn)
}

// Name returns the input name.
func (in *Input[T]) Name() string { return in.name }

// On binds a handler. Handlers run on the main context in registration order.
func (in *Input[T]) On(fn func(c *Context, v T)) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.handlers = append(in.handlers, fn)
}

// Push enqueues v. It never blocks; after disposal it does nothing.
func (in *Input[T]) Push(v T) {
	if !in.e.post(func() { in.fire(v) }) {
		in.e.logger.Debug("Input dropped after dispose", "screen", in.e.name, "input", in.name)
	}
}

func (in *Input[T]) fire(v T) {
	e := in.e
	e.runCallbacks(CallbackBeforeInput, &CallbackContext{Input: in.name, Value: v})

	in.mu.RLock()
	handlers := make([]func(*Context, T), len(in.handlers))
	copy(handlers, in.handlers)
	in.mu.RUnlock()

	c := e.newContext(in.name)
	for _, h := range handlers {
		h(c, v)
	}
}

func (in *Input[T]) pushAny(v any) {
	if v == nil && nilable[T]() {
		var zero T
		in.Push(zero)
		return
	}
	t, ok := v.(T)
	if !ok {
		panic(&core.ContractViolation{
			Engine: in.e.name,
			Port:   in.name,
			Err:    core.ErrPayloadType,
			Detail: fmt.Sprintf("want %s, got %T", typeName[T](), v),
		})
	}
	in.Push(t)
}

func (in *Input[T]) payloadType() string { return typeName[T]() }

// Output is a declared output signal with payload type T.
type Output[T any] struct {
	e   *Engine
	sig *stream.Signal[T]
}

// Compile-time check that Output implements outputPort.
var _ outputPort = (*Output[int])(nil)

// DeclareOutput registers an output named name with the given replay
// semantics. Redeclaring a name panics.
func DeclareOutput[T any](e *Engine, name string, kind core.OutputKind) *Output[T] {
	out := &Output[T]{e: e, sig: stream.NewSignal[T](name, kind, e.post)}
	e.registerOutput(name, out)
	return out
}

// Observe subscribes fn to the output called name. It panics if the output
// is undeclared or carries another payload type.
func Observe[T any](e *Engine, name string, fn func(T)) stream.Subscription {
	port := e.lookupOutput(name)
	out, ok := port.(*Output[T])
	if !ok {
		panic(&core.ContractViolation{
			Engine: e.name,
			Port:   name,
			Err:    core.ErrPayloadType,
			Detail: fmt.Sprintf("observed as %s", typeName[T]()),
		})
	}
	return out.Observe(fn)
}

// Name returns the output name.
func (o *Output[T]) Name() string { return o.sig.Name() }

// Kind returns the replay semantics.
func (o *Output[T]) Kind() core.OutputKind { return o.sig.Kind() }

// State returns the lifecycle state.
func (o *Output[T]) State() stream.State { return o.sig.State() }

// Value returns the last emitted value.
func (o *Output[T]) Value() (T, bool) { return o.sig.Value() }

// MarkComputing flags that a derivation for this output is in flight.
func (o *Output[T]) MarkComputing() { o.sig.MarkComputing() }

// Emit publishes v. Must be called on the main context.
func (o *Output[T]) Emit(v T) {
	if o.sig.Emit(v) {
		o.e.runCallbacks(CallbackAfterEmit, &CallbackContext{Output: o.sig.Name(), Value: v})
	}
}

// Observe subscribes fn. Callbacks run on the main context.
func (o *Output[T]) Observe(fn func(T)) stream.Subscription {
	return o.sig.Subscribe(fn)
}

// SubscribeAny implements stream.Subscriber.
func (o *Output[T]) SubscribeAny(fn func(any)) stream.Subscription {
	return o.sig.SubscribeAny(fn)
}

func (o *Output[T]) close() { o.sig.Close() }

func typeName[T any]() string {
	return reflect.TypeOf((*T)(nil)).Elem().String()
}

func nilable[T any]() bool {
	switch reflect.TypeOf((*T)(nil)).Elem().Kind() {
	case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}
