package engine

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/logging"
)

// Computer is anything that can be flagged as having a derivation in flight.
// Every *Output[T] satisfies it.
type Computer interface {
	MarkComputing()
}

// CallOptions configures a collaborator call.
type CallOptions[R any] struct {
	// Name labels the call in logs and callbacks. Defaults to Key, then "call".
	Name string

	// Key enables switch-latest: a newer call with the same key cancels this
	// one and its late result is discarded.
	Key string

	// Progress receives true when the call starts and false once it settles,
	// before OnSuccess/OnError run.
	Progress *Output[bool]

	// Computes lists outputs that are marked Computing while the call runs.
	Computes []Computer

	OnSuccess func(c *Context, r R)

	// OnError handles failures. When nil, the error message is emitted on
	// the engine-wide error output.
	OnError func(c *Context, err error)
}

type callToken struct {
	id       uint64
	cancel   context.CancelFunc
	progress *Output[bool]
	settle   func()
}

// Call runs fn on a background goroutine and applies its result on the main
// context. It must be called from a handler.
//
// A nil pointer, map, func or channel result with a nil error is reported as
// core.ErrEmptyResult. A panic in OnSuccess or OnError is reported on the
// error output as core.ErrResultHandlerPanic.
func Call[R any](c *Context, fn func(ctx context.Context) (R, error), opts CallOptions[R]) {
	e := c.e

	name := opts.Name
	if name == "" {
		name = opts.Key
	}
	if name == "" {
		name = "call"
	}

	ctx, cancel := context.WithCancel(e.ctx)

	// A superseded call sharing the progress output leaves it at true.
	busy := false

	var tok *callToken
	if opts.Key != "" {
		if prev, ok := e.calls[opts.Key]; ok {
			prev.cancel()
			if opts.Progress != nil && prev.progress == opts.Progress {
				busy = true
			} else if prev.settle != nil {
				prev.settle()
			}
			e.logger.Debug("Superseded in-flight call", "screen", e.name, "call", name, "key", opts.Key)
		}
		e.callSeq++
		tok = &callToken{id: e.callSeq, cancel: cancel, progress: opts.Progress}
		if opts.Progress != nil {
			tok.settle = func() { opts.Progress.Emit(false) }
		}
		e.calls[opts.Key] = tok
	}

	for _, m := range opts.Computes {
		m.MarkComputing()
	}

	if opts.Progress != nil && !busy {
		opts.Progress.Emit(true)
	}

	e.runCallbacks(CallbackCallStart, &CallbackContext{Input: c.input, Call: name})

	if !e.hold() {
		cancel()
		return
	}

	start := e.clock.Now()
	input := c.input

	go func() {
		defer e.finish()

		res, err := invoke(ctx, fn)
		cancel()
		if err == nil && isNilResult(res) {
			err = fmt.Errorf("%w: %s", core.ErrEmptyResult, name)
		}

		e.post(func() {
			if tok != nil {
				if cur, ok := e.calls[opts.Key]; !ok || cur != tok {
					e.logger.Debug("Discarded stale call result", "screen", e.name, "call", name, "key", opts.Key)
					return
				}
				delete(e.calls, opts.Key)
			}

			if opts.Progress != nil {
				opts.Progress.Emit(false)
			}

			dur := e.clock.Now().Sub(start)
			e.runCallbacks(CallbackCallEnd, &CallbackContext{Input: input, Call: name, Duration: dur, Err: err})
			e.logCall(name, dur, err)

			rc := e.newContext(input)
			if err != nil {
				if errors.Is(err, core.ErrCollaboratorPanic) {
					e.logStack(err, "Collaborator panicked", "call", name)
				}
				e.runCallbacks(CallbackOnError, &CallbackContext{Input: input, Call: name, Err: err})
				if opts.OnError != nil {
					e.applyResult(name, func() { opts.OnError(rc, err) })
				} else {
					e.errOut.Emit(core.ErrorMessage(err))
				}
				return
			}

			if opts.OnSuccess != nil {
				e.applyResult(name, func() { opts.OnSuccess(rc, res) })
			}
		})
	}()
}

// applyResult runs a result handler on the main context. Contract violations
// keep propagating; any other panic becomes an error output emission.
func (e *Engine) applyResult(name string, fn func()) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if cv, ok := r.(*core.ContractViolation); ok {
			panic(cv)
		}
		err := fmt.Errorf("%w: %s: %v", core.ErrResultHandlerPanic, name, r)
		e.logStack(err, "Result handler panicked", "call", name)
		e.runCallbacks(CallbackOnError, &CallbackContext{Call: name, Err: err})
		e.errOut.Emit(core.ErrorMessage(err))
	}()
	fn()
}

func (e *Engine) logCall(name string, dur time.Duration, err error) {
	if cl, ok := e.logger.(logging.CallLogger); ok {
		cl.LogCall(name, dur, err)
		return
	}
	if err != nil {
		e.logger.Warn("Collaborator call failed", "screen", e.name, "call", name, "duration", dur, "error", err)
		return
	}
	e.logger.Debug("Collaborator call completed", "screen", e.name, "call", name, "duration", dur)
}

func (e *Engine) logStack(err error, msg string, args ...any) {
	if sl, ok := e.logger.(logging.StackLogger); ok {
		sl.ErrorWithStack(err, msg, args...)
		return
	}
	e.logger.Error(msg, append(args, "error", err)...)
}

func invoke[R any](ctx context.Context, fn func(ctx context.Context) (R, error)) (res R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", core.ErrCollaboratorPanic, r)
		}
	}()
	return fn(ctx)
}

func isNilResult(v any) bool {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return true
	}
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
