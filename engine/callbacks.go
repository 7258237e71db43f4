package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
)

// CallbackType defines the specific lifecycle points where callbacks can be executed.
//
// Callbacks hook into an engine without modifying view-model code. Metrics,
// auditing and debugging aids are registered this way.
type CallbackType string

const (
	// CallbackCreate is triggered once when an engine is constructed.
	CallbackCreate CallbackType = "on_create"

	// CallbackBeforeInput is triggered on the main context before the
	// handlers of an input run.
	CallbackBeforeInput CallbackType = "before_input"

	// CallbackAfterEmit is triggered after an output emitted a value.
	CallbackAfterEmit CallbackType = "after_emit"

	// CallbackCallStart is triggered when a collaborator call is started.
	CallbackCallStart CallbackType = "on_call_start"

	// CallbackCallEnd is triggered when a collaborator call result is applied.
	CallbackCallEnd CallbackType = "on_call_end"

	// CallbackOnError is triggered when a collaborator failure is converted
	// into an error output.
	CallbackOnError CallbackType = "on_error"

	// CallbackDebounceDrop is triggered when a pending debounced value is
	// superseded by a newer one.
	CallbackDebounceDrop CallbackType = "on_debounce_drop"

	// CallbackOnDispose is triggered when the engine is disposed.
	CallbackOnDispose CallbackType = "on_dispose"
)

// CallbackContext provides context information for callback execution.
// Fields irrelevant to a callback type are left zero.
type CallbackContext struct {
	EngineID string
	Screen   string
	Input    string
	Output   string
	Call     string
	Value    any
	Duration time.Duration
	Err      error

	CallbackType CallbackType

	// Metadata provides extensible storage for custom callback data.
	Metadata map[string]any
}

// Callback defines the interface for engine lifecycle hooks.
//
// Implementations should be fast: callbacks run synchronously on the
// engine's main context. Errors are logged by the engine and never affect
// outputs (except for on_dispose, where they are aggregated into the error
// returned by Dispose).
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic with the provided context.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	cb := NewFunctionCallback(CallbackBeforeInput, func(ctx context.Context, cc *CallbackContext) error {
//	    log.Printf("input %s on %s", cc.Input, cc.Screen)
//	    return nil
//	})
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager orchestrates callback execution throughout the engine lifecycle.
//
// Callbacks are executed in registration order. A manager may be shared by
// many engines (the Runtime does this for metrics) and is safe for
// concurrent registration and execution.
type CallbackManager struct {
	mu        sync.RWMutex
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates a new callback manager instance.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds callbacks to the manager for their types.
func (cm *CallbackManager) RegisterCallback(callbacks ...Callback) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	for _, callback := range callbacks {
		callbackType := callback.Type()
		cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
	}
}

// Has reports whether at least one callback is registered for the type.
func (cm *CallbackManager) Has(callbackType CallbackType) bool {
	if cm == nil {
		return false
	}
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.callbacks[callbackType]) > 0
}

func (cm *CallbackManager) snapshot(callbackType CallbackType) []Callback {
	if cm == nil {
		return nil
	}
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return append([]Callback(nil), cm.callbacks[callbackType]...)
}

// ExecuteCallbacks executes all registered callbacks for the specified type.
//
// Callbacks are executed sequentially in registration order. If any callback
// returns an error, execution stops immediately and the error is returned.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	callbackCtx.CallbackType = callbackType
	for _, callback := range cm.snapshot(callbackType) {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}
	return nil
}

// ExecuteAll runs every callback for the type and aggregates their errors.
func (cm *CallbackManager) ExecuteAll(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	callbackCtx.CallbackType = callbackType
	var result *multierror.Error
	for _, callback := range cm.snapshot(callbackType) {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// LoggingCallback forwards lifecycle events to a logging function.
//
// Example:
//
//	callback := NewLoggingCallback(CallbackAfterEmit, func(message string) {
//	    log.Printf("[ENGINE] %s", message)
//	})
type LoggingCallback struct {
	callbackType CallbackType
	logger       func(message string)
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger func(message string)) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logger,
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the lifecycle event with context information.
func (c *LoggingCallback) Execute(_ context.Context, callbackCtx *CallbackContext) error {
	if c.logger == nil {
		return nil
	}
	port := callbackCtx.Input
	if callbackCtx.Output != "" {
		port = callbackCtx.Output
	}
	if callbackCtx.Call != "" {
		port = callbackCtx.Call
	}
	c.logger(fmt.Sprintf("[%s] Screen: %s, Port: %s, Value: %v", c.callbackType, callbackCtx.Screen, port, callbackCtx.Value))
	return nil
}
