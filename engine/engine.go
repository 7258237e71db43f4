package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/logging"
	"github.com/hupe1980/viewflow/stream"
)

// Names of the ports every engine declares itself.
const (
	InitInput   = "init"
	ErrorOutput = "error"
)

// Config defines tuning parameters for an Engine.
type Config struct {
	// DefaultDebounce is the window Debounce uses when given d <= 0.
	DefaultDebounce time.Duration

	// MailboxHint preallocates the mailbox queue.
	MailboxHint int
}

// DefaultConfig provides default configuration values.
var DefaultConfig = Config{
	DefaultDebounce: 300 * time.Millisecond,
	MailboxHint:     32,
}

// Options configures an Engine instance using the functional options pattern.
type Options struct {
	// Config contains operational parameters. Defaults to DefaultConfig.
	Config Config

	// Name identifies the screen in logs, callbacks and contract violations.
	Name string

	// Logger defaults to a NoOp logger.
	Logger logging.Logger

	// Clock drives debounce timers. Defaults to the system clock.
	Clock core.Clock

	// Callbacks receives lifecycle hooks. May be shared across engines.
	Callbacks *CallbackManager
}

// Engine is one screen's view-model runtime. See the package documentation
// for the execution model.
type Engine struct {
	id        string
	name      string
	sc        core.SessionContext
	config    Config
	logger    logging.Logger
	clock     core.Clock
	callbacks *CallbackManager

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	queue      []func()
	pending    int
	idle       chan struct{}
	disposed   bool
	unwatch    []func()
	debouncers []*debouncer
	wake       chan struct{}
	done       chan struct{}

	portsMu     sync.RWMutex
	inputs      map[string]inputPort
	outputs     map[string]outputPort
	outputOrder []string

	// main context only
	calls   map[string]*callToken
	callSeq uint64

	initOnce sync.Once
	initIn   *Input[struct{}]
	errOut   *Output[string]
}

// New creates an engine bound to the given Session Context and starts its
// main loop. No collaborator is contacted; work triggered by screen opening
// belongs in an OnInit handler, fired once by Init.
func New(sc core.SessionContext, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config: DefaultConfig,
		Name:   "screen",
		Logger: logging.NoOpLogger{},
		Clock:  core.SystemClock{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	if opts.Clock == nil {
		opts.Clock = core.SystemClock{}
	}

	ctx, cancel := context.WithCancel(context.Background())

	idle := make(chan struct{})
	close(idle)

	id := uuid.NewString()

	e := &Engine{
		id:        id,
		name:      opts.Name,
		sc:        sc.Normalize(),
		config:    opts.Config,
		logger:    logging.ForScreen(opts.Logger, opts.Name, id),
		clock:     opts.Clock,
		callbacks: opts.Callbacks,
		ctx:       ctx,
		cancel:    cancel,
		queue:     make([]func(), 0, opts.Config.MailboxHint),
		idle:      idle,
		wake:      make(chan struct{}, 1),
		done:      make(chan struct{}),
		inputs:    make(map[string]inputPort),
		outputs:   make(map[string]outputPort),
		calls:     make(map[string]*callToken),
	}

	e.initIn = DeclareInput[struct{}](e, InitInput)
	e.errOut = DeclareOutput[string](e, ErrorOutput, core.Event)

	go e.run()

	e.runCallbacks(CallbackCreate, &CallbackContext{})
	e.logger.Debug("Engine created", "screen", e.name, "engine_id", e.id)

	return e
}

// ID returns the unique engine instance identifier.
func (e *Engine) ID() string { return e.id }

// Name returns the screen name.
func (e *Engine) Name() string { return e.name }

// Session returns the injected Session Context.
func (e *Engine) Session() core.SessionContext { return e.sc }

// Logger returns the engine logger.
func (e *Engine) Logger() logging.Logger { return e.logger }

// Errors returns the engine-wide single-shot error output. Collaborator
// failures without a custom OnError handler land here.
func (e *Engine) Errors() *Output[string] { return e.errOut }

// OnInit registers fn for the implicit init input.
func (e *Engine) OnInit(fn func(c *Context)) {
	e.initIn.On(func(c *Context, _ struct{}) { fn(c) })
}

// Init fires the init input. Only the first call has an effect.
func (e *Engine) Init() {
	e.initOnce.Do(func() { e.initIn.Push(struct{}{}) })
}

// Push delivers a payload to the named input. It panics with a
// ContractViolation if the input is undeclared or v has the wrong type.
func (e *Engine) Push(name string, v any) {
	e.portsMu.RLock()
	in, ok := e.inputs[name]
	e.portsMu.RUnlock()
	if !ok {
		panic(&core.ContractViolation{Engine: e.name, Port: name, Err: core.ErrUndeclaredInput})
	}
	in.pushAny(v)
}

// Output returns the untyped view of a declared output. It panics with a
// ContractViolation if the output is undeclared.
func (e *Engine) Output(name string) stream.Subscriber {
	return e.lookupOutput(name)
}

// Inputs lists the declared input names in lexical order.
func (e *Engine) Inputs() []string {
	e.portsMu.RLock()
	defer e.portsMu.RUnlock()
	names := make([]string, 0, len(e.inputs))
	for name := range e.inputs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Outputs lists the declared output names in declaration order.
func (e *Engine) Outputs() []string {
	e.portsMu.RLock()
	defer e.portsMu.RUnlock()
	return append([]string(nil), e.outputOrder...)
}

// InputType returns the payload type name of a declared input.
func (e *Engine) InputType(name string) (string, bool) {
	e.portsMu.RLock()
	defer e.portsMu.RUnlock()
	in, ok := e.inputs[name]
	if !ok {
		return "", false
	}
	return in.payloadType(), true
}

// OnUser registers fn for current-user changes. The current user is
// delivered once through the mailbox right away, then every login, logout
// and refresh follows.
func (e *Engine) OnUser(fn func(c *Context, u *core.User)) {
	cu := e.sc.CurrentUser
	cancel := cu.Watch(func(u *core.User) {
		u = u.Clone()
		e.post(func() { fn(e.newContext("session.user"), u) })
	})
	e.addUnwatch(cancel)
	e.post(func() { fn(e.newContext("session.user"), cu.Current()) })
}

// OnConfig registers fn for configuration reloads.
func (e *Engine) OnConfig(fn func(c *Context, p core.ConfigProvider)) {
	cancel := e.sc.Config.Watch(func(p core.ConfigProvider) {
		e.post(func() { fn(e.newContext("session.config"), p) })
	})
	e.addUnwatch(cancel)
}

// Idle blocks until the mailbox is empty and no collaborator call is in
// flight, or ctx is done. Pending debounce timers do not count. Idle must
// not be called from the main context.
func (e *Engine) Idle(ctx context.Context) error {
	e.mu.Lock()
	ch := e.idle
	e.mu.Unlock()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disposed reports whether Dispose has been called.
func (e *Engine) Disposed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.disposed
}

// Dispose tears the engine down: queued work is dropped, in-flight calls
// are cancelled, debounce timers stopped, session watchers detached and all
// subscriptions released. Errors from on_dispose callbacks are aggregated.
// Dispose is idempotent.
func (e *Engine) Dispose() error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return nil
	}
	e.disposed = true
	e.queue = nil
	if e.pending > 0 {
		e.pending = 0
		close(e.idle)
	}
	unwatch := e.unwatch
	e.unwatch = nil
	debouncers := e.debouncers
	e.debouncers = nil
	e.mu.Unlock()

	e.cancel()

	for _, db := range debouncers {
		db.stop()
	}

	for _, fn := range unwatch {
		fn()
	}

	e.portsMu.RLock()
	for _, name := range e.outputOrder {
		e.outputs[name].close()
	}
	e.portsMu.RUnlock()

	e.logger.Debug("Engine disposed", "screen", e.name, "engine_id", e.id)

	if e.callbacks == nil {
		return nil
	}
	return e.callbacks.ExecuteAll(context.Background(), CallbackOnDispose, e.callbackContext(&CallbackContext{}))
}

// Done is closed once the main loop has exited after disposal.
func (e *Engine) Done() <-chan struct{} { return e.done }

func (e *Engine) run() {
	defer close(e.done)
	for {
		select {
		case <-e.ctx.Done():
			return
		case <-e.wake:
		}
		for {
			fn, ok := e.next()
			if !ok {
				break
			}
			fn()
			e.finish()
		}
	}
}

func (e *Engine) next() (func(), bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed || len(e.queue) == 0 {
		return nil, false
	}
	fn := e.queue[0]
	e.queue[0] = nil
	e.queue = e.queue[1:]
	return fn, true
}

// post enqueues fn on the main context. It never blocks and reports false
// once the engine is disposed.
func (e *Engine) post(fn func()) bool {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return false
	}
	e.queue = append(e.queue, fn)
	e.holdLocked()
	e.mu.Unlock()

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return true
}

func (e *Engine) holdLocked() {
	if e.pending == 0 {
		e.idle = make(chan struct{})
	}
	e.pending++
}

func (e *Engine) hold() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return false
	}
	e.holdLocked()
	return true
}

func (e *Engine) finish() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed || e.pending == 0 {
		return
	}
	e.pending--
	if e.pending == 0 {
		close(e.idle)
	}
}

func (e *Engine) addUnwatch(fn func()) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		fn()
		return
	}
	e.unwatch = append(e.unwatch, fn)
	e.mu.Unlock()
}

func (e *Engine) addDebouncer(db *debouncer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		db.stop()
		return
	}
	e.debouncers = append(e.debouncers, db)
}

func (e *Engine) registerInput(name string, in inputPort) {
	e.portsMu.Lock()
	defer e.portsMu.Unlock()
	if _, dup := e.inputs[name]; dup {
		panic(&core.ContractViolation{Engine: e.name, Port: name, Err: core.ErrDuplicateName})
	}
	e.inputs[name] = in
}

func (e *Engine) registerOutput(name string, out outputPort) {
	e.portsMu.Lock()
	defer e.portsMu.Unlock()
	if _, dup := e.outputs[name]; dup {
		panic(&core.ContractViolation{Engine: e.name, Port: name, Err: core.ErrDuplicateName})
	}
	e.outputs[name] = out
	e.outputOrder = append(e.outputOrder, name)
}

func (e *Engine) lookupOutput(name string) outputPort {
	e.portsMu.RLock()
	out, ok := e.outputs[name]
	e.portsMu.RUnlock()
	if !ok {
		panic(&core.ContractViolation{Engine: e.name, Port: name, Err: core.ErrUndeclaredOutput})
	}
	return out
}

func (e *Engine) callbackContext(cc *CallbackContext) *CallbackContext {
	cc.EngineID = e.id
	cc.Screen = e.name
	return cc
}

func (e *Engine) runCallbacks(t CallbackType, cc *CallbackContext) {
	if !e.callbacks.Has(t) {
		return
	}
	if err := e.callbacks.ExecuteCallbacks(e.ctx, t, e.callbackContext(cc)); err != nil {
		e.logger.Warn("Callback failed", "screen", e.name, "callback", string(t), "error", err)
	}
}
