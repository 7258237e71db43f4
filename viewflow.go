// Package viewflow provides a high-level façade over the view-model engine
// and the shared Session Context. Most applications interact with this
// package by:
//  1. Creating a Runtime via New() or FromSettings()
//  2. Logging a user in through Runtime.Session()
//  3. Opening one view-model per screen (ChangePassword, Project, Search,
//     Messages, Activity) and disposing it when the screen closes
//
// The Runtime owns everything that outlives a screen: the current-user
// holder, the feature flags, the analytics sinks, the metrics collector and
// the API and assist collaborators. Defaults are safe for local development
// and tests; FromSettings wires Redis, file-backed flags and LLM providers
// from the environment.
package viewflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/hashicorp/go-multierror"
	"github.com/hupe1980/viewflow/analytics"
	"github.com/hupe1980/viewflow/api"
	"github.com/hupe1980/viewflow/assist"
	"github.com/hupe1980/viewflow/assist/anthropic"
	"github.com/hupe1980/viewflow/assist/openai"
	"github.com/hupe1980/viewflow/config"
	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/engine"
	"github.com/hupe1980/viewflow/logging"
	"github.com/hupe1980/viewflow/metrics"
	"github.com/hupe1980/viewflow/screen"
	"github.com/hupe1980/viewflow/screen/activity"
	"github.com/hupe1980/viewflow/screen/changepassword"
	"github.com/hupe1980/viewflow/screen/messages"
	"github.com/hupe1980/viewflow/screen/project"
	"github.com/hupe1980/viewflow/screen/search"
	"github.com/hupe1980/viewflow/session"
	oaoption "github.com/openai/openai-go/option"
)

// ErrUnknownScreen is returned by NewScreen for unregistered names.
var ErrUnknownScreen = errors.New("viewflow: unknown screen")

// Options configures the Runtime.
type Options struct {
	// API is the backend collaborator. Defaults to an api.MockClient with no
	// behavior configured.
	API api.Client

	// Assist suggests replies. Nil hides reply suggestions.
	Assist assist.Suggester

	// Flags provides configuration and feature flags. Defaults to an empty
	// provider.
	Flags *config.Flags

	// Trackers receive every analytics event in addition to the log tracker.
	Trackers []core.Tracker

	// SessionStore persists logins. Optional.
	SessionStore session.Store

	// Clock drives debounce timers. Defaults to the system clock.
	Clock core.Clock

	// Debounce is the search-as-you-type window. Zero uses the engine default.
	Debounce time.Duration

	// MetricsNamespace prefixes the Prometheus metrics.
	MetricsNamespace string

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// Runtime is the façade aggregating the Session Context and the collaborators
// shared by every screen.
type Runtime struct {
	opts      Options
	holder    *session.Holder
	flags     *config.Flags
	tracker   analytics.Multi
	callbacks *engine.CallbackManager
	metrics   *metrics.Collector

	// closers run on Close in reverse order.
	closers []func(ctx context.Context) error

	mu      sync.Mutex
	screens []*engine.Engine
	closed  bool
}

// New creates a Runtime with optional overrides.
func New(optFns ...func(o *Options)) *Runtime {
	opts := Options{
		Logger:           logging.NoOpLogger{},
		MetricsNamespace: "viewflow",
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.API == nil {
		opts.API = &api.MockClient{}
	}
	if opts.Flags == nil {
		opts.Flags = config.NewFlags(opts.Logger)
	}

	r := &Runtime{
		opts:      opts,
		flags:     opts.Flags,
		callbacks: engine.NewCallbackManager(),
		metrics:   metrics.NewCollector(opts.MetricsNamespace),
	}

	client := opts.API
	r.holder = session.NewHolder(func(o *session.Options) {
		o.Fetcher = session.FetcherFunc(client.FetchCurrentUser)
		o.Store = opts.SessionStore
		o.Logger = opts.Logger
	})

	r.tracker = append(analytics.Multi{analytics.NewLogTracker(opts.Logger)}, opts.Trackers...)
	r.metrics.Register(r.callbacks)

	return r
}

// FromSettings builds a Runtime from process settings: the HTTP backend with
// the session token, file-backed flags (watched for changes), Redis for
// analytics and session persistence, a scheduled session refresh and the
// configured assist provider.
func FromSettings(s *config.Settings, optFns ...func(o *Options)) (*Runtime, error) {
	logger := s.Logger()

	suggester, err := newSuggester(s)
	if err != nil {
		return nil, err
	}

	var (
		holder  *session.Holder
		closers []func(ctx context.Context) error
	)

	client := api.NewHTTPClient(s.APIBaseURL, func(o *api.HTTPOptions) {
		o.Timeout = s.APITimeout
		o.Logger = logging.ForComponent(logger, "api")
		o.Token = func() string {
			if holder == nil {
				return ""
			}
			return holder.Token()
		}
	})

	flags := config.NewFlags(logging.ForComponent(logger, "config"))
	if s.FlagsFile != "" {
		if err := flags.ReloadFile(s.FlagsFile); err != nil {
			return nil, err
		}
		if s.WatchFlags {
			w, err := config.WatchFile(s.FlagsFile, flags, logging.ForComponent(logger, "config"), nil)
			if err != nil {
				return nil, err
			}
			closers = append(closers, func(context.Context) error { return w.Close() })
		}
	}

	var (
		trackers []core.Tracker
		store    session.Store
	)
	if s.RedisAddr != "" {
		rdb := analytics.NewRedisClient(s.RedisAddr)
		sink := analytics.NewRedisSink(rdb, func(o *analytics.RedisOptions) {
			o.Key = s.RedisEventsKey
			o.Buffer = s.AnalyticsBuffer
			o.Rate = s.AnalyticsRate
			o.Logger = logging.ForComponent(logger, "analytics")
		})
		trackers = append(trackers, sink)
		store = session.NewRedisStore(rdb, s.RedisSessionKey, 0)
		closers = append(closers, sink.Close, closeRedis(rdb))
	}

	r := New(func(o *Options) {
		o.API = client
		o.Assist = suggester
		o.Flags = flags
		o.Trackers = trackers
		o.SessionStore = store
		o.Debounce = s.Debounce
		o.Logger = logger
		for _, fn := range optFns {
			fn(o)
		}
	})
	holder = r.holder
	if z, ok := logger.(*logging.ZapAdapter); ok {
		r.closers = append(r.closers, func(context.Context) error {
			// Syncing a terminal returns EINVAL on some platforms.
			_ = z.Sync()
			return nil
		})
	}
	r.closers = append(r.closers, closers...)

	if store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), s.APITimeout)
		_, err := r.holder.Restore(ctx)
		cancel()
		if err != nil {
			logger.Warn("Failed to restore session", "error", err)
		}
	}

	if s.RefreshSchedule != "" {
		sched, err := session.NewScheduler(r.holder, s.RefreshSchedule, s.APITimeout, logging.ForComponent(logger, "session"))
		if err != nil {
			_ = r.Close(context.Background())
			return nil, fmt.Errorf("viewflow: refresh schedule: %w", err)
		}
		sched.Start()
		r.closers = append(r.closers, func(ctx context.Context) error {
			select {
			case <-sched.Stop().Done():
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	return r, nil
}

func closeRedis(rdb *redis.Client) func(context.Context) error {
	return func(context.Context) error { return rdb.Close() }
}

func newSuggester(s *config.Settings) (assist.Suggester, error) {
	switch s.AssistProvider {
	case "anthropic":
		if s.AnthropicAPIKey == "" {
			return nil, errors.New("viewflow: ANTHROPIC_API_KEY is required for the anthropic assist provider")
		}
		return anthropic.New(func(o *anthropic.Options) { o.APIKey = s.AnthropicAPIKey }), nil
	case "openai":
		if s.OpenAIAPIKey == "" {
			return nil, errors.New("viewflow: OPENAI_API_KEY is required for the openai assist provider")
		}
		return openai.New(func(o *openai.Options) {
			o.RequestOptions = append(o.RequestOptions, oaoption.WithAPIKey(s.OpenAIAPIKey))
		}), nil
	default:
		return nil, nil
	}
}

// Session returns the write authority for the current user.
func (r *Runtime) Session() *session.Holder { return r.holder }

// Flags returns the configuration and feature-flag provider.
func (r *Runtime) Flags() *config.Flags { return r.flags }

// Metrics returns the Prometheus collector fed by every screen.
func (r *Runtime) Metrics() *metrics.Collector { return r.metrics }

// Callbacks returns the callback manager shared by every screen. Callbacks
// registered here observe all engines created afterwards.
func (r *Runtime) Callbacks() *engine.CallbackManager { return r.callbacks }

// Environment returns the collaborators handed to view-models. Engines only
// see the observe-only view of the session.
func (r *Runtime) Environment() screen.Environment {
	return screen.Environment{
		Session: core.SessionContext{
			CurrentUser: r.holder.View(),
			Config:      r.flags,
			Analytics:   r.tracker,
		},
		API:       r.opts.API,
		Assist:    r.opts.Assist,
		Logger:    r.opts.Logger,
		Clock:     r.opts.Clock,
		Callbacks: r.callbacks,
		Debounce:  r.opts.Debounce,
	}
}

// ChangePassword opens the change-password screen.
func (r *Runtime) ChangePassword() *changepassword.ViewModel {
	vm := changepassword.New(r.Environment())
	r.track(vm.Engine)
	return vm
}

// Project opens the project page for p.
func (r *Runtime) Project(p api.Project) *project.ViewModel {
	vm := project.New(r.Environment(), p)
	r.track(vm.Engine)
	return vm
}

// Search opens the search screen.
func (r *Runtime) Search() *search.ViewModel {
	vm := search.New(r.Environment())
	r.track(vm.Engine)
	return vm
}

// Messages opens the message thread with the given id.
func (r *Runtime) Messages(threadID int64) *messages.ViewModel {
	vm := messages.New(r.Environment(), threadID)
	r.track(vm.Engine)
	return vm
}

// Activity opens the activity feed.
func (r *Runtime) Activity() *activity.ViewModel {
	vm := activity.New(r.Environment())
	r.track(vm.Engine)
	return vm
}

// ScreenParams carries the arguments of screens opened by name.
type ScreenParams struct {
	Project  api.Project
	ThreadID int64
}

// Screens lists the names accepted by NewScreen.
func Screens() []string {
	return []string{activity.Name, changepassword.Name, messages.Name, project.Name, search.Name}
}

// NewScreen opens a screen by name and returns its engine, for callers that
// drive screens through named ports.
func (r *Runtime) NewScreen(name string, params ScreenParams) (*engine.Engine, error) {
	switch name {
	case changepassword.Name:
		return r.ChangePassword().Engine, nil
	case project.Name:
		return r.Project(params.Project).Engine, nil
	case search.Name:
		return r.Search().Engine, nil
	case messages.Name:
		return r.Messages(params.ThreadID).Engine, nil
	case activity.Name:
		return r.Activity().Engine, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownScreen, name)
	}
}

// track remembers e so Close can dispose it. Disposed engines are pruned.
func (r *Runtime) track(e *engine.Engine) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		_ = e.Dispose()
		return
	}

	live := r.screens[:0]
	for _, s := range r.screens {
		if !s.Disposed() {
			live = append(live, s)
		}
	}
	r.screens = append(live, e)
}

// OpenScreens returns the number of screens not yet disposed.
func (r *Runtime) OpenScreens() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, s := range r.screens {
		if !s.Disposed() {
			n++
		}
	}
	return n
}

// Close disposes every open screen, then releases the shared resources.
// The session itself stays persisted. Errors are aggregated.
func (r *Runtime) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	screens := r.screens
	r.screens = nil
	r.mu.Unlock()

	var result error
	for _, s := range screens {
		if err := s.Dispose(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result
}
