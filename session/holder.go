package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/logging"
)

// ErrStaleRefresh is returned by Refresh when the session changed while the
// user was being fetched. The fetched record is dropped.
var ErrStaleRefresh = errors.New("session: changed during refresh")

// Fetcher loads the current user from the backend.
type Fetcher interface {
	FetchCurrentUser(ctx context.Context) (*core.User, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (*core.User, error)

// FetchCurrentUser implements Fetcher.
func (f FetcherFunc) FetchCurrentUser(ctx context.Context) (*core.User, error) { return f(ctx) }

// Options configures a Holder.
type Options struct {
	// Fetcher is required for Refresh.
	Fetcher Fetcher
	// Store persists login state. Optional.
	Store Store
	// Logger defaults to a NoOp logger.
	Logger logging.Logger
}

// Holder is the write authority for the current user.
type Holder struct {
	fetcher Fetcher
	store   Store
	logger  logging.Logger

	// writeMu serializes state changes with their notifications so watchers
	// observe changes in write order.
	writeMu sync.Mutex

	mu       sync.RWMutex
	user     *core.User
	token    string
	gen      uint64
	nextID   int
	watchers map[int]func(*core.User)
}

// Compile-time check that Holder exposes the observe-only contract.
var _ core.CurrentUser = (*Holder)(nil)

// NewHolder creates a logged-out holder.
func NewHolder(optFns ...func(o *Options)) *Holder {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Holder{
		fetcher:  opts.Fetcher,
		store:    opts.Store,
		logger:   opts.Logger,
		watchers: make(map[int]func(*core.User)),
	}
}

// Current returns a copy of the logged-in user, or nil.
func (h *Holder) Current() *core.User {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user.Clone()
}

// IsLoggedIn reports whether a user is present.
func (h *Holder) IsLoggedIn() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.user != nil
}

// Token returns the access token of the logged-in user.
func (h *Holder) Token() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token
}

// Watch registers fn for every subsequent login, logout and refresh.
func (h *Holder) Watch(fn func(*core.User)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextID++
	id := h.nextID
	h.watchers[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.watchers, id)
	}
}

// Login stores user and token and notifies watchers.
func (h *Holder) Login(ctx context.Context, user *core.User, token string) error {
	if user == nil {
		return fmt.Errorf("session: login requires a user")
	}
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	h.set(user, token)
	h.logger.Info("User logged in", "user", user.Key())

	if h.store != nil {
		if err := h.store.Save(ctx, State{User: user.Clone(), Token: token}); err != nil {
			return fmt.Errorf("session: persist login: %w", err)
		}
	}
	return nil
}

// Logout clears the session and notifies watchers.
func (h *Holder) Logout(ctx context.Context) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	h.set(nil, "")
	h.logger.Info("User logged out")

	if h.store != nil {
		if err := h.store.Clear(ctx); err != nil {
			return fmt.Errorf("session: clear persisted session: %w", err)
		}
	}
	return nil
}

// Refresh reloads the user through the Fetcher. On failure the previous
// user is kept and the error returned. A result fetched across a login,
// logout or another refresh is dropped with ErrStaleRefresh.
func (h *Holder) Refresh(ctx context.Context) error {
	h.mu.RLock()
	loggedIn, gen := h.user != nil, h.gen
	h.mu.RUnlock()

	if !loggedIn {
		return core.ErrLoggedOut
	}
	if h.fetcher == nil {
		return fmt.Errorf("session: refresh without fetcher")
	}

	user, err := h.fetcher.FetchCurrentUser(ctx)
	if err != nil {
		h.logger.Warn("User refresh failed", "error", err)
		return fmt.Errorf("session: refresh: %w", err)
	}
	if user == nil {
		return fmt.Errorf("session: refresh returned no user")
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()

	h.mu.RLock()
	stale, token := h.gen != gen, h.token
	h.mu.RUnlock()
	if stale {
		h.logger.Debug("Dropped stale user refresh", "user", user.Key())
		return ErrStaleRefresh
	}
	h.set(user, token)
	h.logger.Debug("User refreshed", "user", user.Key())

	if h.store != nil {
		if err := h.store.Save(ctx, State{User: user.Clone(), Token: token}); err != nil {
			return fmt.Errorf("session: persist refresh: %w", err)
		}
	}
	return nil
}

// Restore loads a persisted session, if any, and notifies watchers.
func (h *Holder) Restore(ctx context.Context) (bool, error) {
	if h.store == nil {
		return false, nil
	}
	state, ok, err := h.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("session: restore: %w", err)
	}
	if !ok || state.User == nil {
		return false, nil
	}

	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	h.set(state.User, state.Token)
	h.logger.Info("Session restored", "user", state.User.Key())
	return true, nil
}

// View returns the observe-only handle handed to engines.
func (h *Holder) View() core.CurrentUser { return view{h: h} }

func (h *Holder) set(user *core.User, token string) {
	h.mu.Lock()
	h.user = user.Clone()
	h.token = token
	h.gen++
	fns := make([]func(*core.User), 0, len(h.watchers))
	for id := 1; id <= h.nextID; id++ {
		if fn, ok := h.watchers[id]; ok {
			fns = append(fns, fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(user.Clone())
	}
}

type view struct{ h *Holder }

func (v view) Current() *core.User              { return v.h.Current() }
func (v view) IsLoggedIn() bool                 { return v.h.IsLoggedIn() }
func (v view) Watch(fn func(*core.User)) func() { return v.h.Watch(fn) }
