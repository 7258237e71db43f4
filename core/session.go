package core

// CurrentUser is the observe-only view of the shared session. Engines hold
// this view; only the session authority (see package session) can log users
// in or out.
type CurrentUser interface {
	// Current returns a copy of the logged-in user or nil when logged out.
	Current() *User
	// IsLoggedIn reports whether a user is present.
	IsLoggedIn() bool
	// Watch registers fn for every subsequent change (login, logout,
	// refresh). The returned cancel func detaches the watcher.
	Watch(fn func(*User)) (cancel func())
}

// ConfigProvider exposes synchronous configuration and feature-flag lookups.
type ConfigProvider interface {
	// Enabled evaluates a feature flag for the given user (nil = logged out).
	Enabled(flag string, u *User) bool
	// String returns a configuration value coerced to string ("" if unset).
	String(key string) string
	// Int returns a configuration value coerced to int (0 if unset).
	Int(key string) int
	// Watch registers fn for every configuration reload.
	Watch(fn func(ConfigProvider)) (cancel func())
}

// Tracker is a fire-and-forget analytics sink. Implementations must not block.
type Tracker interface {
	Track(event string, properties map[string]any)
}

// SessionContext bundles the externally owned collaborators an engine reads
// from. Engines never manage their lifecycle. Nil members are replaced with
// inert defaults by Normalize.
type SessionContext struct {
	CurrentUser CurrentUser
	Config      ConfigProvider
	Analytics   Tracker
}

// Normalize returns a copy of sc with nil collaborators replaced by inert
// implementations (always logged out, all flags off, analytics discarded).
func (sc SessionContext) Normalize() SessionContext {
	if sc.CurrentUser == nil {
		sc.CurrentUser = LoggedOut{}
	}
	if sc.Config == nil {
		sc.Config = EmptyConfig{}
	}
	if sc.Analytics == nil {
		sc.Analytics = DiscardTracker{}
	}
	return sc
}

// LoggedOut is a CurrentUser that never has a user.
type LoggedOut struct{}

func (LoggedOut) Current() *User           { return nil }
func (LoggedOut) IsLoggedIn() bool         { return false }
func (LoggedOut) Watch(func(*User)) func() { return func() {} }

// EmptyConfig is a ConfigProvider with no flags and no values.
type EmptyConfig struct{}

func (EmptyConfig) Enabled(string, *User) bool        { return false }
func (EmptyConfig) String(string) string              { return "" }
func (EmptyConfig) Int(string) int                    { return 0 }
func (EmptyConfig) Watch(func(ConfigProvider)) func() { return func() {} }

// DiscardTracker drops every analytics event.
type DiscardTracker struct{}

// Track implements Tracker.
func (DiscardTracker) Track(string, map[string]any) {}
