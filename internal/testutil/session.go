package testutil

import (
	"sync"

	"github.com/hupe1980/viewflow/core"
)

// Compile-time checks for the Session Context doubles.
var (
	_ core.CurrentUser    = (*MutableUser)(nil)
	_ core.ConfigProvider = (*StaticConfig)(nil)
)

// MutableUser is a CurrentUser double whose user is set directly by tests.
type MutableUser struct {
	mu       sync.Mutex
	user     *core.User
	nextID   int
	watchers map[int]func(*core.User)
}

// NewMutableUser starts with u (nil = logged out).
func NewMutableUser(u *core.User) *MutableUser {
	return &MutableUser{user: u.Clone(), watchers: map[int]func(*core.User){}}
}

// Current returns a copy of the current user.
func (m *MutableUser) Current() *core.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user.Clone()
}

// IsLoggedIn reports whether a user is set.
func (m *MutableUser) IsLoggedIn() bool { return m.Current() != nil }

// Watch registers fn for changes made through Set.
func (m *MutableUser) Watch(fn func(*core.User)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.watchers[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.watchers, id)
	}
}

// Watchers returns the number of attached watchers.
func (m *MutableUser) Watchers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watchers)
}

// Set replaces the user and notifies watchers synchronously.
func (m *MutableUser) Set(u *core.User) {
	m.mu.Lock()
	m.user = u.Clone()
	fns := make([]func(*core.User), 0, len(m.watchers))
	for _, fn := range m.watchers {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(u.Clone())
	}
}

// StaticConfig is a ConfigProvider double backed by maps.
type StaticConfig struct {
	mu       sync.Mutex
	flags    map[string]bool
	values   map[string]string
	ints     map[string]int
	watchers []func(core.ConfigProvider)
}

// NewStaticConfig enables the given flags.
func NewStaticConfig(flags ...string) *StaticConfig {
	c := &StaticConfig{flags: map[string]bool{}, values: map[string]string{}, ints: map[string]int{}}
	for _, f := range flags {
		c.flags[f] = true
	}
	return c
}

// Enabled ignores the user.
func (c *StaticConfig) Enabled(flag string, _ *core.User) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flags[flag]
}

func (c *StaticConfig) String(key string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.values[key]
}

func (c *StaticConfig) Int(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ints[key]
}

func (c *StaticConfig) Watch(fn func(core.ConfigProvider)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchers = append(c.watchers, fn)
	return func() {}
}

// SetFlag toggles a flag and notifies watchers as a reload would.
func (c *StaticConfig) SetFlag(flag string, on bool) {
	c.mu.Lock()
	c.flags[flag] = on
	fns := append([]func(core.ConfigProvider){}, c.watchers...)
	c.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// SetValue sets a string value without notifying.
func (c *StaticConfig) SetValue(key, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
}
