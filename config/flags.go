package config

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/logging"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Compile-time check that Flags implements core.ConfigProvider.
var _ core.ConfigProvider = (*Flags)(nil)

// FlagSpec describes one feature flag. In YAML a flag is either a bare
// boolean or a mapping with enabled and rule.
type FlagSpec struct {
	Enabled bool   `yaml:"enabled"`
	Rule    string `yaml:"rule,omitempty"`
}

// UnmarshalYAML accepts the short boolean form. A mapping without enabled
// defaults to enabled.
func (f *FlagSpec) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&f.Enabled)
	}
	var raw struct {
		Enabled *bool  `yaml:"enabled"`
		Rule    string `yaml:"rule"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	f.Enabled = raw.Enabled == nil || *raw.Enabled
	f.Rule = raw.Rule
	return nil
}

// Document is the YAML layout of a flags file.
type Document struct {
	Values map[string]any       `yaml:"values"`
	Flags  map[string]*FlagSpec `yaml:"flags"`
}

type compiledFlag struct {
	spec    FlagSpec
	program *vm.Program
}

// Flags is a ConfigProvider backed by a YAML document.
type Flags struct {
	logger logging.Logger

	mu     sync.RWMutex
	values map[string]any
	flags  map[string]compiledFlag

	watchMu  sync.Mutex
	nextID   int
	watchers map[int]func(core.ConfigProvider)
}

// NewFlags creates an empty provider.
func NewFlags(logger logging.Logger) *Flags {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &Flags{
		logger:   logger,
		values:   map[string]any{},
		flags:    map[string]compiledFlag{},
		watchers: map[int]func(core.ConfigProvider){},
	}
}

// ParseFlags builds a provider from YAML.
func ParseFlags(data []byte, logger logging.Logger) (*Flags, error) {
	f := NewFlags(logger)
	if err := f.swap(data); err != nil {
		return nil, err
	}
	return f, nil
}

// LoadFlags builds a provider from a YAML file.
func LoadFlags(path string, logger logging.Logger) (*Flags, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read flags: %w", err)
	}
	return ParseFlags(data, logger)
}

// Reload replaces the document and notifies watchers. On error the previous
// document stays active.
func (f *Flags) Reload(data []byte) error {
	if err := f.swap(data); err != nil {
		return err
	}
	f.notify()
	return nil
}

// ReloadFile reads path and calls Reload.
func (f *Flags) ReloadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read flags: %w", err)
	}
	return f.Reload(data)
}

func (f *Flags) swap(data []byte) error {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("config: parse flags: %w", err)
	}

	compiled := make(map[string]compiledFlag, len(doc.Flags))
	for name, spec := range doc.Flags {
		if spec == nil {
			spec = &FlagSpec{}
		}
		cf := compiledFlag{spec: *spec}
		if spec.Rule != "" {
			program, err := expr.Compile(spec.Rule, expr.Env(ruleEnv(nil, nil)))
			if err != nil {
				return fmt.Errorf("config: flag %s: %w", name, err)
			}
			cf.program = program
		}
		compiled[name] = cf
	}

	values := doc.Values
	if values == nil {
		values = map[string]any{}
	}

	f.mu.Lock()
	f.values = values
	f.flags = compiled
	f.mu.Unlock()

	f.logger.Debug("Flags loaded", "flags", len(compiled), "values", len(values))
	return nil
}

func ruleEnv(u *core.User, values map[string]any) map[string]any {
	if values == nil {
		values = map[string]any{}
	}
	return map[string]any{"user": u.Attributes(), "values": values}
}

// Enabled evaluates flag for u. Unknown flags and failing rules are off.
func (f *Flags) Enabled(flag string, u *core.User) bool {
	f.mu.RLock()
	cf, ok := f.flags[flag]
	values := f.values
	f.mu.RUnlock()

	if !ok || !cf.spec.Enabled {
		return false
	}
	if cf.program == nil {
		return true
	}

	out, err := expr.Run(cf.program, ruleEnv(u, values))
	if err != nil {
		f.logger.Warn("Flag rule failed", "flag", flag, "error", err)
		return false
	}
	on, err := cast.ToBoolE(out)
	if err != nil {
		f.logger.Warn("Flag rule returned non-boolean", "flag", flag, "value", out)
		return false
	}
	return on
}

// Names lists the declared flags.
func (f *Flags) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.flags))
	for name := range f.flags {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *Flags) value(key string) any {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.values[key]
}

// String returns values[key] as a string.
func (f *Flags) String(key string) string { return cast.ToString(f.value(key)) }

// Int returns values[key] as an int.
func (f *Flags) Int(key string) int { return cast.ToInt(f.value(key)) }

// Bool returns values[key] as a bool.
func (f *Flags) Bool(key string) bool { return cast.ToBool(f.value(key)) }

// Duration returns values[key] as a duration ("1.5s", or nanoseconds).
func (f *Flags) Duration(key string) time.Duration { return cast.ToDuration(f.value(key)) }

// Watch registers fn for every successful reload.
func (f *Flags) Watch(fn func(core.ConfigProvider)) func() {
	f.watchMu.Lock()
	defer f.watchMu.Unlock()
	f.nextID++
	id := f.nextID
	f.watchers[id] = fn
	return func() {
		f.watchMu.Lock()
		defer f.watchMu.Unlock()
		delete(f.watchers, id)
	}
}

func (f *Flags) notify() {
	f.watchMu.Lock()
	fns := make([]func(core.ConfigProvider), 0, len(f.watchers))
	for id := 1; id <= f.nextID; id++ {
		if fn, ok := f.watchers[id]; ok {
			fns = append(fns, fn)
		}
	}
	f.watchMu.Unlock()
	for _, fn := range fns {
		fn(f)
	}
}
