package analytics

import (
	"sync"
	"time"

	"github.com/hupe1980/viewflow/core"
	"github.com/hupe1980/viewflow/logging"
)

// Event is one tracked analytics event.
type Event struct {
	Name       string         `json:"event"`
	Properties map[string]any `json:"properties,omitempty"`
	Time       time.Time      `json:"time"`
}

func newEvent(name string, properties map[string]any) Event {
	var props map[string]any
	if len(properties) > 0 {
		props = make(map[string]any, len(properties))
		for k, v := range properties {
			props[k] = v
		}
	}
	return Event{Name: name, Properties: props, Time: time.Now().UTC()}
}

// Compile-time checks.
var (
	_ core.Tracker = (*Recorder)(nil)
	_ core.Tracker = (*LogTracker)(nil)
	_ core.Tracker = Multi(nil)
)

// Recorder keeps events in memory. It backs tests and the CLI report.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Track implements core.Tracker.
func (r *Recorder) Track(event string, properties map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, newEvent(event, properties))
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Names returns the recorded event names in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		names = append(names, ev.Name)
	}
	return names
}

// Count returns how often name was tracked.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Name == name {
			n++
		}
	}
	return n
}

// Reset forgets all events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// LogTracker writes events to a logger at info level.
type LogTracker struct {
	logger logging.Logger
}

// NewLogTracker creates a LogTracker. A nil logger discards.
func NewLogTracker(logger logging.Logger) *LogTracker {
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	return &LogTracker{logger: logger}
}

// Track implements core.Tracker.
func (l *LogTracker) Track(event string, properties map[string]any) {
	args := []any{"event", event}
	if len(properties) > 0 {
		args = append(args, "properties", properties)
	}
	l.logger.Info("Analytics event", args...)
}

// Multi fans out to every tracker in order.
type Multi []core.Tracker

// Track implements core.Tracker.
func (m Multi) Track(event string, properties map[string]any) {
	for _, t := range m {
		if t != nil {
			t.Track(event, properties)
		}
	}
}
