package engine

import (
	"sync"
	"time"

	"github.com/hupe1980/viewflow/core"
)

type debouncer struct {
	mu      sync.Mutex
	timer   core.Timer
	gen     uint64
	stopped bool
}

// schedule replaces any pending fire with a new one after d. It reports
// whether an unfired value was superseded.
func (d *debouncer) schedule(clock core.Clock, wait time.Duration, fire func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return false
	}
	superseded := false
	if d.timer != nil {
		d.timer.Stop()
		superseded = true
	}
	d.gen++
	gen := d.gen
	d.timer = clock.AfterFunc(wait, func() {
		d.mu.Lock()
		current := !d.stopped && gen == d.gen
		if current {
			d.timer = nil
		}
		d.mu.Unlock()
		if current {
			fire()
		}
	})
	return superseded
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Debounce derives an input that fires with the most recent value of in once
// no new value arrived for d. A d <= 0 uses Config.DefaultDebounce. Pending
// timers are stopped on Dispose and do not hold Idle.
func Debounce[T any](in *Input[T], d time.Duration) *Input[T] {
	e := in.e
	if d <= 0 {
		d = e.config.DefaultDebounce
	}

	out := &Input[T]{e: e, name: in.name + ".debounced"}
	db := &debouncer{}
	e.addDebouncer(db)

	in.On(func(c *Context, v T) {
		fire := func() {
			e.post(func() { out.fire(v) })
		}
		if db.schedule(e.clock, d, fire) {
			e.runCallbacks(CallbackDebounceDrop, &CallbackContext{Input: in.name, Value: v})
		}
	})

	return out
}
