package session

import (
	"sync"
	"time"

	"github.com/coder/quartz"
)

// debouncer runs the most recently triggered function once the delay has
// passed without another trigger. At most one timer is pending at a time.
type debouncer struct {
	clock quartz.Clock
	delay time.Duration

	mu    sync.Mutex
	gen   uint64
	timer *quartz.Timer
	fn    func()
}

func newDebouncer(clock quartz.Clock, delay time.Duration) *debouncer {
	return &debouncer{clock: clock, delay: delay}
}

// Trigger replaces any pending call with fn and restarts the delay.
func (d *debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.gen++
	gen := d.gen
	d.fn = fn
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(gen) }, "debounce")
}

func (d *debouncer) fire(gen uint64) {
	d.mu.Lock()
	// A stopped timer can still fire if it raced with Stop
	if gen != d.gen || d.fn == nil {
		d.mu.Unlock()
		return
	}
	fn := d.fn
	d.fn = nil
	d.timer = nil
	d.mu.Unlock()

	fn()
}

// Cancel drops the pending call, if any.
func (d *debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopLocked()
	d.gen++
	d.fn = nil
}

// Flush runs the pending call now instead of waiting for the timer. It
// reports whether there was anything to run.
func (d *debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.fn
	d.stopLocked()
	d.gen++
	d.fn = nil
	d.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Pending reports whether a call is waiting on the timer.
func (d *debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}

func (d *debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
