// Package debounce coalesces bursts of input into a single call once the
// input has been quiet for a fixed window.
package debounce

import (
	"sync"
	"time"
)

// DefaultWindow is the quiet period used when none is configured.
const DefaultWindow = 800 * time.Millisecond

// Debouncer runs fn with the most recent triggered value after window elapses
// without a new Trigger. It is safe for concurrent use.
type Debouncer struct {
	mu      sync.Mutex
	window  time.Duration
	fn      func(string)
	timer   *time.Timer
	value   string
	pending bool
	seq     uint64
	stopped bool
}

// New creates a Debouncer. A non-positive window falls back to DefaultWindow.
func New(window time.Duration, fn func(string)) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Debouncer{window: window, fn: fn}
}

// Trigger records value as the latest input and re-arms the timer.
func (d *Debouncer) Trigger(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.value = value
	d.pending = true
	d.seq++
	seq := d.seq
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.fire(seq) })
}

// fire runs fn if no later Trigger, Flush or Stop superseded the timer for seq.
func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	if !d.pending || seq != d.seq || d.stopped {
		d.mu.Unlock()
		return
	}
	value := d.take()
	d.mu.Unlock()
	d.fn(value)
}

// take clears the pending call. Caller holds mu.
func (d *Debouncer) take() string {
	d.pending = false
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	return d.value
}

// Flush runs a pending call immediately on the calling goroutine.
// It reports whether a call was pending.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	if !d.pending || d.stopped {
		d.mu.Unlock()
		return false
	}
	value := d.take()
	d.mu.Unlock()
	d.fn(value)
	return true
}

// Cancel drops a pending call without running it; later Triggers still work.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending {
		d.take()
	}
}

// Stop drops any pending call and ignores all later Triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.pending {
		d.take()
	}
	d.stopped = true
}

// Pending reports whether a call is armed.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Window returns the quiet period.
func (d *Debouncer) Window() time.Duration {
	return d.window
}
