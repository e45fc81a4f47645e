// Package debounce delays delivery of rapidly changing text input until it
// has been quiet for a fixed interval.
package debounce

import (
	"sync"
	"time"
)

// DefaultInterval is the quiet period used when none is configured.
const DefaultInterval = 300 * time.Millisecond

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The real clock is time.AfterFunc; tests inject a
// manual one.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealClock schedules callbacks on the runtime timer.
var RealClock Clock = realClock{}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithClock replaces the clock used to schedule evaluations.
func WithClock(c Clock) Option {
	return func(d *Debouncer) { d.clock = c }
}

// WithInterval sets the quiet interval. Non-positive values keep the default.
func WithInterval(iv time.Duration) Option {
	return func(d *Debouncer) {
		if iv > 0 {
			d.interval = iv
		}
	}
}

// Debouncer holds at most one pending evaluation. Every Input cancels the
// pending one and restarts the interval; only the last value is delivered.
type Debouncer struct {
	mu       sync.Mutex
	clock    Clock
	interval time.Duration
	deliver  func(string)

	raw     string
	pending Timer
	gen     uint64
	stopped bool

	// fireMu is held while deliver runs so Stop can wait out an in-flight
	// delivery.
	fireMu sync.Mutex
}

// New creates a Debouncer that calls deliver with the settled value.
func New(deliver func(string), opts ...Option) *Debouncer {
	d := &Debouncer{clock: RealClock, interval: DefaultInterval, deliver: deliver}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Input records raw as the latest value and (re)starts the quiet interval.
// Input after Stop is ignored.
func (d *Debouncer) Input(raw string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.raw = raw
	d.cancelLocked()
	gen := d.gen
	d.pending = d.clock.AfterFunc(d.interval, func() { d.fire(gen) })
}

// Raw returns the most recent input, for rendering the input box.
func (d *Debouncer) Raw() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.raw
}

// Pending reports whether an evaluation is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// Cancel drops the pending evaluation, if any. The debouncer stays usable.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
}

// Flush delivers the pending value immediately instead of waiting out the
// interval. It is a no-op when nothing is pending.
func (d *Debouncer) Flush() {
	d.fireMu.Lock()
	defer d.fireMu.Unlock()

	d.mu.Lock()
	if d.pending == nil || d.stopped {
		d.mu.Unlock()
		return
	}
	d.cancelLocked()
	raw := d.raw
	d.mu.Unlock()

	d.deliver(raw)
}

// Reset drops the pending evaluation and clears the recorded input.
func (d *Debouncer) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.raw = ""
	d.cancelLocked()
}

// Stop cancels any pending evaluation and waits for an in-flight delivery to
// return. After Stop returns, deliver is never called again. Deliver must not
// call Stop.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.cancelLocked()
	d.mu.Unlock()

	d.fireMu.Lock()
	d.fireMu.Unlock()
}

// cancelLocked stops the pending timer and invalidates its generation so a
// timer that already fired cannot deliver. Must hold mu.
func (d *Debouncer) cancelLocked() {
	d.gen++
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}

func (d *Debouncer) fire(gen uint64) {
	d.fireMu.Lock()
	defer d.fireMu.Unlock()

	d.mu.Lock()
	if d.stopped || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.pending = nil
	raw := d.raw
	d.mu.Unlock()

	d.deliver(raw)
}
