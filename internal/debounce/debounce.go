// Package debounce provides a trailing-edge debouncer used to settle bursts of
// search input into a single effective value.
package debounce

import (
	"sync"
	"time"
)

// Debouncer delivers the last value pushed to it once no new value has
// arrived for the configured delay. It is safe for concurrent use.
type Debouncer[T any] struct {
	delay time.Duration
	fire  func(T)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	pending bool
	value   T
	stopped bool
}

// New returns a debouncer that calls fire with the settled value. A
// non-positive delay fires synchronously on every Push.
func New[T any](delay time.Duration, fire func(T)) *Debouncer[T] {
	return &Debouncer[T]{delay: delay, fire: fire}
}

// Push records v and restarts the delay. Earlier pending values are dropped.
func (d *Debouncer[T]) Push(v T) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	if d.delay <= 0 {
		d.mu.Unlock()
		d.fire(v)
		return
	}
	d.gen++
	gen := d.gen
	d.value = v
	d.pending = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.expire(gen) })
	d.mu.Unlock()
}

// expire fires the pending value unless a later Push, Flush or Stop
// superseded generation gen.
func (d *Debouncer[T]) expire(gen uint64) {
	d.mu.Lock()
	if d.stopped || !d.pending || gen != d.gen {
		d.mu.Unlock()
		return
	}
	v := d.value
	d.pending = false
	d.timer = nil
	d.mu.Unlock()
	d.fire(v)
}

// Flush fires the pending value immediately, if any. It reports whether a
// value was delivered.
func (d *Debouncer[T]) Flush() bool {
	d.mu.Lock()
	if d.stopped || !d.pending {
		d.mu.Unlock()
		return false
	}
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	v := d.value
	d.pending = false
	d.mu.Unlock()
	d.fire(v)
	return true
}

// Pending reports whether a value is waiting to fire.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels any pending fire and disables the debouncer. Later pushes
// are ignored.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
