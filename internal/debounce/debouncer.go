package debounce

import (
	"sync"
	"time"
)

// DefaultQuietPeriod is how long input must stay unchanged before it settles
const DefaultQuietPeriod = 500 * time.Millisecond

// Debouncer turns a rapidly changing text input into a settled value.
// The raw value is stored immediately; the settled value only follows it after
// a quiet period without writes, and each settlement invokes onSettle once.
type Debouncer struct {
	quiet    time.Duration
	onSettle func(string)

	// held while onSettle runs so Close can wait for a settlement in progress
	emitMu sync.Mutex

	mu         sync.Mutex
	raw        string
	settled    string
	hasSettled bool
	timer      *time.Timer
	generation uint64
	closed     bool
}

// New creates a debouncer. onSettle may be nil.
func New(quiet time.Duration, onSettle func(string)) *Debouncer {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	return &Debouncer{
		quiet:    quiet,
		onSettle: onSettle,
	}
}

// OnInputChange records raw and restarts the quiet period, cancelling any pending settlement
func (d *Debouncer) OnInputChange(raw string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}

	d.raw = raw
	d.stopLocked()

	d.generation++
	gen := d.generation
	d.timer = time.AfterFunc(d.quiet, func() { d.fire(gen) })
}

// Flush settles the current raw value now, without waiting for the quiet period
func (d *Debouncer) Flush() {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.stopLocked()
	d.generation++
	value := d.settleLocked()
	d.mu.Unlock()

	d.emit(value)
}

// Raw returns the latest input, never delayed
func (d *Debouncer) Raw() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.raw
}

// Settled returns the settled value; ok is false until the first settlement
func (d *Debouncer) Settled() (value string, ok bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.settled, d.hasSettled
}

// Pending reports whether a settlement is scheduled
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Close cancels any pending settlement. onSettle is never called after Close returns,
// so onSettle itself must not call Close.
func (d *Debouncer) Close() {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.stopLocked()
	d.generation++
}

func (d *Debouncer) fire(gen uint64) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	// A write, flush or close since this timer was armed makes it stale
	if d.closed || gen != d.generation {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	value := d.settleLocked()
	d.mu.Unlock()

	d.emit(value)
}

func (d *Debouncer) settleLocked() string {
	d.settled = d.raw
	d.hasSettled = true
	return d.settled
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) emit(value string) {
	if d.onSettle != nil {
		d.onSettle(value)
	}
}
