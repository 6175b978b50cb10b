// Package timer holds the timer-ownership objects used by the session
// coordinator. None of the types here lock on their own: every method is
// called with the owner's locker held, and every firing re-acquires that
// locker and checks a generation token before touching state, so a firing
// that raced with Stop or Cancel is a no-op.
package timer

import (
	"sync"
	"time"

	"github.com/audiolibrelab/rehearse/internal/clock"
)

// Interval is a repeating timer, the equivalent of a setInterval handle.
type Interval struct {
	clock  clock.Clock
	period time.Duration
	locker sync.Locker

	gen     uint64
	running bool
	pending clock.Timer
	onTick  func()
}

// NewInterval creates a stopped interval firing every period.
func NewInterval(c clock.Clock, period time.Duration, locker sync.Locker) *Interval {
	return &Interval{
		clock:  c,
		period: period,
		locker: locker,
	}
}

// Start begins ticking. onTick runs with the locker held. Starting a
// running interval is a no-op.
func (iv *Interval) Start(onTick func()) {
	if iv.running {
		return
	}
	iv.gen++
	iv.running = true
	iv.onTick = onTick
	iv.schedule()
}

// Stop cancels the interval. Any tick already in flight is discarded.
func (iv *Interval) Stop() {
	if !iv.running {
		return
	}
	iv.gen++
	iv.running = false
	if iv.pending != nil {
		iv.pending.Stop()
		iv.pending = nil
	}
}

// Running reports whether the interval is ticking.
func (iv *Interval) Running() bool {
	return iv.running
}

func (iv *Interval) schedule() {
	gen := iv.gen
	iv.pending = iv.clock.AfterFunc(iv.period, func() {
		iv.fire(gen)
	})
}

func (iv *Interval) fire(gen uint64) {
	iv.locker.Lock()
	defer iv.locker.Unlock()

	if !iv.running || gen != iv.gen {
		return
	}
	iv.schedule()
	iv.onTick()
}

// Delay is a cancellable one-shot timer.
type Delay struct {
	clock  clock.Clock
	locker sync.Locker

	gen       uint64
	scheduled bool
	pending   clock.Timer
}

// NewDelay creates an idle delay.
func NewDelay(c clock.Clock, locker sync.Locker) *Delay {
	return &Delay{clock: c, locker: locker}
}

// Schedule arranges for fn to run after d, replacing anything already
// scheduled. fn runs with the locker held.
func (d *Delay) Schedule(after time.Duration, fn func()) {
	d.Cancel()
	d.gen++
	d.scheduled = true

	gen := d.gen
	d.pending = d.clock.AfterFunc(after, func() {
		d.locker.Lock()
		defer d.locker.Unlock()

		if !d.scheduled || gen != d.gen {
			return
		}
		d.scheduled = false
		d.pending = nil
		fn()
	})
}

// Cancel voids the scheduled call, if any.
func (d *Delay) Cancel() {
	if !d.scheduled {
		return
	}
	d.gen++
	d.scheduled = false
	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}

// Scheduled reports whether a call is pending.
func (d *Delay) Scheduled() bool {
	return d.scheduled
}
