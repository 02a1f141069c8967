// Package debounce collapses bursts of calls into at most one (or two, with
// both edges enabled) invocations of a wrapped function. It mirrors the
// classic leading/trailing debounce with an optional max-wait ceiling so a
// continuous stream of calls cannot defer the invocation forever.
package debounce

import (
	"fmt"
	"sync"
	"time"
)

// Func is the wrapped function. It receives the arguments of the most recent
// Call in the burst and may return a result retrievable via Flush.
type Func func(args ...any) any

// Options configures a Debouncer.
type Options struct {
	// Wait is the quiet period that must elapse after the last call before
	// the trailing edge fires. Must be > 0.
	Wait time.Duration
	// MaxWait, when > 0, bounds how long invocation can be deferred while
	// calls keep arriving faster than Wait apart.
	MaxWait time.Duration
	// Leading fires the wrapped function at burst start.
	Leading bool
	// Trailing fires the wrapped function after the burst settles.
	Trailing bool
}

// Debouncer owns all timing state for one wrapped function. All methods are
// safe for concurrent use. The wrapped function runs with the internal lock
// held and must not call back into the same Debouncer.
type Debouncer struct {
	mu   sync.Mutex
	fn   Func
	opts Options

	timer *time.Timer
	// timerGen invalidates wakeups from timers that were replaced after they
	// had already fired but before their callback took the lock.
	timerGen uint64

	// Zero time means "unset" (reset by Cancel, set on first Call).
	lastCall   time.Time
	lastInvoke time.Time

	args    []any
	hasArgs bool
	result  any
}

// New wraps fn with the given options. A configuration with both Leading and
// Trailing disabled would never invoke fn and is rejected rather than
// silently accepted.
func New(fn Func, opts Options) (*Debouncer, error) {
	if fn == nil {
		return nil, fmt.Errorf("debounce: nil function")
	}
	if opts.Wait <= 0 {
		return nil, fmt.Errorf("debounce: wait must be positive, got %v", opts.Wait)
	}
	if !opts.Leading && !opts.Trailing {
		return nil, fmt.Errorf("debounce: leading and trailing both disabled; function would never run")
	}
	if opts.MaxWait > 0 && opts.MaxWait < opts.Wait {
		opts.MaxWait = opts.Wait
	}
	return &Debouncer{fn: fn, opts: opts}, nil
}

// Call records the call time and arguments, firing the leading edge or
// (re)arming the trailing timer as needed. The deferred invocation's result
// is only retrievable via Flush.
func (d *Debouncer) Call(args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	invoking := d.shouldInvoke(now)

	d.args = args
	d.hasArgs = true
	d.lastCall = now

	if invoking {
		if d.timer == nil {
			d.leadingEdge(now)
			return
		}
		if d.opts.MaxWait > 0 {
			// Mid-burst and past the max-wait deadline: restart the wait
			// window and invoke with the freshest arguments.
			d.timer.Stop()
			d.armTimer(d.opts.Wait)
			d.invoke(now)
			return
		}
	}
	if d.timer == nil {
		d.armTimer(d.opts.Wait)
	}
}

// Cancel discards any scheduled invocation and resets timestamps to unset.
// The wrapped function will not be called again for the current burst.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.lastCall = time.Time{}
	d.lastInvoke = time.Time{}
	d.args = nil
	d.hasArgs = false
}

// Flush executes a pending invocation immediately, if any, and returns the
// wrapped function's most recent result.
func (d *Debouncer) Flush() any {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.trailingEdge(time.Now())
	}
	return d.result
}

// Pending reports whether a deferred invocation is currently scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Result returns the wrapped function's most recent result without forcing
// a pending invocation.
func (d *Debouncer) Result() any {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.result
}

// shouldInvoke decides eligibility at time t: first call ever, quiet gap of
// at least Wait since the previous call, backwards clock movement, or the
// max-wait deadline since the last actual invocation has passed.
func (d *Debouncer) shouldInvoke(t time.Time) bool {
	if d.lastCall.IsZero() {
		return true
	}
	sinceCall := t.Sub(d.lastCall)
	if sinceCall >= d.opts.Wait || sinceCall < 0 {
		return true
	}
	return d.opts.MaxWait > 0 && t.Sub(d.lastInvoke) >= d.opts.MaxWait
}

// remainingWait computes how much longer the trailing timer should sleep
// when it wakes before the burst has settled.
func (d *Debouncer) remainingWait(t time.Time) time.Duration {
	remaining := d.opts.Wait - t.Sub(d.lastCall)
	if d.opts.MaxWait > 0 {
		if untilDeadline := d.opts.MaxWait - t.Sub(d.lastInvoke); untilDeadline < remaining {
			remaining = untilDeadline
		}
	}
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

func (d *Debouncer) leadingEdge(t time.Time) {
	d.lastInvoke = t
	d.armTimer(d.opts.Wait)
	if d.opts.Leading {
		d.invoke(t)
	}
}

// armTimer schedules a wakeup after dur, bumping the generation so a
// previously fired timer whose callback has not yet run cannot replace it.
// Caller must hold d.mu.
func (d *Debouncer) armTimer(dur time.Duration) {
	d.timerGen++
	gen := d.timerGen
	d.timer = time.AfterFunc(dur, func() { d.timerExpired(gen) })
}

// timerExpired runs on the timer goroutine when the wait window elapses.
// If calls kept arriving it reschedules for the remaining window instead of
// firing.
func (d *Debouncer) timerExpired(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer == nil || gen != d.timerGen {
		// Cancelled, flushed, or replaced between firing and acquiring
		// the lock.
		return
	}
	now := time.Now()
	if d.shouldInvoke(now) {
		d.trailingEdge(now)
		return
	}
	d.armTimer(d.remainingWait(now))
}

// trailingEdge fires the trailing invocation when enabled and arguments are
// pending; either way the burst is over and the timer is cleared.
func (d *Debouncer) trailingEdge(t time.Time) {
	d.timer.Stop()
	d.timer = nil
	if d.opts.Trailing && d.hasArgs {
		d.invoke(t)
		return
	}
	d.args = nil
	d.hasArgs = false
}

// invoke runs the wrapped function with the captured arguments. Panics from
// fn propagate to whichever goroutine triggered the invocation, the same as
// a direct call.
func (d *Debouncer) invoke(t time.Time) {
	args := d.args
	d.args = nil
	d.hasArgs = false
	d.lastInvoke = t
	d.result = d.fn(args...)
}
