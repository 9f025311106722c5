package game

import (
	"context"
	"errors"
	"time"
)

// ErrStopped is returned by Driver.Do once the driver has exited.
var ErrStopped = errors.New("driver stopped")

type op struct {
	fn   func(Match)
	done chan struct{}
}

// Driver owns a Match on a single goroutine. Commands, reads and timer ticks
// all run there, one at a time, so the match needs no locking of its own.
type Driver struct {
	match   Match
	ops     chan op
	stopped chan struct{}
	updates chan struct{}
}

// NewDriver wraps m. Call Run to start serving.
func NewDriver(m Match) *Driver {
	return &Driver{
		match:   m,
		ops:     make(chan op),
		stopped: make(chan struct{}),
		updates: make(chan struct{}, 1),
	}
}

// Updates signals, coalesced, that a timer tick changed the match.
// It is closed when Run returns.
func (d *Driver) Updates() <-chan struct{} {
	return d.updates
}

// Done is closed when Run returns.
func (d *Driver) Done() <-chan struct{} {
	return d.stopped
}

// Do runs fn on the driver goroutine and waits for it to finish.
func (d *Driver) Do(fn func(Match)) error {
	o := op{fn: fn, done: make(chan struct{})}
	select {
	case d.ops <- o:
	case <-d.stopped:
		return ErrStopped
	}
	<-o.done
	return nil
}

// Run serves Do calls and, for Realtime matches, ticks until ctx is done.
//
// The timer is armed with the match's Interval. It is re-armed after every
// tick, and reset whenever an operation changes the interval; the new value
// applies from that moment on.
func (d *Driver) Run(ctx context.Context) {
	defer close(d.updates)
	defer close(d.stopped)

	rt, _ := d.match.(Realtime)
	var (
		timer *time.Timer
		tick  <-chan time.Time
		armed time.Duration
	)
	arm := func(force bool) {
		if rt == nil {
			return
		}
		next := rt.Interval()
		if !force && next == armed {
			return
		}
		if timer != nil {
			timer.Stop()
		}
		armed = next
		if next <= 0 {
			tick = nil
			return
		}
		timer = time.NewTimer(next)
		tick = timer.C
	}
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	arm(true)
	for {
		select {
		case <-ctx.Done():
			return
		case o := <-d.ops:
			o.fn(d.match)
			close(o.done)
			arm(false)
		case <-tick:
			rt.Tick()
			arm(true)
			select {
			case d.updates <- struct{}{}:
			default:
			}
		}
	}
}
