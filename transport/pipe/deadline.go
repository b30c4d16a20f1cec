package pipe

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// deadline fires once the clock passes the time it was set to.
// The zero time disarms it.
type deadline struct {
	clock clock.Clock
	// wake is called without holding mu whenever the deadline fires.
	wake func()

	mu    sync.Mutex
	timer *clock.Timer
	fired chan struct{}
}

func newDeadline(clock clock.Clock, wake func()) *deadline {
	return &deadline{
		clock: clock,
		wake:  wake,
		fired: make(chan struct{}),
	}
}

func (d *deadline) set(t time.Time) {
	if d.reset(t) {
		d.notify()
	}
}

// reset arms the deadline for t and reports whether t has already passed.
func (d *deadline) reset(t time.Time) (firedNow bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if isClosed(d.fired) {
		d.fired = make(chan struct{})
	}

	if t.IsZero() {
		return false
	}

	fired := d.fired
	until := d.clock.Until(t)
	if until <= 0 {
		close(fired)
		return true
	}

	d.timer = d.clock.AfterFunc(until, func() {
		if d.expire(fired) {
			d.notify()
		}
	})
	return false
}

// expire closes fired unless a reset already replaced or closed it.
func (d *deadline) expire(fired chan struct{}) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if fired != d.fired || isClosed(fired) {
		return false
	}
	close(fired)
	return true
}

func (d *deadline) notify() {
	if d.wake != nil {
		d.wake()
	}
}

func (d *deadline) exceeded() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return isClosed(d.fired)
}

// wait returns a channel closed when the deadline fires.
func (d *deadline) wait() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fired
}

func isClosed(c <-chan struct{}) bool {
	select {
	case <-c:
		return true
	default:
		return false
	}
}
