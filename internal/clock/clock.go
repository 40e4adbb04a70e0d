package clock

import (
	"sync"
	"time"
)

// MinFlush is the smallest accumulated frame delta that refreshes the
// displayed elapsed value.
const MinFlush = 50 * time.Millisecond

// Counter is the wall-clock based elapsed-time counter of the current,
// uncommitted session.
type Counter struct {
	Running     bool
	Elapsed     time.Duration
	LastUpdated *time.Time // last reconciliation point, nil when unset
}

// Reconcile folds the wall-clock gap since LastUpdated into Elapsed.
//
// It only acts while the counter is running or when force is set. An unset
// LastUpdated is stamped with now and no time is added. The added time is
// max(0, now-LastUpdated), so calling Reconcile twice with the same now adds
// the gap once, and a clock that went backwards never decreases Elapsed.
func Reconcile(c Counter, now time.Time, force bool) Counter {
	if !c.Running && !force {
		return c
	}
	if c.LastUpdated == nil {
		c.LastUpdated = stamp(now)
		return c
	}
	if gap := now.Sub(*c.LastUpdated); gap > 0 {
		c.Elapsed += gap
		c.LastUpdated = stamp(now)
	}
	return c
}

// Projected returns Elapsed plus the not yet reconciled gap of a running
// counter. It does not modify c.
func Projected(c Counter, now time.Time) time.Duration {
	if !c.Running || c.LastUpdated == nil {
		return c.Elapsed
	}
	if gap := now.Sub(*c.LastUpdated); gap > 0 {
		return c.Elapsed + gap
	}
	return c.Elapsed
}

func stamp(t time.Time) *time.Time {
	return &t
}

// Frame smooths the displayed elapsed value between reconciliation ticks.
// Frame deltas are accumulated locally and the shown value is refreshed from
// the wall clock once they add up to MinFlush.
type Frame struct {
	last    time.Time
	pending time.Duration
	shown   time.Duration
}

// Advance records a frame at now and returns the elapsed value to display.
func (f *Frame) Advance(c Counter, now time.Time) time.Duration {
	if !c.Running {
		f.last = now
		f.pending = 0
		f.shown = c.Elapsed
		return f.shown
	}
	if f.last.IsZero() {
		f.last = now
		f.shown = Projected(c, now)
		return f.shown
	}
	if d := now.Sub(f.last); d > 0 {
		f.pending += d
	}
	f.last = now
	if f.pending >= MinFlush {
		f.pending = 0
		f.shown = Projected(c, now)
	}
	// Never show less than the authoritative value after a reconcile.
	if f.shown < c.Elapsed {
		f.shown = c.Elapsed
	}
	return f.shown
}

// Clock is a source of wall-clock time.
type Clock interface {
	Now() time.Time
}

// System reads the host clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Manual is a settable clock for tests and replays.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(t time.Time) *Manual {
	return &Manual{now: t}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward (or backward for negative d).
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

func (m *Manual) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}
