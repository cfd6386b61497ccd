// Package clock provides the time source for the wake-cycle control loop.
//
// All timing in the device is expressed as offsets since boot, the same way
// the firmware this replaces used a millisecond uptime counter. Components
// never call time.Now directly; they take a Clock so tests can drive virtual
// time through blocking pauses without waiting.
package clock

import (
	"sync"
	"time"
)

// Clock is a monotonic uptime source.
type Clock interface {
	// Now returns the time elapsed since the clock was started.
	Now() time.Duration

	// Sleep blocks for d. It is only used at the documented blocking
	// points (power-down latency, quiet period, factory-reset hold).
	Sleep(d time.Duration)
}

// Since returns the time elapsed on c since the uptime offset t.
func Since(c Clock, t time.Duration) time.Duration {
	return c.Now() - t
}

// Real is a Clock backed by the monotonic wall clock.
type Real struct {
	start time.Time
}

// NewReal returns a Real clock whose zero is the moment of the call.
func NewReal() *Real {
	return &Real{start: time.Now()}
}

// Now returns the uptime.
func (r *Real) Now() time.Duration {
	return time.Since(r.start)
}

// Sleep pauses the calling goroutine.
func (r *Real) Sleep(d time.Duration) {
	if d > 0 {
		time.Sleep(d)
	}
}

// Manual is a virtual Clock. Sleep advances virtual time instead of
// blocking, which lets a single-threaded loop run its blocking pauses
// instantly under test.
type Manual struct {
	mu    sync.Mutex
	now   time.Duration
	slept time.Duration
	hooks []func(now time.Duration)
}

// NewManual returns a Manual clock at uptime zero.
func NewManual() *Manual {
	return &Manual{}
}

// Now returns the current virtual uptime.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Sleep advances virtual time by d.
func (m *Manual) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	m.mu.Lock()
	m.slept += d
	m.mu.Unlock()
	m.Advance(d)
}

// Advance moves virtual time forward by d and runs registered hooks.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now += d
	now := m.now
	hooks := append([]func(time.Duration){}, m.hooks...)
	m.mu.Unlock()

	for _, h := range hooks {
		h(now)
	}
}

// Set moves virtual time to t. Moving backwards is ignored.
func (m *Manual) Set(t time.Duration) {
	m.mu.Lock()
	d := t - m.now
	m.mu.Unlock()
	if d > 0 {
		m.Advance(d)
	}
}

// Slept returns the total virtual time spent inside Sleep.
func (m *Manual) Slept() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.slept
}

// OnAdvance registers fn to run after every time step. Simulated hardware
// uses it to script level changes at fixed uptimes.
func (m *Manual) OnAdvance(fn func(now time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, fn)
}

var (
	_ Clock = (*Real)(nil)
	_ Clock = (*Manual)(nil)
)
