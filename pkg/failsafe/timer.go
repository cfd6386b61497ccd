package failsafe

import (
	"errors"
	"sync"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/clock"
)

// Timer defaults.
const (
	// DefaultCeiling is the hard upper bound on a wake cycle.
	DefaultCeiling = 10 * time.Minute

	// DefaultInactivity is how long an idle cycle stays awake.
	DefaultInactivity = 180 * time.Second
)

// Timer errors.
var (
	ErrInvalidDuration = errors.New("invalid failsafe duration")
	ErrTimerNotRunning = errors.New("failsafe timer not running")
)

// State represents the timer state.
type State uint8

const (
	// StateStopped indicates the timer is not counting.
	StateStopped State = iota

	// StateRunning indicates the timer is counting towards expiry.
	StateRunning

	// StateExpired indicates the timer ran out.
	StateExpired
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateStopped:
		return "STOPPED"
	case StateRunning:
		return "RUNNING"
	case StateExpired:
		return "EXPIRED"
	default:
		return "UNKNOWN"
	}
}

// Timer is a polled countdown on a clock.Clock.
type Timer struct {
	mu sync.RWMutex

	name     string
	clk      clock.Clock
	duration time.Duration

	state     State
	startedAt time.Duration

	// Callbacks
	onStateChange func(oldState, newState State)
	onExpire      func(name string, elapsed time.Duration)
}

// NewTimer creates a stopped timer.
func NewTimer(name string, clk clock.Clock, d time.Duration) (*Timer, error) {
	if d <= 0 {
		return nil, ErrInvalidDuration
	}
	return &Timer{
		name:     name,
		clk:      clk,
		duration: d,
		state:    StateStopped,
	}, nil
}

// Name returns the timer name.
func (t *Timer) Name() string {
	return t.name
}

// Duration returns the configured duration.
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// State returns the current state.
func (t *Timer) State() State {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

// Expired returns true once the timer has run out.
func (t *Timer) Expired() bool {
	return t.State() == StateExpired
}

// Start begins counting if the timer is stopped. A running timer keeps its
// original start.
func (t *Timer) Start() {
	t.mu.Lock()
	if t.state != StateStopped {
		t.mu.Unlock()
		return
	}
	t.startedAt = t.clk.Now()
	cb := t.transitionLocked(StateRunning)
	t.mu.Unlock()
	cb()
}

// Restart begins counting again from now.
func (t *Timer) Restart() {
	t.mu.Lock()
	if t.state == StateExpired {
		t.mu.Unlock()
		return
	}
	t.startedAt = t.clk.Now()
	cb := t.transitionLocked(StateRunning)
	t.mu.Unlock()
	cb()
}

// Stop halts the timer without expiring it.
func (t *Timer) Stop() {
	t.mu.Lock()
	if t.state != StateRunning {
		t.mu.Unlock()
		return
	}
	cb := t.transitionLocked(StateStopped)
	t.mu.Unlock()
	cb()
}

// Elapsed returns the time counted so far, or ErrTimerNotRunning.
func (t *Timer) Elapsed() (time.Duration, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.state != StateRunning {
		return 0, ErrTimerNotRunning
	}
	return t.clk.Now() - t.startedAt, nil
}

// RemainingTime returns the time left before expiry. Zero when not running.
func (t *Timer) RemainingTime() time.Duration {
	elapsed, err := t.Elapsed()
	if err != nil {
		return 0
	}
	if remaining := t.duration - elapsed; remaining > 0 {
		return remaining
	}
	return 0
}

// Poll checks for expiry and returns true when the timer has expired.
// The expiry callback runs exactly once, from the Poll that observes it.
func (t *Timer) Poll() bool {
	t.mu.Lock()
	switch t.state {
	case StateExpired:
		t.mu.Unlock()
		return true
	case StateStopped:
		t.mu.Unlock()
		return false
	}

	elapsed := t.clk.Now() - t.startedAt
	if elapsed < t.duration {
		t.mu.Unlock()
		return false
	}

	cb := t.transitionLocked(StateExpired)
	onExpire := t.onExpire
	t.mu.Unlock()

	cb()
	if onExpire != nil {
		onExpire(t.name, elapsed)
	}
	return true
}

// transitionLocked sets the state and returns the change notification to run
// after the lock is released.
func (t *Timer) transitionLocked(next State) func() {
	old := t.state
	t.state = next
	fn := t.onStateChange
	if fn == nil || old == next {
		return func() {}
	}
	return func() { fn(old, next) }
}

// OnStateChange sets a callback for state transitions.
func (t *Timer) OnStateChange(fn func(oldState, newState State)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStateChange = fn
}

// OnExpire sets a callback invoked when the timer expires.
func (t *Timer) OnExpire(fn func(name string, elapsed time.Duration)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onExpire = fn
}
