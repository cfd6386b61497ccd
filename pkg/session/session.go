package session

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/clock"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/credentials"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/hal"
)

// DefaultConnectTimeout bounds a single association attempt.
const DefaultConnectTimeout = 60 * time.Second

// Session errors.
var (
	ErrNoCredentials  = errors.New("session: no credentials")
	ErrConnectTimeout = errors.New("session: connect timeout")
)

// State is the session state.
type State uint8

const (
	// StateIdle indicates no association and no attempt in progress.
	StateIdle State = iota

	// StateConnecting indicates a join was issued and is pending.
	StateConnecting

	// StateConnected indicates the radio is associated.
	StateConnected

	// StateFailed indicates the attempt timed out. Latched.
	StateFailed
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Config configures a Manager.
type Config struct {
	// ConnectTimeout bounds the CONNECTING state.
	ConnectTimeout time.Duration

	// Logger receives state changes. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{ConnectTimeout: DefaultConnectTimeout}
}

// Manager owns the session state of one wake cycle.
type Manager struct {
	mu sync.Mutex

	radio hal.Radio
	creds credentials.Credentials
	clk   clock.Clock
	cfg   Config

	state        State
	connectStart time.Duration
	err          error
	joins        int

	onTransition []func(old, new State, reason string)
	onConnected  []func()
}

// New creates a manager in StateIdle.
func New(radio hal.Radio, creds credentials.Credentials, clk clock.Clock, cfg Config) *Manager {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	m := &Manager{
		radio: radio,
		creds: creds,
		clk:   clk,
		cfg:   cfg,
	}
	if creds.Empty() {
		m.err = ErrNoCredentials
	}
	return m
}

// OnTransition registers a callback for state changes.
func (m *Manager) OnTransition(fn func(old, new State, reason string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTransition = append(m.onTransition, fn)
}

// OnConnected registers a callback run on every entry to StateConnected.
func (m *Manager) OnConnected(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onConnected = append(m.onConnected, fn)
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Connected reports whether the session is usable for delivery.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnected
}

// InFlight reports whether a join is in progress.
func (m *Manager) InFlight() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateConnecting
}

// Failed reports whether the failure latch is set.
func (m *Manager) Failed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == StateFailed
}

// Err returns ErrNoCredentials or ErrConnectTimeout when applicable.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Joins returns how many join requests were issued.
func (m *Manager) Joins() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.joins
}

// Tick advances the state machine by one step and returns the new state.
func (m *Manager) Tick() State {
	m.mu.Lock()

	var (
		old    = m.state
		reason string
		hooks  []func()
	)

	switch m.state {
	case StateIdle:
		if m.creds.Empty() {
			break
		}
		m.joins++
		m.connectStart = m.clk.Now()
		m.state = StateConnecting
		reason = "join " + m.creds.NetworkName
		if err := m.radio.Join(m.creds.NetworkName, m.creds.NetworkSecret); err != nil {
			// The timeout bounds a join that never got going.
			reason = "join error: " + err.Error()
		}

	case StateConnecting:
		if m.radio.Associated() {
			m.state = StateConnected
			m.connectStart = 0
			reason = "associated"
			hooks = append(hooks, m.onConnected...)
			break
		}
		if clock.Since(m.clk, m.connectStart) >= m.cfg.ConnectTimeout {
			m.state = StateFailed
			m.err = ErrConnectTimeout
			reason = ErrConnectTimeout.Error()
			_ = m.radio.Disconnect()
		}
	}

	state := m.state
	m.mu.Unlock()

	if state != old {
		m.notify(old, state, reason)
	}
	for _, fn := range hooks {
		fn()
	}
	return state
}

// Reset drops the link and returns a non-failed session to StateIdle, so
// the next Tick starts a fresh join. A failed session stays failed.
func (m *Manager) Reset() {
	m.mu.Lock()
	if m.state == StateFailed {
		m.mu.Unlock()
		m.debugLog("session reset ignored, failure latched")
		return
	}
	old := m.state
	m.state = StateIdle
	m.connectStart = 0
	m.mu.Unlock()

	if err := m.radio.Disconnect(); err != nil && m.cfg.Logger != nil {
		m.cfg.Logger.Warn("session: disconnect failed", "error", err)
	}
	if old != StateIdle {
		m.notify(old, StateIdle, "reset")
	}
}

func (m *Manager) notify(old, new State, reason string) {
	m.debugLog("session state", "from", old, "to", new, "reason", reason)

	m.mu.Lock()
	cbs := append([]func(State, State, string){}, m.onTransition...)
	m.mu.Unlock()

	for _, fn := range cbs {
		fn(old, new, reason)
	}
}

func (m *Manager) debugLog(msg string, args ...any) {
	if m.cfg.Logger != nil {
		m.cfg.Logger.Debug(msg, args...)
	}
}
