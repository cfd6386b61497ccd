// Package button implements level-and-interval debouncing for the device
// inputs.
//
// CheckEdge fires when an input reads the desired level and the debounce
// window has passed since it last fired. Rapid toggling is suppressed by
// refusing to re-fire inside the window, not by waiting for a stable level,
// so a press is reported on the first tick that sees it.
package button

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/clock"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/hal"
)

// DefaultDebounce is the default minimum interval between accepted edges.
const DefaultDebounce = time.Second

// ErrUnknownInput is returned when reading an input that was never
// registered.
var ErrUnknownInput = errors.New("button: unknown input")

// Input identifies a logical input.
type Input uint8

const (
	// InputMain is the trigger button.
	InputMain Input = iota

	// InputReset is the factory-reset button.
	InputReset

	// InputLeft and InputRight are reserved for the side buttons of the
	// three-button enclosure.
	InputLeft
	InputRight
)

// String returns the input name.
func (i Input) String() string {
	switch i {
	case InputMain:
		return "MAIN"
	case InputReset:
		return "RESET"
	case InputLeft:
		return "LEFT"
	case InputRight:
		return "RIGHT"
	default:
		return fmt.Sprintf("INPUT(%d)", uint8(i))
	}
}

// Monitor tracks the last accepted edge for each input.
type Monitor struct {
	mu    sync.Mutex
	clk   clock.Clock
	boot  time.Duration
	lines map[Input]hal.Input
	last  map[Input]time.Duration
}

// NewMonitor returns a monitor whose inputs count as last fired at boot.
func NewMonitor(clk clock.Clock, boot time.Duration) *Monitor {
	return &Monitor{
		clk:   clk,
		boot:  boot,
		lines: make(map[Input]hal.Input),
		last:  make(map[Input]time.Duration),
	}
}

// Register attaches a hardware line to a logical input.
func (m *Monitor) Register(input Input, line hal.Input) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines[input] = line
}

// Read returns the raw level of input.
func (m *Monitor) Read(input Input) (bool, error) {
	m.mu.Lock()
	line, ok := m.lines[input]
	m.mu.Unlock()
	if !ok || line == nil {
		return false, fmt.Errorf("%w: %s", ErrUnknownInput, input)
	}
	return line.Read()
}

// Is reports whether input currently reads level. Read errors and unknown
// inputs report false.
func (m *Monitor) Is(input Input, level bool) bool {
	v, err := m.Read(input)
	return err == nil && v == level
}

// CheckEdge reports whether input reads level and at least window has
// passed since the previous true result for that input. A true result
// stamps the input with the current time.
func (m *Monitor) CheckEdge(input Input, level bool, window time.Duration) bool {
	if !m.Is(input, level) {
		return false
	}

	now := m.clk.Now()

	m.mu.Lock()
	defer m.mu.Unlock()

	last, ok := m.last[input]
	if !ok {
		last = m.boot
	}
	if now-last < window {
		return false
	}
	m.last[input] = now
	return true
}

// LastEdge returns when input last fired, or false if it never did.
func (m *Monitor) LastEdge(input Input) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.last[input]
	return t, ok
}
