// Package sim implements in-memory hardware for tests and the interactive
// simulator. All timing follows a clock.Clock so scripted behaviour (a
// button held for 6 s, a radio that associates after 3 s) runs in virtual
// time under test.
package sim

import (
	"errors"
	"sync"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/clock"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/hal"
)

// ErrInjected is returned by lines configured to fail.
var ErrInjected = errors.New("sim: injected failure")

// Pin is a simulated digital line usable as input and output.
type Pin struct {
	mu      sync.Mutex
	name    string
	level   bool
	fail    bool
	history []bool
}

// NewPin returns a pin at the given initial level.
func NewPin(name string, level bool) *Pin {
	return &Pin{name: name, level: level}
}

// Name returns the pin name.
func (p *Pin) Name() string { return p.name }

// Read returns the current level.
func (p *Pin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return false, ErrInjected
	}
	return p.level, nil
}

// Set drives the level and records it.
func (p *Pin) Set(high bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return ErrInjected
	}
	p.level = high
	p.history = append(p.history, high)
	return nil
}

// Level returns the current level without error injection.
func (p *Pin) Level() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// History returns every level written through Set.
func (p *Pin) History() []bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]bool(nil), p.history...)
}

// Writes returns how many times Set was called.
func (p *Pin) Writes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.history)
}

// Fail makes subsequent reads and writes return ErrInjected.
func (p *Pin) Fail(fail bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fail = fail
}

// force sets the level without recording a write. Used for inputs driven by
// the outside world.
func (p *Pin) force(high bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = high
}

// Drive sets an input level as the outside world would.
func (p *Pin) Drive(high bool) {
	p.force(high)
}

// Supply is a simulated supply-rail sensor.
type Supply struct {
	mu    sync.Mutex
	volts float64
	err   error
}

// NewSupply returns a sensor reporting volts.
func NewSupply(volts float64) *Supply {
	return &Supply{volts: volts}
}

// Voltage returns the configured voltage.
func (s *Supply) Voltage() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volts, s.err
}

// SetVoltage changes the reported voltage.
func (s *Supply) SetVoltage(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.volts = v
}

// SetError makes Voltage fail with err.
func (s *Supply) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Hardware bundles the simulated lines of one device.
type Hardware struct {
	Clock clock.Clock

	Hold     *Pin
	LEDGreen *Pin
	LEDRed   *Pin
	LEDBlue  *Pin
	Main     *Pin
	Reset    *Pin

	Supply *Supply
	Radio  *Radio
}

// NewHardware returns a device at rest: trigger released (low), reset
// released (high through its pull-up), 3.9 V supply, radio that associates
// one second after a join.
func NewHardware(clk clock.Clock) *Hardware {
	return &Hardware{
		Clock:    clk,
		Hold:     NewPin("hold", false),
		LEDGreen: NewPin("led-green", false),
		LEDRed:   NewPin("led-red", false),
		LEDBlue:  NewPin("led-blue", false),
		Main:     NewPin("main", false),
		Reset:    NewPin("reset", true),
		Supply:   NewSupply(3.9),
		Radio:    NewRadio(clk, time.Second),
	}
}

// Board returns the hal view of the simulated hardware.
func (h *Hardware) Board() *hal.Board {
	return &hal.Board{
		Hold:     h.Hold,
		LEDGreen: h.LEDGreen,
		LEDRed:   h.LEDRed,
		LEDBlue:  h.LEDBlue,
		Main:     h.Main,
		Reset:    h.Reset,
		Supply:   h.Supply,
		Radio:    h.Radio,
	}
}

// Powered reports whether the self-hold line is asserted.
func (h *Hardware) Powered() bool {
	return h.Hold.Level()
}

var (
	_ hal.Input         = (*Pin)(nil)
	_ hal.Output        = (*Pin)(nil)
	_ hal.VoltageSensor = (*Supply)(nil)
)
