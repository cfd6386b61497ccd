// Package indicator maps wake-cycle states onto the RGB status LED.
package indicator

import (
	"errors"
	"sync"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/hal"
)

// State is a user-visible indicator state.
type State uint8

const (
	// Off turns every colour off.
	Off State = iota

	// Pending shows a message waiting for delivery.
	Pending

	// PendingProvisioning is Pending while the access point is up.
	PendingProvisioning

	// ConnectFailed shows that the network could not be joined.
	ConnectFailed

	// DeliveryFailed shows that no receiver accepted the message in time.
	DeliveryFailed

	// Delivered shows a successful delivery.
	Delivered
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case Off:
		return "OFF"
	case Pending:
		return "PENDING"
	case PendingProvisioning:
		return "PENDING_PROVISIONING"
	case ConnectFailed:
		return "CONNECT_FAILED"
	case DeliveryFailed:
		return "DELIVERY_FAILED"
	case Delivered:
		return "DELIVERED"
	default:
		return "UNKNOWN"
	}
}

// Colour is one LED combination.
type Colour struct {
	Green, Red, Blue bool
}

// colours is the state to LED mapping.
var colours = map[State]Colour{
	Off:                 {},
	Pending:             {Green: true, Red: true},
	PendingProvisioning: {Green: true, Red: true, Blue: true},
	ConnectFailed:       {Red: true, Blue: true},
	DeliveryFailed:      {Red: true},
	Delivered:           {Green: true},
}

// ColourOf returns the LED combination of s.
func ColourOf(s State) Colour {
	return colours[s]
}

// LED drives the three colour lines.
type LED struct {
	mu    sync.Mutex
	green hal.Output
	red   hal.Output
	blue  hal.Output
	state State
	shown Colour
}

// New returns an LED over the given lines. Nil lines are skipped.
func New(green, red, blue hal.Output) *LED {
	return &LED{green: green, red: red, blue: blue}
}

// Set shows s and remembers it for Restore.
func (l *LED) Set(s State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = s
	return l.showLocked(ColourOf(s))
}

// State returns the last state passed to Set.
func (l *LED) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Shown returns the colour currently driven.
func (l *LED) Shown() Colour {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.shown
}

// Blink shows one phase of the alternating green/red pattern without
// changing the remembered state.
func (l *LED) Blink(phase bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.showLocked(Colour{Green: phase, Red: !phase})
}

// Restore shows the remembered state again.
func (l *LED) Restore() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.showLocked(ColourOf(l.state))
}

func (l *LED) showLocked(c Colour) error {
	l.shown = c
	var errs []error
	for _, line := range []struct {
		out hal.Output
		on  bool
	}{{l.green, c.Green}, {l.red, c.Red}, {l.blue, c.Blue}} {
		if line.out == nil {
			continue
		}
		if err := line.out.Set(line.on); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
