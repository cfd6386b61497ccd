package hal

import (
	"errors"
	"fmt"
	"io"
)

// Hardware errors.
var (
	ErrNotAvailable = errors.New("hardware not available")
	ErrClosed       = errors.New("hardware closed")
)

// Input is a digital input line.
type Input interface {
	// Read returns the current electrical level.
	Read() (bool, error)
}

// Output is a digital output line.
type Output interface {
	// Set drives the line high (true) or low (false).
	Set(high bool) error
}

// VoltageSensor samples the supply rail.
type VoltageSensor interface {
	// Voltage returns the supply voltage in volts.
	Voltage() (float64, error)
}

// Radio is the Wi-Fi interface. Every method must return promptly; the
// association itself completes in the background and is observed by
// polling Associated.
type Radio interface {
	// Join starts associating with the named network.
	Join(name, secret string) error

	// Associated reports whether the radio has an established link.
	Associated() bool

	// Disconnect drops any association or pending join.
	Disconnect() error

	// StartAccessPoint brings up a local open access point.
	StartAccessPoint(name string) error

	// HardwareAddr returns the MAC address in colon notation.
	HardwareAddr() string
}

// Board groups the hardware of one device.
type Board struct {
	Hold     Output
	LEDGreen Output
	LEDRed   Output
	LEDBlue  Output

	Main  Input
	Reset Input

	Supply VoltageSensor
	Radio  Radio

	closers []io.Closer
}

// AddCloser registers a resource released by Close.
func (b *Board) AddCloser(c io.Closer) {
	b.closers = append(b.closers, c)
}

// Outputs returns every output other than the self-hold line. These are the
// lines driven to their idle level before power is released.
func (b *Board) Outputs() []Output {
	var outs []Output
	for _, o := range []Output{b.LEDGreen, b.LEDRed, b.LEDBlue} {
		if o != nil {
			outs = append(outs, o)
		}
	}
	return outs
}

// Validate checks that every line the control loop needs is present.
func (b *Board) Validate() error {
	switch {
	case b.Hold == nil:
		return fmt.Errorf("%w: self-hold output", ErrNotAvailable)
	case b.Main == nil:
		return fmt.Errorf("%w: trigger input", ErrNotAvailable)
	case b.Reset == nil:
		return fmt.Errorf("%w: reset input", ErrNotAvailable)
	case b.Radio == nil:
		return fmt.Errorf("%w: radio", ErrNotAvailable)
	case b.Supply == nil:
		return fmt.Errorf("%w: supply sensor", ErrNotAvailable)
	}
	return nil
}

// Close releases all registered resources in reverse order.
func (b *Board) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
