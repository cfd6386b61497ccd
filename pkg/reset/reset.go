// Package reset implements the hold-to-confirm factory reset.
//
// Run is entered from the control loop on a debounced edge of the reset
// input and blocks for as long as the input stays active. Holding past
// Config.Hold erases the stored credentials and powers the device down.
// Releasing earlier restores the indicator and returns control to the loop
// with every other piece of state untouched.
package reset

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/button"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/clock"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/diag"
)

// Defaults.
const (
	DefaultHold  = 5 * time.Second
	DefaultBlink = 100 * time.Millisecond
	DefaultPoll  = 10 * time.Millisecond
)

// Outcome is the result of a hold sequence.
type Outcome uint8

const (
	// OutcomeAborted means the input was released before the threshold.
	OutcomeAborted Outcome = iota

	// OutcomeErased means credentials were erased and power released.
	OutcomeErased
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeAborted:
		return "ABORTED"
	case OutcomeErased:
		return "ERASED"
	default:
		return "UNKNOWN"
	}
}

// Inputs reads the reset input level.
type Inputs interface {
	Is(input button.Input, level bool) bool
}

// Indicator gives feedback while the input is held.
type Indicator interface {
	Blink(phase bool) error
	Restore() error
}

// Eraser clears the stored credentials.
type Eraser interface {
	Erase() error
}

// Sleeper releases power.
type Sleeper interface {
	Sleep(reason string)
}

// Config configures a Handler.
type Config struct {
	// Hold is how long the input must stay active.
	Hold time.Duration

	// Blink is the indicator toggle period.
	Blink time.Duration

	// Poll is the sampling period of the hold loop.
	Poll time.Duration

	// ActiveLevel is the level of the input while pressed. The reset
	// button pulls its line low.
	ActiveLevel bool

	// Logger receives progress. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Hold:        DefaultHold,
		Blink:       DefaultBlink,
		Poll:        DefaultPoll,
		ActiveLevel: false,
	}
}

// Handler runs the factory-reset hold sequence.
type Handler struct {
	inputs    Inputs
	indicator Indicator
	store     Eraser
	power     Sleeper
	clk       clock.Clock
	cfg       Config
}

// New creates a handler.
func New(inputs Inputs, indicator Indicator, store Eraser, power Sleeper, clk clock.Clock, cfg Config) *Handler {
	def := DefaultConfig()
	if cfg.Hold <= 0 {
		cfg.Hold = def.Hold
	}
	if cfg.Blink <= 0 {
		cfg.Blink = def.Blink
	}
	if cfg.Poll <= 0 {
		cfg.Poll = def.Poll
	}
	return &Handler{
		inputs:    inputs,
		indicator: indicator,
		store:     store,
		power:     power,
		clk:       clk,
		cfg:       cfg,
	}
}

// Active reports whether the reset input is currently pressed.
func (h *Handler) Active() bool {
	return h.inputs.Is(button.InputReset, h.cfg.ActiveLevel)
}

// Run blocks while the reset input is active. The returned error is only
// set when erasing failed; power is released regardless.
func (h *Handler) Run() (Outcome, error) {
	start := h.clk.Now()
	lastBlink := start
	phase := false

	h.info("factory reset button pressed")

	for h.Active() {
		if clock.Since(h.clk, start) >= h.cfg.Hold {
			return h.erase()
		}
		if clock.Since(h.clk, lastBlink) >= h.cfg.Blink {
			lastBlink = h.clk.Now()
			phase = !phase
			_ = h.indicator.Blink(phase)
		}
		h.clk.Sleep(h.cfg.Poll)
	}

	held := clock.Since(h.clk, start)
	_ = h.indicator.Restore()
	h.info("factory reset aborted", "held", held)
	return OutcomeAborted, nil
}

func (h *Handler) erase() (Outcome, error) {
	diag.Important(h.cfg.Logger, "performing factory reset")

	var err error
	if eraseErr := h.store.Erase(); eraseErr != nil {
		err = fmt.Errorf("erase credentials: %w", eraseErr)
		diag.Error(h.cfg.Logger, "factory reset failed", "error", err)
	}
	h.power.Sleep("factory reset")
	return OutcomeErased, err
}

func (h *Handler) info(msg string, args ...any) {
	if h.cfg.Logger != nil {
		h.cfg.Logger.Info(msg, args...)
	}
}
