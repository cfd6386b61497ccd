//go:build linux

// Package gpio drives the board's lines through the Linux GPIO character
// device.
package gpio

import (
	"errors"
	"fmt"
	"sync"

	gpiod "github.com/warthog618/go-gpiocdev"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/config"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/hal"
)

// Pull selects an input bias.
type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Chip owns the lines requested from one GPIO chip.
type Chip struct {
	mu    sync.Mutex
	chip  *gpiod.Chip
	lines []*gpiod.Line
}

// Open opens a chip by name, e.g. "gpiochip0".
func Open(name string) (*Chip, error) {
	c, err := gpiod.NewChip(name)
	if err != nil {
		return nil, fmt.Errorf("open chip %s: %w", name, err)
	}
	return &Chip{chip: c}, nil
}

// Output requests offset as an output driven to initial.
func (c *Chip) Output(offset int, initial bool) (*OutputLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.chip == nil {
		return nil, hal.ErrClosed
	}
	line, err := c.chip.RequestLine(offset, gpiod.AsOutput(value(initial)))
	if err != nil {
		return nil, fmt.Errorf("request output line %d: %w", offset, err)
	}
	c.lines = append(c.lines, line)
	return &OutputLine{line: line}, nil
}

// Input requests offset as an input with the given bias.
func (c *Chip) Input(offset int, pull Pull) (*InputLine, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.chip == nil {
		return nil, hal.ErrClosed
	}
	opts := []gpiod.LineReqOption{gpiod.AsInput}
	switch pull {
	case PullUp:
		opts = append(opts, gpiod.WithPullUp)
	case PullDown:
		opts = append(opts, gpiod.WithPullDown)
	}
	line, err := c.chip.RequestLine(offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("request input line %d: %w", offset, err)
	}
	c.lines = append(c.lines, line)
	return &InputLine{line: line}, nil
}

// Close releases every line and the chip.
func (c *Chip) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, line := range c.lines {
		if err := line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close line: %w", err))
		}
	}
	c.lines = nil

	if c.chip != nil {
		if err := c.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
		c.chip = nil
	}
	return errors.Join(errs...)
}

// OutputLine is a requested output.
type OutputLine struct {
	line *gpiod.Line
}

// Set drives the line.
func (o *OutputLine) Set(high bool) error {
	return o.line.SetValue(value(high))
}

// InputLine is a requested input.
type InputLine struct {
	line *gpiod.Line
}

// Read samples the line.
func (i *InputLine) Read() (bool, error) {
	v, err := i.line.Value()
	if err != nil {
		return false, err
	}
	return level(v), nil
}

// OpenBoard requests every line in lines from its chip and assembles a
// board around radio and supply. The self-hold line is asserted as part of
// the request so power is latched as early as possible.
func OpenBoard(lines config.GPIO, radio hal.Radio, supply hal.VoltageSensor) (*hal.Board, error) {
	chip, err := Open(lines.Chip)
	if err != nil {
		return nil, err
	}

	b := &hal.Board{Radio: radio, Supply: supply}
	b.AddCloser(chip)

	fail := func(err error) (*hal.Board, error) {
		chip.Close()
		return nil, err
	}

	if b.Hold, err = outputOrNil(chip.Output(lines.Hold, true)); err != nil {
		return fail(err)
	}
	for _, led := range []struct {
		offset int
		dst    *hal.Output
	}{
		{lines.LEDGreen, &b.LEDGreen},
		{lines.LEDRed, &b.LEDRed},
		{lines.LEDBlue, &b.LEDBlue},
	} {
		if *led.dst, err = outputOrNil(chip.Output(led.offset, false)); err != nil {
			return fail(err)
		}
	}
	// The trigger pulls the line high; reset is active low.
	if b.Main, err = inputOrNil(chip.Input(lines.Main, PullDown)); err != nil {
		return fail(err)
	}
	if b.Reset, err = inputOrNil(chip.Input(lines.Reset, PullUp)); err != nil {
		return fail(err)
	}

	if err := b.Validate(); err != nil {
		return fail(err)
	}
	return b, nil
}

// outputOrNil keeps a nil *OutputLine from becoming a non-nil interface.
func outputOrNil(o *OutputLine, err error) (hal.Output, error) {
	if err != nil {
		return nil, err
	}
	return o, nil
}

func inputOrNil(i *InputLine, err error) (hal.Input, error) {
	if err != nil {
		return nil, err
	}
	return i, nil
}

func value(high bool) int {
	if high {
		return 1
	}
	return 0
}

func level(v int) bool {
	return v != 0
}

var (
	_ hal.Output = (*OutputLine)(nil)
	_ hal.Input  = (*InputLine)(nil)
)
