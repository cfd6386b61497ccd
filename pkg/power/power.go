package power

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/clock"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/diag"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/hal"
)

// DefaultLatency is how long the regulator takes to drop the rail after
// the hold line is released.
const DefaultLatency = 15 * time.Second

// Controller errors.
var (
	ErrNoHoldLine = errors.New("power: hold line not configured")
	ErrAsleep     = errors.New("power: already released")
)

// Config configures a Controller.
type Config struct {
	// Latency is the wait after releasing the hold line.
	Latency time.Duration

	// Logger receives power transitions. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the hardware defaults.
func DefaultConfig() Config {
	return Config{Latency: DefaultLatency}
}

// Controller drives the self-hold line.
type Controller struct {
	mu sync.Mutex

	hold hal.Output
	safe []hal.Output
	clk  clock.Clock
	cfg  Config

	held   bool
	asleep bool
	reason string

	onSleep []func(reason string)
}

// New creates a controller over the hold line. safe lists the outputs that
// are driven low before the hold line is released.
func New(hold hal.Output, safe []hal.Output, clk clock.Clock, cfg Config) *Controller {
	if cfg.Latency < 0 {
		cfg.Latency = 0
	}
	return &Controller{
		hold: hold,
		safe: safe,
		clk:  clk,
		cfg:  cfg,
	}
}

// Hold asserts the self-hold line.
func (c *Controller) Hold() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hold == nil {
		return ErrNoHoldLine
	}
	if c.asleep {
		return ErrAsleep
	}
	if err := c.hold.Set(true); err != nil {
		return fmt.Errorf("assert hold: %w", err)
	}
	c.held = true
	c.debugLog("power held")
	return nil
}

// Held reports whether Hold succeeded and Sleep has not run.
func (c *Controller) Held() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.held && !c.asleep
}

// OnSleep registers a callback run once, before the hold line drops.
func (c *Controller) OnSleep(fn func(reason string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onSleep = append(c.onSleep, fn)
}

// Sleep releases power. Only the first call has an effect; later calls
// return immediately.
func (c *Controller) Sleep(reason string) {
	c.mu.Lock()
	if c.asleep {
		first := c.reason
		c.mu.Unlock()
		c.debugLog("sleep already requested", "reason", reason, "first", first)
		return
	}
	c.asleep = true
	c.reason = reason
	hooks := append([]func(string){}, c.onSleep...)
	c.mu.Unlock()

	diag.Important(c.cfg.Logger, "going to sleep", "reason", reason)
	for _, fn := range hooks {
		fn(reason)
	}

	for _, out := range c.safe {
		if out == nil {
			continue
		}
		if err := out.Set(false); err != nil {
			c.warn("safe-idle output", err)
		}
	}
	if c.hold != nil {
		if err := c.hold.Set(false); err != nil {
			c.warn("release hold", err)
		}
	}

	c.clk.Sleep(c.cfg.Latency)
}

// Asleep reports whether Sleep has been called.
func (c *Controller) Asleep() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.asleep
}

// Reason returns the reason passed to the first Sleep call.
func (c *Controller) Reason() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reason
}

func (c *Controller) warn(what string, err error) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Warn("power: "+what+" failed", "error", err)
	}
}

func (c *Controller) debugLog(msg string, args ...any) {
	if c.cfg.Logger != nil {
		c.cfg.Logger.Debug(msg, args...)
	}
}
