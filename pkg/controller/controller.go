package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/button"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/clock"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/credentials"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/delivery"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/diag"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/discovery"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/failsafe"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/hal"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/indicator"
	buttonlog "github.com/TheLastGimbus/ESP-PizzaButton/pkg/log"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/message"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/power"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/reset"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/session"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/update"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/version"
)

// Defaults.
const (
	DefaultTickInterval      = 10 * time.Millisecond
	DefaultQuietNormal       = 60 * time.Second
	DefaultQuietProvisioning = 10 * time.Second
	DefaultFailWait          = 10 * time.Second
	DefaultAccessPoint       = "PIZZA BUTTON WIFI"
)

// Sleep reasons.
const (
	ReasonDelivered    = "delivered"
	ReasonFailed       = "delivery failed"
	ReasonInactivity   = "inactivity"
	ReasonCeiling      = "safety ceiling"
	ReasonInterrupted  = "interrupted"
	ReasonFactoryReset = "factory reset"
	ReasonBootFailed   = "boot failed"
)

// Controller errors.
var (
	ErrNotBooted     = errors.New("controller: not booted")
	ErrAlreadyBooted = errors.New("controller: already booted")
	ErrMissingDep    = errors.New("controller: missing dependency")
)

// Store persists credentials. *credentials.Store implements it.
type Store interface {
	Load() (credentials.Credentials, error)
	Save(c credentials.Credentials) error
	Erase() error
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Board      *hal.Board
	Clock      clock.Clock
	Store      Store
	Discoverer delivery.Discoverer
	Poster     delivery.Poster

	// Update is begun once the network is up. Nil uses update.Nop.
	Update update.Listener

	// Trace records the wake cycle. Nil disables tracing.
	Trace buttonlog.Logger
}

// Config holds the loop timings and names.
type Config struct {
	TickInterval      time.Duration
	Debounce          time.Duration
	ConnectTimeout    time.Duration
	DeliveryInterval  time.Duration
	DeliveryDeadline  time.Duration
	Inactivity        time.Duration
	Ceiling           time.Duration
	QuietNormal       time.Duration
	QuietProvisioning time.Duration
	FailWait          time.Duration
	PowerLatency      time.Duration
	ResetHold         time.Duration

	// Service is the receiver service type.
	Service string

	// AccessPoint is the provisioning network name.
	AccessPoint string

	// Firmware is reported in every message. Defaults to version.Firmware.
	Firmware string

	// Logger receives operational logs. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the device defaults.
func DefaultConfig() Config {
	return Config{
		TickInterval:      DefaultTickInterval,
		Debounce:          button.DefaultDebounce,
		ConnectTimeout:    session.DefaultConnectTimeout,
		DeliveryInterval:  delivery.DefaultInterval,
		DeliveryDeadline:  delivery.DefaultDeadline,
		Inactivity:        failsafe.DefaultInactivity,
		Ceiling:           failsafe.DefaultCeiling,
		QuietNormal:       DefaultQuietNormal,
		QuietProvisioning: DefaultQuietProvisioning,
		FailWait:          DefaultFailWait,
		PowerLatency:      power.DefaultLatency,
		ResetHold:         reset.DefaultHold,
		Service:           discovery.ServiceTypeReceiver,
		AccessPoint:       DefaultAccessPoint,
		Firmware:          version.Firmware,
	}
}

// Controller runs one wake cycle.
type Controller struct {
	mu sync.Mutex

	deps Deps
	cfg  Config
	log  *slog.Logger

	power   *power.Controller
	led     *indicator.LED
	buttons *button.Monitor
	session *session.Manager
	engine  *delivery.Engine
	reset   *reset.Handler
	update  update.Listener
	trace   buttonlog.Logger

	ceiling    *failsafe.Timer
	inactivity *failsafe.Timer
	resetLevel bool

	booted   bool
	cycleID  string
	boot     time.Duration
	mode     Mode
	creds    credentials.Credentials
	deviceID string

	// snap is republished after Boot and every Tick, so accessors do not
	// wait out a tick that blocks in a quiet period or a reset hold.
	snap atomic.Pointer[snapshot]
}

type snapshot struct {
	cycleID   string
	mode      Mode
	session   session.State
	pending   bool
	remaining time.Duration
}

// New creates a controller. Zero fields of cfg take their defaults.
func New(deps Deps, cfg Config) (*Controller, error) {
	switch {
	case deps.Board == nil:
		return nil, fmt.Errorf("%w: board", ErrMissingDep)
	case deps.Clock == nil:
		return nil, fmt.Errorf("%w: clock", ErrMissingDep)
	case deps.Store == nil:
		return nil, fmt.Errorf("%w: credential store", ErrMissingDep)
	case deps.Discoverer == nil:
		return nil, fmt.Errorf("%w: discoverer", ErrMissingDep)
	case deps.Poster == nil:
		return nil, fmt.Errorf("%w: poster", ErrMissingDep)
	}
	if err := deps.Board.Validate(); err != nil {
		return nil, err
	}

	cfg = withDefaults(cfg)
	if _, err := version.Parse(cfg.Firmware); err != nil {
		return nil, fmt.Errorf("firmware: %w", err)
	}
	c := &Controller{
		deps:   deps,
		cfg:    cfg,
		log:    cfg.Logger,
		update: deps.Update,
		trace:  deps.Trace,
	}
	if c.log == nil {
		c.log = slog.New(discardHandler{})
	}
	if c.update == nil {
		c.update = update.Nop{}
	}
	if c.trace == nil {
		c.trace = buttonlog.NoopLogger{}
	}

	b := deps.Board
	c.power = power.New(b.Hold, b.Outputs(), deps.Clock, power.Config{
		Latency: cfg.PowerLatency,
		Logger:  cfg.Logger,
	})
	c.power.OnSleep(func(reason string) {
		c.traceState(buttonlog.ComponentPower, "HELD", "ASLEEP", reason)
	})
	c.led = indicator.New(b.LEDGreen, b.LEDRed, b.LEDBlue)
	return c, nil
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	fill := func(dst *time.Duration, v time.Duration) {
		if *dst <= 0 {
			*dst = v
		}
	}
	fill(&cfg.TickInterval, def.TickInterval)
	fill(&cfg.Debounce, def.Debounce)
	fill(&cfg.ConnectTimeout, def.ConnectTimeout)
	fill(&cfg.DeliveryInterval, def.DeliveryInterval)
	fill(&cfg.DeliveryDeadline, def.DeliveryDeadline)
	fill(&cfg.Inactivity, def.Inactivity)
	fill(&cfg.Ceiling, def.Ceiling)
	fill(&cfg.ResetHold, def.ResetHold)
	// Quiet periods, the failure wait and the power latency may be zero.
	if cfg.QuietNormal < 0 {
		cfg.QuietNormal = 0
	}
	if cfg.QuietProvisioning < 0 {
		cfg.QuietProvisioning = 0
	}
	if cfg.FailWait < 0 {
		cfg.FailWait = 0
	}
	if cfg.PowerLatency < 0 {
		cfg.PowerLatency = 0
	}
	if cfg.Service == "" {
		cfg.Service = def.Service
	}
	if cfg.AccessPoint == "" {
		cfg.AccessPoint = def.AccessPoint
	}
	if cfg.Firmware == "" {
		cfg.Firmware = def.Firmware
	}
	return cfg
}

// Boot starts the wake cycle. It must be called once before Tick.
func (c *Controller) Boot(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.booted {
		return ErrAlreadyBooted
	}
	c.booted = true
	defer c.publish()

	clk := c.deps.Clock
	c.boot = clk.Now()
	c.cycleID = uuid.NewString()
	c.deviceID = c.deps.Board.Radio.HardwareAddr()
	c.log = c.log.With("cycle", c.cycleID)

	if err := c.power.Hold(); err != nil {
		return c.bootFailed(buttonlog.ComponentPower, "hold power", err)
	}
	diag.Event(c.log, "pizza button power-on", "device", c.deviceID, "firmware", c.cfg.Firmware)

	creds, err := c.deps.Store.Load()
	if err != nil {
		// The store has already rewritten an empty record.
		diag.Error(c.log, "credentials unusable, starting unprovisioned", "error", err)
		c.traceError(buttonlog.ComponentCredentials, "load", err, true)
	}
	c.creds = creds
	c.mode = SelectMode(creds)
	c.traceState(buttonlog.ComponentController, "BOOT", c.mode.String(), "mode selected")

	c.buttons = button.NewMonitor(clk, c.boot)
	c.buttons.Register(button.InputMain, c.deps.Board.Main)
	c.buttons.Register(button.InputReset, c.deps.Board.Reset)

	c.engine = delivery.New(c.deps.Discoverer, c.deps.Poster, clk, delivery.Config{
		Service:  c.cfg.Service,
		Interval: c.cfg.DeliveryInterval,
		Deadline: c.cfg.DeliveryDeadline,
		Logger:   c.cfg.Logger,
	})

	resetCfg := reset.DefaultConfig()
	resetCfg.Hold = c.cfg.ResetHold
	resetCfg.Logger = c.cfg.Logger
	c.reset = reset.New(c.buttons, c.led, c.deps.Store, c.power, clk, resetCfg)
	c.resetLevel = resetCfg.ActiveLevel

	if c.ceiling, err = failsafe.NewTimer("ceiling", clk, c.cfg.Ceiling); err != nil {
		return c.bootFailed(buttonlog.ComponentController, "ceiling timer", err)
	}
	if c.inactivity, err = failsafe.NewTimer("inactivity", clk, c.cfg.Inactivity); err != nil {
		return c.bootFailed(buttonlog.ComponentController, "inactivity timer", err)
	}
	for _, t := range []*failsafe.Timer{c.ceiling, c.inactivity} {
		name := t.Name()
		t.OnStateChange(func(old, new failsafe.State) {
			diag.Data(c.log, "failsafe timer", "timer", name, "from", old.String(), "to", new.String())
		})
		t.OnExpire(c.onTimerExpired)
		t.Start()
	}

	switch c.mode {
	case ModeProvisioning:
		diag.Important(c.log, "we are in setup mode", "access_point", c.cfg.AccessPoint)
		if err := c.deps.Board.Radio.StartAccessPoint(c.cfg.AccessPoint); err != nil {
			diag.Error(c.log, "access point failed", "error", err)
			c.traceError(buttonlog.ComponentSession, "start access point", err, true)
		}
		c.beginUpdate()
		c.submit(message.Buttons{})

	default:
		diag.Important(c.log, "we are in normal mode", "network", c.creds.NetworkName)
		c.session = session.New(c.deps.Board.Radio, c.creds, clk, session.Config{
			ConnectTimeout: c.cfg.ConnectTimeout,
			Logger:         c.cfg.Logger,
		})
		c.session.OnTransition(c.onSessionTransition)
		c.session.OnConnected(c.beginUpdate)

		if c.buttons.Is(button.InputMain, true) {
			c.traceInput(button.InputMain, true)
			c.submit(message.Buttons{Main: true})
		}
	}

	return ctx.Err()
}

// Tick runs one pass of the loop. It returns false once the device is
// asleep.
func (c *Controller) Tick(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	defer c.publish()

	if !c.booted || c.power.Asleep() {
		return false
	}
	if ctx.Err() != nil {
		c.sleep(ReasonInterrupted)
		return false
	}

	if c.buttons.CheckEdge(button.InputReset, c.resetLevel, c.cfg.Debounce) {
		c.traceInput(button.InputReset, c.resetLevel)
		outcome, err := c.reset.Run()
		if err != nil {
			diag.Error(c.log, "factory reset", "error", err)
			c.traceError(buttonlog.ComponentReset, "erase credentials", err, false)
		}
		c.traceState(buttonlog.ComponentReset, "HELD", outcome.String(), "")
		if c.power.Asleep() {
			return false
		}
	}

	if c.mode == ModeNormal {
		if c.buttons.CheckEdge(button.InputMain, true, c.cfg.Debounce) {
			c.traceInput(button.InputMain, true)
			c.submit(message.Buttons{Main: true})
		}
		c.session.Tick()
	}

	ready := c.mode == ModeProvisioning || c.session.Connected()
	res := c.engine.Tick(ctx, ready)
	c.traceAttempts(res)
	switch res.Outcome {
	case delivery.OutcomeDelivered:
		c.onDelivered(res)
		return false
	case delivery.OutcomeFailed:
		c.onDeliveryFailed(res)
		if c.power.Asleep() {
			return false
		}
	case delivery.OutcomeRetry:
		diag.Data(c.log, "delivery attempt failed", "error", res.Err, "age", c.engine.Age())
	}

	if c.mode == ModeNormal {
		if c.engine.Pending() || c.session.InFlight() {
			c.inactivity.Restart()
		} else if c.inactivity.Poll() {
			diag.Event(c.log, "not doing anything, going to sleep")
			c.sleep(ReasonInactivity)
			return false
		}
	}

	if c.ceiling.Poll() {
		diag.Error(c.log, "safety ceiling reached", "ceiling", c.cfg.Ceiling)
		c.sleep(ReasonCeiling)
		return false
	}

	c.update.Handle()
	return true
}

// Run boots if needed and ticks until the device sleeps.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	booted := c.booted
	c.mu.Unlock()

	if !booted {
		if err := c.Boot(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			return err
		}
	}
	for c.Tick(ctx) {
		c.deps.Clock.Sleep(c.cfg.TickInterval)
	}
	return nil
}

// Mode returns the mode selected at boot.
func (c *Controller) Mode() Mode {
	return c.view().mode
}

// CycleID returns the wake-cycle identifier.
func (c *Controller) CycleID() string {
	return c.view().cycleID
}

// Asleep returns true once power was released.
func (c *Controller) Asleep() bool {
	return c.power.Asleep()
}

// SleepReason returns why power was released.
func (c *Controller) SleepReason() string {
	return c.power.Reason()
}

// Remaining returns the time left before the safety ceiling forces sleep,
// as of the last tick. Zero before boot and after sleep.
func (c *Controller) Remaining() time.Duration {
	return c.view().remaining
}

// Indicator returns the state shown on the LED.
func (c *Controller) Indicator() indicator.State {
	return c.led.State()
}

// Pending returns true while a message waits for delivery.
func (c *Controller) Pending() bool {
	return c.view().pending
}

// SessionState returns the session state. Provisioning has no session and
// reports StateIdle.
func (c *Controller) SessionState() session.State {
	return c.view().session
}

func (c *Controller) view() snapshot {
	if s := c.snap.Load(); s != nil {
		return *s
	}
	return snapshot{}
}

// publish must be called with c.mu held.
func (c *Controller) publish() {
	s := &snapshot{cycleID: c.cycleID, mode: c.mode}
	if c.session != nil {
		s.session = c.session.State()
	}
	if c.engine != nil {
		s.pending = c.engine.Pending()
	}
	if c.ceiling != nil {
		s.remaining = c.ceiling.RemainingTime()
	}
	c.snap.Store(s)
}

func (c *Controller) submit(b message.Buttons) {
	voltage, err := c.deps.Board.Supply.Voltage()
	if err != nil {
		diag.Error(c.log, "supply read failed", "error", err)
		voltage = message.MinVoltage
	}
	m := message.New(b, voltage, c.cfg.Firmware, c.deviceID, c.mode == ModeProvisioning)
	if err := c.engine.Submit(m); err != nil {
		diag.Error(c.log, "submit message", "error", err)
		c.traceError(buttonlog.ComponentDelivery, "submit", err, true)
		return
	}
	diag.Event(c.log, "message queued for delivery", "main", b.Main, "voltage", m.Voltage)
	c.traceState(buttonlog.ComponentDelivery, "", "PENDING", "")

	if c.mode == ModeProvisioning {
		c.setIndicator(indicator.PendingProvisioning)
	} else {
		c.setIndicator(indicator.Pending)
	}
}

func (c *Controller) onDelivered(res delivery.Result) {
	diag.Event(c.log, "message send success", "receiver", res.Endpoint.String(), "status", res.Status)
	c.traceState(buttonlog.ComponentDelivery, "PENDING", res.Outcome.String(), res.Endpoint.HostPort())

	if c.mode == ModeProvisioning && len(res.Reply) > 0 {
		diag.Data(c.log, "received data", "bytes", len(res.Reply))
		creds, err := message.ParseReply(res.Reply)
		switch {
		case err != nil:
			diag.Data(c.log, "reply carries no credentials", "error", err)
		case !creds.Equal(c.creds):
			diag.Important(c.log, "new network credentials received, saving", "network", creds.NetworkName)
			if err := c.deps.Store.Save(creds); err != nil {
				diag.Error(c.log, "save credentials", "error", err)
				c.traceError(buttonlog.ComponentCredentials, "save", err, false)
			} else {
				c.creds = creds
				c.traceState(buttonlog.ComponentCredentials, "", "SAVED", creds.NetworkName)
			}
		}
	}

	c.setIndicator(indicator.Delivered)
	quiet := c.cfg.QuietNormal
	if c.mode == ModeProvisioning {
		quiet = c.cfg.QuietProvisioning
	}
	c.deps.Clock.Sleep(quiet)
	c.sleep(ReasonDelivered)
}

func (c *Controller) onDeliveryFailed(res delivery.Result) {
	diag.Error(c.log, "sending request failed", "error", res.Err)
	c.traceError(buttonlog.ComponentDelivery, "deliver", res.Err, c.mode == ModeNormal)

	if c.session != nil {
		c.session.Reset()
	}
	c.setIndicator(indicator.DeliveryFailed)

	if c.mode == ModeProvisioning {
		c.deps.Clock.Sleep(c.cfg.FailWait)
		c.sleep(ReasonFailed)
	}
}

func (c *Controller) onSessionTransition(old, new session.State, reason string) {
	c.traceState(buttonlog.ComponentSession, old.String(), new.String(), reason)
	switch new {
	case session.StateConnected:
		diag.Event(c.log, "connected to wifi", "network", c.creds.NetworkName)
	case session.StateFailed:
		diag.Error(c.log, "connecting to wifi failed", "reason", reason)
		if c.engine.Pending() {
			c.engine.Clear()
			c.traceState(buttonlog.ComponentDelivery, "PENDING", "DISCARDED", reason)
		}
		c.setIndicator(indicator.ConnectFailed)
	}
}

func (c *Controller) beginUpdate() {
	if err := c.update.Begin(); err != nil {
		diag.Error(c.log, "update listener", "error", err)
		c.traceError(buttonlog.ComponentController, "begin update listener", err, true)
	}
}

func (c *Controller) setIndicator(s indicator.State) {
	if err := c.led.Set(s); err != nil {
		diag.Error(c.log, "indicator", "state", s.String(), "error", err)
	}
}

func (c *Controller) onTimerExpired(name string, elapsed time.Duration) {
	ev := c.event(buttonlog.ComponentController, buttonlog.CategoryState)
	ev.StateChange = &buttonlog.StateChangeEvent{
		OldState: failsafe.StateRunning.String(),
		NewState: failsafe.StateExpired.String(),
		Reason:   fmt.Sprintf("%s after %v", name, elapsed),
	}
	c.trace.Log(ev)
}

// bootFailed ends a cycle that could not start.
func (c *Controller) bootFailed(comp buttonlog.Component, what string, err error) error {
	diag.Error(c.log, "boot failed", "step", what, "error", err)
	c.traceError(comp, what, err, false)
	c.sleep(ReasonBootFailed)
	return fmt.Errorf("%s: %w", what, err)
}

func (c *Controller) sleep(reason string) {
	if c.ceiling != nil {
		c.ceiling.Stop()
	}
	if c.inactivity != nil {
		c.inactivity.Stop()
	}
	c.power.Sleep(reason)
}

// discardHandler drops every record.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
