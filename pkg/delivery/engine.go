package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/clock"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/discovery"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/message"
)

// Default policy.
const (
	DefaultInterval = 1500 * time.Millisecond
	DefaultDeadline = 180 * time.Second
)

// Delivery errors.
var (
	ErrNoEndpoints      = errors.New("delivery: no receiver found")
	ErrDeadlineExceeded = errors.New("delivery: deadline exceeded")
	ErrStatus           = errors.New("delivery: unexpected status")
)

// Discoverer resolves receiver endpoints.
type Discoverer interface {
	Discover(ctx context.Context, service string) ([]discovery.Endpoint, error)
}

// Poster submits a body to one endpoint.
type Poster interface {
	Post(ctx context.Context, ep discovery.Endpoint, body []byte) (status int, reply []byte, err error)
}

// Outcome is the result kind of one Tick.
type Outcome uint8

const (
	// OutcomeIdle means no attempt was made this tick.
	OutcomeIdle Outcome = iota

	// OutcomeRetry means an attempt was made and no candidate succeeded.
	OutcomeRetry

	// OutcomeDelivered means a candidate accepted the message.
	OutcomeDelivered

	// OutcomeFailed means the deadline passed without success.
	OutcomeFailed
)

// String returns a human-readable outcome name.
func (o Outcome) String() string {
	switch o {
	case OutcomeIdle:
		return "IDLE"
	case OutcomeRetry:
		return "RETRY"
	case OutcomeDelivered:
		return "DELIVERED"
	case OutcomeFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Attempt records one POST to one candidate.
type Attempt struct {
	Endpoint discovery.Endpoint
	Status   int
	Err      error
}

// Result describes what a Tick did.
type Result struct {
	Outcome Outcome

	// Endpoint, Status and Reply are set on OutcomeDelivered.
	Endpoint discovery.Endpoint
	Status   int
	Reply    []byte

	// Message is the message concerned on OutcomeDelivered and OutcomeFailed.
	Message message.Message

	// Attempts lists every candidate tried this tick.
	Attempts []Attempt

	// Age is how long the message had been pending when the tick began.
	Age time.Duration

	// Err explains OutcomeRetry and OutcomeFailed.
	Err error
}

// Config configures an Engine.
type Config struct {
	// Service is the DNS-SD service type of the receiver.
	Service string

	// Interval is the minimum spacing between attempts.
	Interval time.Duration

	// Deadline bounds the life of a pending message.
	Deadline time.Duration

	// Logger receives attempt details. Nil disables logging.
	Logger *slog.Logger
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Service:  discovery.ServiceTypeReceiver,
		Interval: DefaultInterval,
		Deadline: DefaultDeadline,
	}
}

// Engine owns the pending message.
type Engine struct {
	mu sync.Mutex

	disc   Discoverer
	poster Poster
	clk    clock.Clock
	cfg    Config

	pending     bool
	fresh       bool
	msg         message.Message
	body        []byte
	createdAt   time.Duration
	lastAttempt time.Duration
	attempted   bool
}

// New creates an engine with nothing pending.
func New(disc Discoverer, poster Poster, clk clock.Clock, cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.Service == "" {
		cfg.Service = def.Service
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = def.Deadline
	}
	return &Engine{disc: disc, poster: poster, clk: clk, cfg: cfg}
}

// Submit makes m the pending message, replacing any previous one. The
// deadline runs from the first Submit since the engine was last idle; a
// replacement keeps it, so a held trigger cannot postpone failure.
func (e *Engine) Submit(m message.Message) error {
	body, err := m.Encode()
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.pending {
		e.debugLog("replacing pending message", "age", clock.Since(e.clk, e.createdAt))
	} else {
		e.createdAt = e.clk.Now()
	}
	e.pending = true
	e.fresh = true
	e.msg = m
	e.body = body
	return nil
}

// Pending reports whether a message awaits delivery.
func (e *Engine) Pending() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.pending
}

// Message returns the pending message.
func (e *Engine) Message() (message.Message, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.msg, e.pending
}

// Age returns how long the pending message has waited.
func (e *Engine) Age() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.pending {
		return 0
	}
	return clock.Since(e.clk, e.createdAt)
}

// Clear discards the pending message.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked()
}

func (e *Engine) clearLocked() {
	e.pending = false
	e.fresh = false
	e.msg = message.Message{}
	e.body = nil
}

// Tick runs at most one delivery attempt. ready reports whether the
// network is usable this tick.
func (e *Engine) Tick(ctx context.Context, ready bool) Result {
	e.mu.Lock()

	if !e.pending {
		e.mu.Unlock()
		return Result{}
	}
	if e.fresh {
		e.fresh = false
		e.mu.Unlock()
		return Result{}
	}

	if age := clock.Since(e.clk, e.createdAt); age > e.cfg.Deadline {
		msg := e.msg
		e.clearLocked()
		e.mu.Unlock()
		return Result{
			Outcome: OutcomeFailed,
			Message: msg,
			Age:     age,
			Err:     fmt.Errorf("%w: pending for %s", ErrDeadlineExceeded, age.Round(time.Millisecond)),
		}
	}

	if !ready || (e.attempted && clock.Since(e.clk, e.lastAttempt) < e.cfg.Interval) {
		e.mu.Unlock()
		return Result{}
	}

	body := e.body
	msg := e.msg
	age := clock.Since(e.clk, e.createdAt)
	e.mu.Unlock()

	res := e.attempt(ctx, body)
	res.Age = age

	e.mu.Lock()
	defer e.mu.Unlock()

	e.attempted = true
	e.lastAttempt = e.clk.Now()

	if res.Outcome == OutcomeDelivered {
		res.Message = msg
		// A Submit during the attempt keeps the newer message pending.
		if !e.fresh {
			e.clearLocked()
		}
	}
	return res
}

// attempt runs discovery and posts body to each candidate in order.
func (e *Engine) attempt(ctx context.Context, body []byte) Result {
	e.debugLog("delivery attempt", "service", e.cfg.Service)

	endpoints, err := e.disc.Discover(ctx, e.cfg.Service)
	if err != nil {
		return Result{Outcome: OutcomeRetry, Err: fmt.Errorf("%w: %v", ErrNoEndpoints, err)}
	}
	if len(endpoints) == 0 {
		return Result{Outcome: OutcomeRetry, Err: ErrNoEndpoints}
	}
	e.debugLog("receivers found", "count", len(endpoints))

	res := Result{Outcome: OutcomeRetry}
	var errs []error
	for _, ep := range endpoints {
		status, reply, err := e.poster.Post(ctx, ep, body)
		if err == nil && (status < 200 || status >= 300) {
			err = fmt.Errorf("%w: %d", ErrStatus, status)
		}
		res.Attempts = append(res.Attempts, Attempt{Endpoint: ep, Status: status, Err: err})
		e.debugLog("post", "endpoint", ep.String(), "status", status, "error", err)

		if err == nil {
			res.Outcome = OutcomeDelivered
			res.Endpoint = ep
			res.Status = status
			res.Reply = reply
			res.Err = nil
			return res
		}
		errs = append(errs, fmt.Errorf("%s: %w", ep, err))

		if ctx.Err() != nil {
			break
		}
	}
	res.Err = errors.Join(errs...)
	return res
}

func (e *Engine) debugLog(msg string, args ...any) {
	if e.cfg.Logger != nil {
		e.cfg.Logger.Debug(msg, args...)
	}
}
