package update

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/clock"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/discovery"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/retry"
)

// Hostname is the name the device announces itself under.
const Hostname = "pizza-sms-button"

// ErrClosed is returned by Begin after Close.
var ErrClosed = errors.New("update listener closed")

// Listener is serviced by the control loop.
type Listener interface {
	// Begin starts listening. It is called at most once per wake cycle.
	Begin() error

	// Handle services the listener. It must return quickly.
	Handle()
}

// Nop is a Listener that does nothing.
type Nop struct{}

// Begin does nothing.
func (Nop) Begin() error { return nil }

// Handle does nothing.
func (Nop) Handle() {}

// Advertiser publishes mDNS services. *discovery.Advertiser implements it.
type Advertiser interface {
	Advertise(ctx context.Context, info *discovery.ServiceInfo) error
	Stop(service string) error
}

// Config configures an Announcer.
type Config struct {
	// Instance is the announced instance name. Defaults to Hostname.
	Instance string

	// Port is the announced port. Defaults to discovery.DefaultUpdatePort.
	Port uint16

	// Firmware and MAC are published in the TXT record.
	Firmware string
	MAC      string

	// Retry spaces out re-registration after a failure.
	Retry retry.Config

	// Logger is the optional logger for debug output.
	Logger *slog.Logger
}

// DefaultConfig returns the default announcer configuration.
func DefaultConfig() Config {
	return Config{
		Instance: Hostname,
		Port:     discovery.DefaultUpdatePort,
		Retry:    retry.DefaultConfig(),
	}
}

// Announcer advertises the update service.
type Announcer struct {
	adv    Advertiser
	info   discovery.ServiceInfo
	logger *slog.Logger

	mu        sync.Mutex
	schedule  *retry.Schedule
	begun     bool
	announced bool
	closed    bool
	lastErr   error
}

// NewAnnouncer creates an announcer. Nothing is advertised until Begin.
func NewAnnouncer(adv Advertiser, clk clock.Clock, cfg Config) *Announcer {
	if cfg.Instance == "" {
		cfg.Instance = Hostname
	}
	if cfg.Port == 0 {
		cfg.Port = discovery.DefaultUpdatePort
	}
	return &Announcer{
		adv: adv,
		info: discovery.ServiceInfo{
			Instance: cfg.Instance,
			Service:  discovery.ServiceTypeUpdate,
			Port:     cfg.Port,
			Firmware: cfg.Firmware,
			MAC:      cfg.MAC,
		},
		logger:   cfg.Logger,
		schedule: retry.NewSchedule(clk, cfg.Retry),
	}
}

// Begin advertises the update service. A failed registration is retried
// from Handle.
func (a *Announcer) Begin() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.begun {
		return nil
	}
	a.begun = true
	return a.announceLocked()
}

// Handle retries a failed registration once its backoff has elapsed.
func (a *Announcer) Handle() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.begun || a.announced || a.closed || !a.schedule.Due() {
		return
	}
	_ = a.announceLocked()
}

func (a *Announcer) announceLocked() error {
	err := a.adv.Advertise(context.Background(), &a.info)
	if err != nil {
		a.lastErr = err
		delay := a.schedule.Failed()
		a.debugLog("update announce failed", "error", err, "retry_in", delay)
		return fmt.Errorf("announce %s: %w", a.info.Instance, err)
	}
	a.schedule.Succeeded()
	a.announced = true
	a.lastErr = nil
	a.debugLog("update service announced", "instance", a.info.Instance, "port", a.info.Port)
	return nil
}

// Announced returns true once the service is advertised.
func (a *Announcer) Announced() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.announced
}

// Err returns the last registration error, if any.
func (a *Announcer) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastErr
}

// Close withdraws the advertisement.
func (a *Announcer) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true
	if !a.announced {
		return nil
	}
	a.announced = false
	return a.adv.Stop(a.info.Service)
}

func (a *Announcer) debugLog(msg string, args ...any) {
	if a.logger != nil {
		a.logger.Debug(msg, args...)
	}
}

var (
	_ Listener   = Nop{}
	_ Listener   = (*Announcer)(nil)
	_ Advertiser = (*discovery.Advertiser)(nil)
)
