// Package wiring assembles the pieces shared by the device and simulator
// binaries from a loaded configuration.
package wiring

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/config"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/controller"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/diag"
	buttonlog "github.com/TheLastGimbus/ESP-PizzaButton/pkg/log"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/version"
)

// ControllerConfig maps the file configuration onto the control loop.
func ControllerConfig(cfg config.Config, logger *slog.Logger) controller.Config {
	t := cfg.Timing
	return controller.Config{
		TickInterval:      t.Tick.Std(),
		Debounce:          t.Debounce.Std(),
		ConnectTimeout:    t.ConnectTimeout.Std(),
		DeliveryInterval:  t.DeliveryInterval.Std(),
		DeliveryDeadline:  t.DeliveryDeadline.Std(),
		Inactivity:        t.Inactivity.Std(),
		Ceiling:           t.Ceiling.Std(),
		QuietNormal:       t.QuietNormal.Std(),
		QuietProvisioning: t.QuietProvisioning.Std(),
		FailWait:          controller.DefaultFailWait,
		PowerLatency:      t.PowerLatency.Std(),
		ResetHold:         t.ResetHold.Std(),
		Service:           cfg.Discovery.Service,
		AccessPoint:       cfg.Network.AccessPoint,
		Firmware:          version.Firmware,
		Logger:            logger,
	}
}

// LogOptions returns the console options for app.
func LogOptions(cfg config.Config, app string) diag.Options {
	return diag.Options{
		Env:     cfg.Env,
		Level:   cfg.SlogLevel(),
		App:     app,
		Version: version.Firmware,
	}
}

// Sinks holds the remote log sinks that were configured.
type Sinks struct {
	TCP  *diag.LogServer
	MQTT *diag.MQTTSink
}

// List returns the configured sinks for diag.New.
func (s *Sinks) List() []diag.Sink {
	var out []diag.Sink
	if s.TCP != nil {
		out = append(out, s.TCP)
	}
	if s.MQTT != nil {
		out = append(out, s.MQTT)
	}
	return out
}

// Start starts every sink. A sink that fails to start is closed and
// dropped; the error is returned after the others were tried.
func (s *Sinks) Start() error {
	var errs []error
	if s.TCP != nil {
		if err := s.TCP.Start(); err != nil {
			errs = append(errs, fmt.Errorf("log server: %w", err))
			s.TCP.Close()
			s.TCP = nil
		}
	}
	if s.MQTT != nil {
		if err := s.MQTT.Start(); err != nil {
			errs = append(errs, fmt.Errorf("mqtt log sink: %w", err))
			s.MQTT.Close()
			s.MQTT = nil
		}
	}
	return errors.Join(errs...)
}

// NewSinks builds the sinks named by cfg. Sink internals log to logger,
// which must not itself feed the sinks.
func NewSinks(cfg config.Diag, logger *slog.Logger) (*Sinks, error) {
	s := &Sinks{}
	if cfg.TCPAddr != "" {
		tcp := diag.DefaultTCPConfig()
		tcp.Addr = cfg.TCPAddr
		tcp.Logger = logger
		s.TCP = diag.NewLogServer(tcp)
	}
	if cfg.MQTT.Broker != "" {
		mq := diag.DefaultMQTTConfig()
		mq.Broker = cfg.MQTT.Broker
		if cfg.MQTT.ClientID != "" {
			mq.ClientID = cfg.MQTT.ClientID
		}
		if cfg.MQTT.Topic != "" {
			mq.Topic = cfg.MQTT.Topic
		}
		mq.Logger = logger
		sink, err := diag.NewMQTTSink(mq)
		if err != nil {
			return nil, err
		}
		s.MQTT = sink
	}
	return s, nil
}

// Trace opens the wake-cycle trace. Events go to the file at path, if any,
// and to logger at debug level. The returned closer is never nil.
func Trace(path string, logger *slog.Logger) (buttonlog.Logger, io.Closer, error) {
	loggers := []buttonlog.Logger{buttonlog.NewSlogAdapter(logger)}
	var closer io.Closer = nopCloser{}
	if path != "" {
		file, err := buttonlog.NewFileLogger(path, buttonlog.WithSync(), buttonlog.WithRotation(buttonlog.DefaultMaxSize))
		if err != nil {
			return nil, nil, fmt.Errorf("open trace: %w", err)
		}
		loggers = append(loggers, file)
		closer = file
	}
	return buttonlog.NewMultiLogger(loggers...), closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
