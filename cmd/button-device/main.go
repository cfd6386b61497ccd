//go:build linux

// Command button-device runs one wake cycle of the pizza button on a Linux
// board: it latches power through the self-hold GPIO, reports the press to
// a receiver discovered over mDNS and releases power again.
//
// Usage:
//
//	button-device [flags]
//
// Flags:
//
//	-config string     Configuration file path (YAML)
//	-log-level string  Log level: debug, info, warn, error, or a tag name
//	-env string        Log format: dev (colour) or prod (JSON)
//	-trace string      Wake-cycle trace file (overrides the config)
//	-print-config      Print the effective configuration and exit
//
// Examples:
//
//	# Run with the packaged configuration
//	button-device -config /etc/pizza-button/device.yaml
//
//	# Debug on a bench board
//	button-device -config bench.yaml -env dev -log-level debug
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/TheLastGimbus/ESP-PizzaButton/internal/wiring"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/clock"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/config"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/controller"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/credentials"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/delivery"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/diag"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/discovery"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/hal/gpio"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/hal/host"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/retry"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/update"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/version"
)

var (
	configPath  = flag.String("config", "", "Configuration file path (YAML)")
	logLevel    = flag.String("log-level", "", "Log level: debug, info, warn, error, or a tag name")
	env         = flag.String("env", "", "Log format: dev or prod")
	tracePath   = flag.String("trace", "", "Wake-cycle trace file (overrides the config)")
	printConfig = flag.Bool("print-config", false, "Print the effective configuration and exit")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if *env != "" {
		cfg.Env = *env
	}
	if *tracePath != "" {
		cfg.Trace = *tracePath
	}
	if *printConfig {
		fmt.Print(cfg.String())
		return
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "button-device: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	opts := wiring.LogOptions(cfg, "button-device")

	// Sinks report their own trouble on the console only.
	console := slog.New(diag.NewConsoleHandler(opts))
	sinks, err := wiring.NewSinks(cfg.Diag, console)
	if err != nil {
		return err
	}
	if err := sinks.Start(); err != nil {
		console.Warn("diagnostic sink unavailable", "error", err)
	}

	logger, handler := diag.New(opts, cfg.DiagMinTag(), sinks.List()...)
	defer handler.Close()
	slog.SetDefault(logger)

	boot := host.ReadBootInfo("/proc")
	diag.Data(logger, "boot", "boot_id", boot.BootID, "kernel", boot.Kernel, "uptime", boot.Uptime, "firmware", version.Firmware)

	radio := host.NewRadio(host.RadioConfig{
		Interface: cfg.Network.Interface,
		Logger:    logger,
	})
	supply := host.NewIIOSupply(cfg.Supply.Path, cfg.Supply.Scale)

	board, err := gpio.OpenBoard(cfg.GPIO, radio, supply)
	if err != nil {
		return fmt.Errorf("open board: %w", err)
	}
	board.AddCloser(radio)
	defer func() {
		if err := board.Close(); err != nil {
			logger.Warn("release board", "error", err)
		}
	}()

	clk := clock.NewReal()

	trace, traceCloser, err := wiring.Trace(cfg.Trace, logger)
	if err != nil {
		// The cycle still runs untraced.
		diag.Error(logger, "trace unavailable", "error", err)
		trace, traceCloser, _ = wiring.Trace("", logger)
	}
	defer traceCloser.Close()

	browser := discovery.NewBrowser(discovery.BrowserConfig{
		Window:    cfg.Timing.DiscoveryWindow.Std(),
		Interface: cfg.Discovery.Interface,
		Logger:    logger,
	})

	var listener update.Listener = update.Nop{}
	if cfg.Update.Enabled {
		adv := discovery.NewAdvertiser(discovery.AdvertiserConfig{Interface: cfg.Network.Interface})
		announcer := update.NewAnnouncer(adv, clk, update.Config{
			Instance: update.Hostname,
			Port:     cfg.Update.Port,
			Firmware: version.Firmware,
			MAC:      radio.HardwareAddr(),
			Retry:    retry.DefaultConfig(),
			Logger:   logger,
		})
		defer announcer.Close()
		listener = announcer
	}

	ctrl, err := controller.New(controller.Deps{
		Board:      board,
		Clock:      clk,
		Store:      credentials.NewStore(cfg.Credentials),
		Discoverer: browser,
		Poster:     delivery.NewHTTPPoster(cfg.Timing.PostTimeout.Std()),
		Update:     listener,
		Trace:      trace,
	}, wiring.ControllerConfig(cfg, logger))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := ctrl.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("wake cycle finished", "reason", ctrl.SleepReason(), "cycle", ctrl.CycleID())
	return nil
}
