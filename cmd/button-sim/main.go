// Command button-sim runs the pizza button firmware against simulated
// hardware. Typed commands press the buttons, change the Wi-Fi conditions
// and steer a built-in receiver, while the real control loop, delivery
// engine and credential store run unchanged.
//
// Usage:
//
//	button-sim [flags]
//
// Flags:
//
//	-config string       Configuration file path (YAML)
//	-credentials string  Credential file (default in the temp directory)
//	-receiver string     "local" for the built-in receiver, "mdns" to browse,
//	                     or a URL such as http://192.168.1.20:8080/
//	-log-level string    Log level: debug, info, warn, error, or a tag name
//	-trace string        Wake-cycle trace file (empty disables tracing)
//	-mac string          Simulated hardware address
//
// Examples:
//
//	# Everything local
//	button-sim
//
//	# Report to a kitchen app announced over mDNS
//	button-sim -receiver mdns -trace sim.blog
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/cmd/button-sim/interactive"
	"github.com/TheLastGimbus/ESP-PizzaButton/internal/wiring"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/clock"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/config"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/controller"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/credentials"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/delivery"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/diag"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/hal/sim"
	buttonlog "github.com/TheLastGimbus/ESP-PizzaButton/pkg/log"
)

// simLatency replaces the hold-line discharge time; the simulated rail
// drops at once.
const simLatency = 50 * time.Millisecond

var (
	configPath   = flag.String("config", "", "Configuration file path (YAML)")
	credsPath    = flag.String("credentials", "", "Credential file (default in the temp directory)")
	receiverFlag = flag.String("receiver", receiverLocal, `"local", "mdns", or a receiver URL`)
	logLevel     = flag.String("log-level", "", "Log level: debug, info, warn, error, or a tag name")
	tracePath    = flag.String("trace", "", "Wake-cycle trace file (empty disables tracing)")
	mac          = flag.String("mac", sim.DefaultMAC, "Simulated hardware address")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(2)
	}
	cfg.Env = diag.EnvDev
	cfg.Trace = *tracePath
	cfg.Credentials = *credsPath
	if cfg.Credentials == "" {
		cfg.Credentials = filepath.Join(os.TempDir(), "pizza-button-sim", "credentials.json")
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "button-sim: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	clk := clock.NewReal()
	hw := sim.NewHardware(clk)
	hw.Radio.SetHardwareAddr(*mac)

	var receiver *interactive.Receiver
	if *receiverFlag == receiverLocal {
		receiver = interactive.NewReceiver()
	}

	// The factory runs only after the rest of the bench is assembled.
	var (
		disc    delivery.Discoverer
		trace   buttonlog.Logger
		ctrlCfg controller.Config
	)
	store := credentials.NewStore(cfg.Credentials)
	poster := delivery.NewHTTPPoster(cfg.Timing.PostTimeout.Std())

	bench := interactive.NewBench(hw, func() (*controller.Controller, error) {
		return controller.New(controller.Deps{
			Board:      hw.Board(),
			Clock:      clk,
			Store:      store,
			Discoverer: disc,
			Poster:     poster,
			Trace:      trace,
		}, ctrlCfg)
	})
	console, err := interactive.New(bench, receiver)
	if err != nil {
		return err
	}

	opts := wiring.LogOptions(cfg, "button-sim")
	opts.Output = console.Stderr()
	logger, handler := diag.New(opts, cfg.DiagMinTag())
	defer handler.Close()

	var local http.Handler
	if receiver != nil {
		receiver.SetLogger(logger.With("component", "receiver"))
		local = receiver
	}
	var stopReceiver func()
	disc, stopReceiver, err = discovererFor(*receiverFlag, cfg, local, logger)
	if err != nil {
		return err
	}
	defer stopReceiver()

	var traceCloser io.Closer
	trace, traceCloser, err = wiring.Trace(cfg.Trace, logger)
	if err != nil {
		return err
	}
	defer traceCloser.Close()

	ctrlCfg = wiring.ControllerConfig(cfg, logger)
	ctrlCfg.PowerLatency = simLatency

	bench.OnFinish(func(ctrl *controller.Controller, err error) {
		if err != nil {
			logger.Error("wake cycle failed", "cycle", ctrl.CycleID(), "error", err)
			return
		}
		logger.Info("device asleep", "cycle", ctrl.CycleID(), "reason", ctrl.SleepReason())
	})

	logger.Info("simulator ready", "credentials", cfg.Credentials, "receiver", *receiverFlag, "mac", *mac)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	console.Run(ctx, cancel)
	bench.Stop()
	return nil
}
