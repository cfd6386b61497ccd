// Package interactive provides the interactive console of button-sim.
package interactive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/credentials"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/hal/sim"
)

// Console defaults.
const (
	DefaultPress = 300 * time.Millisecond
	DefaultReset = 6 * time.Second
)

// Console drives a Bench from typed commands.
type Console struct {
	bench    *Bench
	receiver *Receiver
	rl       *readline.Instance
	out      io.Writer
}

// New creates a console. receiver may be nil when reports go to an
// external receiver.
func New(bench *Bench, receiver *Receiver) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "button> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Console{
		bench:    bench,
		receiver: receiver,
		rl:       rl,
		out:      rl.Stdout(),
	}, nil
}

// Stdout returns a writer that keeps the prompt intact.
func (c *Console) Stdout() io.Writer {
	return c.rl.Stdout()
}

// Stderr returns a writer that keeps the prompt intact. Use it for logs.
func (c *Console) Stderr() io.Writer {
	return c.rl.Stderr()
}

// Run reads commands until quit, EOF or ctx is done.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if !c.Exec(line) {
			cancel()
			return
		}
	}
}

// Exec runs one command line. It returns false when the console should exit.
func (c *Console) Exec(line string) bool {
	parts := strings.Fields(strings.TrimSpace(line))
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "press", "p":
		c.cmdPress(args)

	case "hold":
		c.cmdHold()

	case "release":
		c.bench.Hardware().Main.Drive(false)
		fmt.Fprintln(c.out, "Button released")

	case "reset", "r":
		c.cmdReset(args)

	case "wifi", "w":
		c.cmdWifi(args)

	case "voltage", "v":
		c.cmdVoltage(args)

	case "receiver":
		c.cmdReceiver(args)

	case "status", "s":
		c.cmdStatus()

	case "stop":
		if !c.bench.Awake() {
			fmt.Fprintln(c.out, "Device is asleep")
			break
		}
		c.bench.Stop()

	case "quit", "exit", "q":
		c.bench.Stop()
		fmt.Fprintln(c.out, "Exiting...")
		return false

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) cmdPress(args []string) {
	d := DefaultPress
	if len(args) > 0 {
		var err error
		if d, err = time.ParseDuration(args[0]); err != nil || d <= 0 {
			fmt.Fprintf(c.out, "Invalid duration: %s\n", args[0])
			return
		}
	}

	trigger := c.bench.Hardware().Main
	trigger.Drive(true)
	time.AfterFunc(d, func() { trigger.Drive(false) })
	fmt.Fprintf(c.out, "Button pressed for %v\n", d)
	c.wake()
}

func (c *Console) cmdHold() {
	c.bench.Hardware().Main.Drive(true)
	fmt.Fprintln(c.out, "Button held (use 'release')")
	c.wake()
}

func (c *Console) wake() {
	err := c.bench.Wake()
	switch {
	case err == nil:
		fmt.Fprintf(c.out, "Device woke (cycle %d)\n", c.bench.Cycles())
	case errors.Is(err, ErrAwake):
	default:
		fmt.Fprintf(c.out, "Wake failed: %v\n", err)
	}
}

func (c *Console) cmdReset(args []string) {
	d := DefaultReset
	if len(args) > 0 {
		var err error
		if d, err = time.ParseDuration(args[0]); err != nil || d <= 0 {
			fmt.Fprintf(c.out, "Invalid duration: %s\n", args[0])
			return
		}
	}
	if !c.bench.Awake() {
		fmt.Fprintln(c.out, "Device is asleep; the reset button is only read while awake")
		return
	}

	// Active low.
	reset := c.bench.Hardware().Reset
	reset.Drive(false)
	time.AfterFunc(d, func() { reset.Drive(true) })
	fmt.Fprintf(c.out, "Reset button held for %v\n", d)
}

func (c *Console) cmdWifi(args []string) {
	radio := c.bench.Hardware().Radio
	if len(args) == 0 {
		fmt.Fprintf(c.out, "Access point: %q  joined: %q  associated: %v  joins: %d\n",
			radio.AccessPoint(), radio.JoinedNetwork(), radio.Associated(), radio.Joins())
		return
	}

	switch strings.ToLower(args[0]) {
	case "never":
		radio.SetDelay(sim.Never)
		fmt.Fprintln(c.out, "Network unreachable")
	case "drop":
		radio.DropLink()
		fmt.Fprintln(c.out, "Link dropped")
	case "network":
		if len(args) < 2 {
			fmt.Fprintln(c.out, "Usage: wifi network <name> [secret]")
			return
		}
		secret := ""
		if len(args) > 2 {
			secret = args[2]
		}
		radio.RequireNetwork(args[1], secret)
		fmt.Fprintf(c.out, "Radio only joins %q\n", args[1])
	default:
		d, err := time.ParseDuration(args[0])
		if err != nil || d < 0 {
			fmt.Fprintf(c.out, "Invalid delay: %s\n", args[0])
			return
		}
		radio.SetDelay(d)
		fmt.Fprintf(c.out, "Association delay set to %v\n", d)
	}
}

func (c *Console) cmdVoltage(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(c.out, "Usage: voltage <volts>")
		return
	}
	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		fmt.Fprintf(c.out, "Invalid voltage: %s\n", args[0])
		return
	}
	c.bench.Hardware().Supply.SetVoltage(v)
	fmt.Fprintf(c.out, "Supply set to %.2f V\n", v)
}

func (c *Console) cmdReceiver(args []string) {
	if c.receiver == nil {
		fmt.Fprintln(c.out, "No built-in receiver (reports go to an external receiver)")
		return
	}
	if len(args) == 0 {
		fmt.Fprintf(c.out, "Receiver status: %d  reports: %d\n", c.receiver.Status(), len(c.receiver.Received()))
		return
	}

	switch strings.ToLower(args[0]) {
	case "status":
		if len(args) < 2 {
			fmt.Fprintln(c.out, "Usage: receiver status <code>")
			return
		}
		code, err := strconv.Atoi(args[1])
		if err != nil || code < 100 || code > 599 {
			fmt.Fprintf(c.out, "Invalid status: %s\n", args[1])
			return
		}
		c.receiver.SetStatus(code)
		fmt.Fprintf(c.out, "Receiver answers %d\n", code)

	case "reply":
		if len(args) < 2 {
			fmt.Fprintln(c.out, "Usage: receiver reply <ssid> [password] | receiver reply clear")
			return
		}
		if args[1] == "clear" {
			c.receiver.SetReply(credentials.Credentials{})
			fmt.Fprintln(c.out, "Receiver sends no credentials")
			return
		}
		creds := credentials.Credentials{NetworkName: args[1]}
		if len(args) > 2 {
			creds.NetworkSecret = args[2]
		}
		c.receiver.SetReply(creds)
		fmt.Fprintf(c.out, "Receiver hands out %s\n", creds)

	case "log":
		for i, m := range c.receiver.Received() {
			fmt.Fprintf(c.out, "  %d. mac=%s main=%v voltage=%.2f setup-mode=%v\n",
				i+1, m.DeviceID, m.Main, m.Voltage, m.Provisioning)
		}

	default:
		fmt.Fprintf(c.out, "Unknown receiver command: %s\n", args[0])
	}
}

func (c *Console) cmdStatus() {
	hw := c.bench.Hardware()

	fmt.Fprintln(c.out, "Device Status:")
	fmt.Fprintf(c.out, "  Power:     %s\n", onOff(hw.Powered()))
	fmt.Fprintf(c.out, "  Cycles:    %d\n", c.bench.Cycles())
	fmt.Fprintf(c.out, "  LED:       %s\n", ledColour(hw))

	ctrl := c.bench.Controller()
	if ctrl == nil {
		fmt.Fprintln(c.out, "  (never woken)")
		return
	}
	fmt.Fprintf(c.out, "  Cycle:     %s\n", ctrl.CycleID())
	fmt.Fprintf(c.out, "  Mode:      %s\n", ctrl.Mode())
	fmt.Fprintf(c.out, "  Session:   %s\n", ctrl.SessionState())
	fmt.Fprintf(c.out, "  Pending:   %v\n", ctrl.Pending())
	fmt.Fprintf(c.out, "  Indicator: %s\n", ctrl.Indicator())
	if ctrl.Asleep() {
		fmt.Fprintf(c.out, "  Slept:     %s\n", ctrl.SleepReason())
	} else {
		fmt.Fprintf(c.out, "  Ceiling:   %v left\n", ctrl.Remaining().Round(time.Second))
	}
	if err := c.bench.LastErr(); err != nil && !c.bench.Awake() {
		fmt.Fprintf(c.out, "  Error:     %v\n", err)
	}
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

func ledColour(hw *sim.Hardware) string {
	var lit []string
	if hw.LEDGreen.Level() {
		lit = append(lit, "green")
	}
	if hw.LEDRed.Level() {
		lit = append(lit, "red")
	}
	if hw.LEDBlue.Level() {
		lit = append(lit, "blue")
	}
	if len(lit) == 0 {
		return "off"
	}
	return strings.Join(lit, "+")
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
Pizza Button Simulator Commands:
  Buttons:
    press [dur]        - Press the trigger (default 300ms); wakes the device
    hold / release     - Hold or release the trigger
    reset [dur]        - Hold the factory reset button (default 6s)

  Environment:
    wifi               - Show radio state
    wifi <delay>       - Set the association delay, e.g. 3s
    wifi never         - Make the network unreachable
    wifi drop          - Drop the current link
    wifi network <name> [secret] - Only join this network
    voltage <volts>    - Set the battery voltage

  Receiver:
    receiver                     - Show receiver state
    receiver status <code>       - Answer reports with this HTTP status
    receiver reply <ssid> [pass] - Hand out credentials in setup mode
    receiver reply clear         - Stop handing out credentials
    receiver log                 - List received reports

  General:
    status             - Show device status
    stop               - Interrupt the running cycle
    help               - Show this help
    quit               - Exit`)
}
