package host

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/hal"
)

// Runner executes a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// ExecRunner runs commands with os/exec.
func ExecRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// AccessPointConnection is the NetworkManager profile used for the
// provisioning access point.
const AccessPointConnection = "pizza-button-ap"

// RadioConfig configures an NMRadio.
type RadioConfig struct {
	// Interface is the wireless interface name.
	Interface string

	// SysfsRoot defaults to /sys/class/net.
	SysfsRoot string

	// JoinTimeout bounds one nmcli connect. The session manager applies
	// its own, usually shorter, timeout.
	JoinTimeout time.Duration

	Run    Runner
	Logger *slog.Logger
}

// NMRadio is a hal.Radio backed by nmcli.
type NMRadio struct {
	config RadioConfig

	mu      sync.Mutex
	cancel  context.CancelFunc
	joined  bool
	joinErr error
	joinGen int
	wg      sync.WaitGroup
}

// NewRadio creates a radio for config.Interface.
func NewRadio(config RadioConfig) *NMRadio {
	if config.SysfsRoot == "" {
		config.SysfsRoot = "/sys/class/net"
	}
	if config.JoinTimeout <= 0 {
		config.JoinTimeout = 90 * time.Second
	}
	if config.Run == nil {
		config.Run = ExecRunner
	}
	return &NMRadio{config: config}
}

// Join starts an nmcli connect in the background.
func (r *NMRadio) Join(name, secret string) error {
	if name == "" {
		return fmt.Errorf("%w: empty network name", hal.ErrNotAvailable)
	}

	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.config.JoinTimeout)
	r.cancel = cancel
	r.joined = false
	r.joinErr = nil
	r.joinGen++
	gen := r.joinGen
	r.mu.Unlock()

	args := []string{"--wait", "0", "device", "wifi", "connect", name}
	if secret != "" {
		args = append(args, "password", secret)
	}
	args = append(args, "ifname", r.config.Interface)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		out, err := r.config.Run(ctx, "nmcli", args...)

		r.mu.Lock()
		defer r.mu.Unlock()
		if gen != r.joinGen {
			return
		}
		if err != nil {
			r.joinErr = fmt.Errorf("nmcli connect: %w: %s", err, strings.TrimSpace(string(out)))
			r.debugLog("join failed", "network", name, "error", r.joinErr)
			return
		}
		r.joined = true
	}()
	return nil
}

// Associated reports a completed join on an interface that is up.
func (r *NMRadio) Associated() bool {
	r.mu.Lock()
	joined := r.joined
	r.mu.Unlock()
	if !joined {
		return false
	}
	return r.operstate() == "up"
}

// JoinErr returns the error of the last join, if it finished with one.
func (r *NMRadio) JoinErr() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joinErr
}

// Disconnect cancels a pending join and drops the link.
func (r *NMRadio) Disconnect() error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.joined = false
	r.joinGen++
	r.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if out, err := r.config.Run(ctx, "nmcli", "device", "disconnect", r.config.Interface); err != nil {
		return fmt.Errorf("nmcli disconnect: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// StartAccessPoint brings up an open access point with a shared IPv4
// network so phones can reach the device.
func (r *NMRadio) StartAccessPoint(name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	// A stale profile from an earlier cycle may exist.
	_, _ = r.config.Run(ctx, "nmcli", "connection", "delete", AccessPointConnection)

	steps := [][]string{
		{"connection", "add", "type", "wifi", "ifname", r.config.Interface,
			"con-name", AccessPointConnection, "autoconnect", "no", "ssid", name,
			"802-11-wireless.mode", "ap", "ipv4.method", "shared"},
		{"connection", "up", AccessPointConnection},
	}
	for _, args := range steps {
		if out, err := r.config.Run(ctx, "nmcli", args...); err != nil {
			return fmt.Errorf("nmcli %s: %w: %s", args[1], err, strings.TrimSpace(string(out)))
		}
	}
	return nil
}

// HardwareAddr returns the interface MAC in upper-case colon notation.
func (r *NMRadio) HardwareAddr() string {
	if data, err := os.ReadFile(filepath.Join(r.config.SysfsRoot, r.config.Interface, "address")); err == nil {
		return strings.ToUpper(strings.TrimSpace(string(data)))
	}
	iface, err := net.InterfaceByName(r.config.Interface)
	if err != nil {
		return ""
	}
	return strings.ToUpper(iface.HardwareAddr.String())
}

// Close cancels background work and waits for it.
func (r *NMRadio) Close() error {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()
	r.wg.Wait()
	return nil
}

func (r *NMRadio) operstate() string {
	data, err := os.ReadFile(filepath.Join(r.config.SysfsRoot, r.config.Interface, "operstate"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func (r *NMRadio) debugLog(msg string, args ...any) {
	if r.config.Logger != nil {
		r.config.Logger.Debug(msg, args...)
	}
}

var _ hal.Radio = (*NMRadio)(nil)
