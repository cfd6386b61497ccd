package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/diag"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/discovery"
)

// Environment variable names.
const (
	EnvLogLevel    = "BUTTON_LOG_LEVEL"
	EnvAppEnv      = "BUTTON_APP_ENV"
	EnvCredentials = "BUTTON_CREDENTIALS"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Duration is a time.Duration written as a string in YAML.
type Duration time.Duration

// UnmarshalYAML parses a duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML writes the duration string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the full device configuration.
type Config struct {
	Env      string `yaml:"env"`
	LogLevel string `yaml:"log_level"`

	Credentials string `yaml:"credentials"`
	Trace       string `yaml:"trace"`

	GPIO      GPIO      `yaml:"gpio"`
	Network   Network   `yaml:"network"`
	Supply    Supply    `yaml:"supply"`
	Timing    Timing    `yaml:"timing"`
	Discovery Discovery `yaml:"discovery"`
	Update    Update    `yaml:"update"`
	Diag      Diag      `yaml:"diag"`
}

// GPIO maps logical lines to offsets on a character-device chip.
type GPIO struct {
	Chip     string `yaml:"chip"`
	Hold     int    `yaml:"hold"`
	LEDGreen int    `yaml:"led_green"`
	LEDRed   int    `yaml:"led_red"`
	LEDBlue  int    `yaml:"led_blue"`
	Main     int    `yaml:"main"`
	Reset    int    `yaml:"reset"`
}

// Network configures the Wi-Fi radio.
type Network struct {
	Interface   string `yaml:"interface"`
	AccessPoint string `yaml:"access_point"`
}

// Supply configures the battery voltage sensor.
type Supply struct {
	// Path is the IIO raw reading.
	Path string `yaml:"path"`

	// Scale converts raw counts to volts.
	Scale float64 `yaml:"scale"`
}

// Timing holds every loop timing.
type Timing struct {
	Tick              Duration `yaml:"tick"`
	Debounce          Duration `yaml:"debounce"`
	ConnectTimeout    Duration `yaml:"connect_timeout"`
	DeliveryInterval  Duration `yaml:"delivery_interval"`
	DeliveryDeadline  Duration `yaml:"delivery_deadline"`
	DiscoveryWindow   Duration `yaml:"discovery_window"`
	PostTimeout       Duration `yaml:"post_timeout"`
	Inactivity        Duration `yaml:"inactivity"`
	Ceiling           Duration `yaml:"ceiling"`
	QuietNormal       Duration `yaml:"quiet_normal"`
	QuietProvisioning Duration `yaml:"quiet_provisioning"`
	PowerLatency      Duration `yaml:"power_latency"`
	ResetHold         Duration `yaml:"reset_hold"`
}

// Discovery configures receiver lookup.
type Discovery struct {
	Service   string `yaml:"service"`
	Interface string `yaml:"interface"`
}

// Update configures the update announcement.
type Update struct {
	Enabled bool   `yaml:"enabled"`
	Port    uint16 `yaml:"port"`
}

// Diag configures the diagnostic log sinks.
type Diag struct {
	// TCPAddr is the log server address. Empty disables it.
	TCPAddr string `yaml:"tcp_addr"`

	// MinTag is the lowest tag offered to sinks.
	MinTag string `yaml:"min_tag"`

	MQTT MQTT `yaml:"mqtt"`
}

// MQTT configures the MQTT log sink. An empty broker disables it.
type MQTT struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
	Topic    string `yaml:"topic"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Env:         diag.EnvProd,
		LogLevel:    "info",
		Credentials: "/var/lib/pizza-button/credentials.json",
		Trace:       "/var/lib/pizza-button/cycles.blog",
		GPIO: GPIO{
			Chip:     "gpiochip0",
			Hold:     17,
			LEDGreen: 22,
			LEDRed:   23,
			LEDBlue:  24,
			Main:     27,
			Reset:    5,
		},
		Network: Network{
			Interface:   "wlan0",
			AccessPoint: "PIZZA BUTTON WIFI",
		},
		Supply: Supply{
			Path:  "/sys/bus/iio/devices/iio:device0/in_voltage0_raw",
			Scale: 0.001,
		},
		Timing: Timing{
			Tick:              Duration(10 * time.Millisecond),
			Debounce:          Duration(time.Second),
			ConnectTimeout:    Duration(60 * time.Second),
			DeliveryInterval:  Duration(1500 * time.Millisecond),
			DeliveryDeadline:  Duration(180 * time.Second),
			DiscoveryWindow:   Duration(discovery.DefaultWindow),
			PostTimeout:       Duration(5 * time.Second),
			Inactivity:        Duration(180 * time.Second),
			Ceiling:           Duration(10 * time.Minute),
			QuietNormal:       Duration(60 * time.Second),
			QuietProvisioning: Duration(10 * time.Second),
			PowerLatency:      Duration(15 * time.Second),
			ResetHold:         Duration(5 * time.Second),
		},
		Discovery: Discovery{
			Service: discovery.ServiceTypeReceiver,
		},
		Update: Update{
			Enabled: true,
			Port:    discovery.DefaultUpdatePort,
		},
		Diag: Diag{
			TCPAddr: diag.DefaultLogAddr,
			MinTag:  diag.TagData.String(),
			MQTT: MQTT{
				ClientID: diag.DefaultMQTTClientID,
				Topic:    diag.DefaultMQTTTopic,
			},
		},
	}
}

// LoadError describes a configuration file that could not be used.
type LoadError struct {
	// File is the path to the file that failed to load.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *LoadError) Error() string {
	if e.Cause != nil {
		return e.File + ": " + e.Message + ": " + e.Cause.Error()
	}
	return e.File + ": " + e.Message
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Parse decodes YAML over the defaults.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads path over the defaults, applies the environment and validates.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, &LoadError{File: path, Message: "failed to read file", Cause: err}
		}
		cfg, err = Parse(data)
		if err != nil {
			return Config{}, &LoadError{File: path, Message: "failed to parse YAML", Cause: err}
		}
	}

	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvLogLevel); ok && strings.TrimSpace(v) != "" {
		if _, err := diag.ParseLevel(v); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalid, EnvLogLevel, err)
		}
		c.LogLevel = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvAppEnv); ok && strings.TrimSpace(v) != "" {
		c.Env = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvCredentials); ok && strings.TrimSpace(v) != "" {
		c.Credentials = strings.TrimSpace(v)
	}
	return nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}

	switch c.Env {
	case diag.EnvDev, diag.EnvProd:
	default:
		fail("env %q (allowed: dev, prod)", c.Env)
	}
	if _, err := diag.ParseLevel(c.LogLevel); err != nil {
		fail("log_level: %v", err)
	}
	if c.Credentials == "" {
		fail("credentials path is empty")
	}
	if _, ok := diag.ParseTag(c.Diag.MinTag); !ok {
		fail("diag.min_tag %q", c.Diag.MinTag)
	}
	if err := discovery.ValidateServiceType(c.Discovery.Service); err != nil {
		fail("discovery.service: %v", err)
	}
	if c.Network.AccessPoint == "" {
		fail("network.access_point is empty")
	}
	if c.Supply.Scale <= 0 {
		fail("supply.scale must be positive, got %v", c.Supply.Scale)
	}

	lines := map[string]int{
		"hold":      c.GPIO.Hold,
		"led_green": c.GPIO.LEDGreen,
		"led_red":   c.GPIO.LEDRed,
		"led_blue":  c.GPIO.LEDBlue,
		"main":      c.GPIO.Main,
		"reset":     c.GPIO.Reset,
	}
	seen := make(map[int]string, len(lines))
	for _, name := range []string{"hold", "led_green", "led_red", "led_blue", "main", "reset"} {
		offset := lines[name]
		if offset < 0 {
			fail("gpio.%s offset %d", name, offset)
			continue
		}
		if other, dup := seen[offset]; dup {
			fail("gpio.%s shares offset %d with gpio.%s", name, offset, other)
			continue
		}
		seen[offset] = name
	}

	timings := []struct {
		name string
		d    Duration
	}{
		{"tick", c.Timing.Tick},
		{"debounce", c.Timing.Debounce},
		{"connect_timeout", c.Timing.ConnectTimeout},
		{"delivery_interval", c.Timing.DeliveryInterval},
		{"delivery_deadline", c.Timing.DeliveryDeadline},
		{"discovery_window", c.Timing.DiscoveryWindow},
		{"post_timeout", c.Timing.PostTimeout},
		{"inactivity", c.Timing.Inactivity},
		{"ceiling", c.Timing.Ceiling},
		{"reset_hold", c.Timing.ResetHold},
	}
	for _, t := range timings {
		if t.d <= 0 {
			fail("timing.%s must be positive, got %v", t.name, t.d.Std())
		}
	}
	if c.Timing.QuietNormal < 0 || c.Timing.QuietProvisioning < 0 || c.Timing.PowerLatency < 0 {
		fail("timing quiet periods and power_latency must not be negative")
	}
	if c.Timing.DiscoveryWindow.Std() > discovery.MaxWindow {
		fail("timing.discovery_window %v exceeds %v", c.Timing.DiscoveryWindow.Std(), discovery.MaxWindow)
	}
	if c.Timing.Ceiling < c.Timing.Inactivity {
		fail("timing.ceiling %v is shorter than timing.inactivity %v", c.Timing.Ceiling.Std(), c.Timing.Inactivity.Std())
	}

	return errors.Join(errs...)
}

// SlogLevel returns the parsed log level.
func (c *Config) SlogLevel() slog.Level {
	level, _ := diag.ParseLevel(c.LogLevel)
	return level
}

// DiagMinTag returns the parsed sink threshold, DATA when unset.
func (c *Config) DiagMinTag() diag.Tag {
	if tag, ok := diag.ParseTag(c.Diag.MinTag); ok {
		return tag
	}
	return diag.TagData
}

// String renders the configuration as YAML.
func (c *Config) String() string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "config: " + strconv.Quote(err.Error())
	}
	return string(data)
}
