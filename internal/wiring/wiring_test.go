package wiring

import (
	"bytes"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/config"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/controller"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/diag"
	buttonlog "github.com/TheLastGimbus/ESP-PizzaButton/pkg/log"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/version"
)

func TestControllerConfigMatchesDefaults(t *testing.T) {
	got := ControllerConfig(config.Default(), nil)
	want := controller.DefaultConfig()
	assert.Equal(t, want, got)
}

func TestControllerConfigOverrides(t *testing.T) {
	cfg := config.Default()
	cfg.Timing.Inactivity = config.Duration(30 * time.Second)
	cfg.Timing.QuietNormal = config.Duration(0)
	cfg.Network.AccessPoint = "SETUP ME"
	cfg.Discovery.Service = "_pizza-test._tcp"

	got := ControllerConfig(cfg, slog.Default())
	assert.Equal(t, 30*time.Second, got.Inactivity)
	assert.Zero(t, got.QuietNormal)
	assert.Equal(t, "SETUP ME", got.AccessPoint)
	assert.Equal(t, "_pizza-test._tcp", got.Service)
	assert.Equal(t, version.Firmware, got.Firmware)
	assert.NotNil(t, got.Logger)
}

func TestLogOptions(t *testing.T) {
	cfg := config.Default()
	cfg.LogLevel = "debug"
	opts := LogOptions(cfg, "button-sim")
	assert.Equal(t, slog.LevelDebug, opts.Level)
	assert.Equal(t, "button-sim", opts.App)
	assert.Equal(t, version.Firmware, opts.Version)
}

func TestNewSinks(t *testing.T) {
	t.Run("none", func(t *testing.T) {
		s, err := NewSinks(config.Diag{}, nil)
		require.NoError(t, err)
		assert.Empty(t, s.List())
		assert.NoError(t, s.Start())
	})

	t.Run("tcp", func(t *testing.T) {
		s, err := NewSinks(config.Diag{TCPAddr: "127.0.0.1:0"}, nil)
		require.NoError(t, err)
		require.Len(t, s.List(), 1)
		require.NoError(t, s.Start())
		assert.NotNil(t, s.TCP.Addr())
		assert.NoError(t, s.TCP.Close())
	})

	t.Run("mqtt", func(t *testing.T) {
		s, err := NewSinks(config.Diag{MQTT: config.MQTT{Broker: "tcp://127.0.0.1:1883"}}, nil)
		require.NoError(t, err)
		require.NotNil(t, s.MQTT)
		assert.Len(t, s.List(), 1)
	})

	t.Run("bad tcp address is dropped", func(t *testing.T) {
		s, err := NewSinks(config.Diag{TCPAddr: "256.0.0.1:-1"}, nil)
		require.NoError(t, err)
		assert.Error(t, s.Start())
		assert.Nil(t, s.TCP)
		assert.Empty(t, s.List())
	})
}

func TestTraceWritesFileAndLog(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	path := filepath.Join(t.TempDir(), "cycles.blog")

	trace, closer, err := Trace(path, logger)
	require.NoError(t, err)

	trace.Log(buttonlog.Event{
		Timestamp:   time.Now(),
		CycleID:     "cycle-1",
		Component:   buttonlog.ComponentPower,
		Category:    buttonlog.CategoryState,
		StateChange: &buttonlog.StateChangeEvent{NewState: "ASLEEP"},
	})
	require.NoError(t, closer.Close())

	assert.Contains(t, buf.String(), "cycle-1")

	reader, err := buttonlog.NewReader(path)
	require.NoError(t, err)
	defer reader.Close()
	ev, err := reader.Next()
	require.NoError(t, err)
	assert.Equal(t, "ASLEEP", ev.StateChange.NewState)
}

func TestTraceWithoutFile(t *testing.T) {
	trace, closer, err := Trace("", slog.New(diag.NewHandler(slog.NewTextHandler(&bytes.Buffer{}, nil), diag.TagData)))
	require.NoError(t, err)
	assert.NotNil(t, trace)
	assert.NoError(t, closer.Close())
}
