package button

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/clock"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/hal/sim"
)

func TestInputString(t *testing.T) {
	tests := []struct {
		input Input
		want  string
	}{
		{InputMain, "MAIN"},
		{InputReset, "RESET"},
		{InputLeft, "LEFT"},
		{InputRight, "RIGHT"},
		{Input(9), "INPUT(9)"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.input.String())
		})
	}
}

func TestCheckEdge(t *testing.T) {
	clk := clock.NewManual()
	pin := sim.NewPin("main", false)
	m := NewMonitor(clk, 0)
	m.Register(InputMain, pin)

	t.Run("WrongLevel", func(t *testing.T) {
		clk.Advance(2 * time.Second)
		assert.False(t, m.CheckEdge(InputMain, true, DefaultDebounce))
	})

	t.Run("FiresOnLevel", func(t *testing.T) {
		pin.Drive(true)
		assert.True(t, m.CheckEdge(InputMain, true, DefaultDebounce))
	})

	t.Run("SuppressedInsideWindow", func(t *testing.T) {
		clk.Advance(999 * time.Millisecond)
		assert.False(t, m.CheckEdge(InputMain, true, DefaultDebounce))
	})

	t.Run("FiresAgainAfterWindow", func(t *testing.T) {
		clk.Advance(time.Millisecond)
		assert.True(t, m.CheckEdge(InputMain, true, DefaultDebounce))
	})

	t.Run("SuppressedAttemptDoesNotRestamp", func(t *testing.T) {
		clk.Advance(500 * time.Millisecond)
		assert.False(t, m.CheckEdge(InputMain, true, DefaultDebounce))
		clk.Advance(500 * time.Millisecond)
		assert.True(t, m.CheckEdge(InputMain, true, DefaultDebounce))
	})
}

func TestCheckEdgeCountsFromBoot(t *testing.T) {
	clk := clock.NewManual()
	m := NewMonitor(clk, 0)
	m.Register(InputMain, sim.NewPin("main", true))

	// The press that powered the device is still held on the first ticks.
	clk.Advance(10 * time.Millisecond)
	assert.False(t, m.CheckEdge(InputMain, true, DefaultDebounce))

	clk.Set(DefaultDebounce)
	assert.True(t, m.CheckEdge(InputMain, true, DefaultDebounce))
}

func TestCheckEdgeNeverDoubleFires(t *testing.T) {
	windows := []time.Duration{0, time.Millisecond, 250 * time.Millisecond, time.Second, 5 * time.Second}
	for _, w := range windows {
		t.Run(w.String(), func(t *testing.T) {
			clk := clock.NewManual()
			m := NewMonitor(clk, 0)
			m.Register(InputMain, sim.NewPin("main", true))

			var fired []time.Duration
			for i := 0; i < 2000; i++ {
				if m.CheckEdge(InputMain, true, w) {
					fired = append(fired, clk.Now())
				}
				clk.Advance(7 * time.Millisecond)
			}
			require.NotEmpty(t, fired)
			for i := 1; i < len(fired); i++ {
				assert.GreaterOrEqual(t, fired[i]-fired[i-1], w)
			}
		})
	}
}

func TestInputsIndependent(t *testing.T) {
	clk := clock.NewManual()
	m := NewMonitor(clk, 0)
	m.Register(InputMain, sim.NewPin("main", true))
	m.Register(InputReset, sim.NewPin("reset", false))

	clk.Advance(2 * time.Second)
	assert.True(t, m.CheckEdge(InputMain, true, DefaultDebounce))
	assert.True(t, m.CheckEdge(InputReset, false, DefaultDebounce))

	_, ok := m.LastEdge(InputLeft)
	assert.False(t, ok)
	at, ok := m.LastEdge(InputReset)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, at)
}

func TestReadErrors(t *testing.T) {
	clk := clock.NewManual()
	m := NewMonitor(clk, 0)

	_, err := m.Read(InputMain)
	assert.ErrorIs(t, err, ErrUnknownInput)

	pin := sim.NewPin("main", true)
	pin.Fail(true)
	m.Register(InputMain, pin)
	clk.Advance(time.Hour)

	assert.False(t, m.CheckEdge(InputMain, true, 0))
	assert.False(t, m.CheckEdge(InputMain, false, 0))
}
