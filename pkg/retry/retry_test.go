package retry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/clock"
)

func TestConfigDelay(t *testing.T) {
	cfg := Config{Initial: time.Second, Max: 8 * time.Second}

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 8 * time.Second},
		{500, 8 * time.Second},
	}
	for _, tt := range tests {
		if got := cfg.Delay(tt.failures); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestScheduleDefaults(t *testing.T) {
	s := NewSchedule(clock.NewManual(), Config{})
	assert.Equal(t, DefaultInitial, s.cfg.Initial)
	assert.Equal(t, DefaultMax, s.cfg.Max)

	s = NewSchedule(clock.NewManual(), Config{Initial: 5 * time.Second, Max: time.Second, Jitter: -1})
	assert.Equal(t, 5*time.Second, s.Failed())
	assert.Equal(t, 5*time.Second, s.Failed(), "max is raised to the initial delay")
}

func TestScheduleJitterBounds(t *testing.T) {
	s := NewSchedule(clock.NewManual(), DefaultConfig())
	for i := 1; i <= 20; i++ {
		base := s.cfg.Delay(i)
		d := s.Failed()
		assert.GreaterOrEqual(t, d, base)
		assert.LessOrEqual(t, d, base+time.Duration(float64(base)*DefaultJitter))
	}
}

func TestScheduleFixedJitter(t *testing.T) {
	s := NewSchedule(clock.NewManual(), Config{Initial: time.Second, Max: time.Minute, Jitter: 0.5})
	s.jitter = func() float64 { return 1 }
	assert.Equal(t, 1500*time.Millisecond, s.Failed())
	assert.Equal(t, 3*time.Second, s.Failed())
}

func TestSchedule(t *testing.T) {
	clk := clock.NewManual()
	s := NewSchedule(clk, Config{Initial: time.Second, Max: 4 * time.Second})

	assert.True(t, s.Due(), "fresh schedule is due")

	assert.Equal(t, time.Second, s.Failed())
	assert.False(t, s.Due())
	clk.Advance(time.Second)
	assert.True(t, s.Due())

	assert.Equal(t, 2*time.Second, s.Failed())
	clk.Advance(1500 * time.Millisecond)
	assert.False(t, s.Due())
	clk.Advance(500 * time.Millisecond)
	assert.True(t, s.Due())
	assert.Equal(t, 2, s.Attempts())

	s.Succeeded()
	assert.True(t, s.Due())
	assert.Equal(t, 0, s.Attempts())
	assert.Equal(t, time.Second, s.Failed())
}
