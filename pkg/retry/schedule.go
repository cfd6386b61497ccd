package retry

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/clock"
)

// Defaults for re-announcing a service.
const (
	DefaultInitial = 1 * time.Second
	DefaultMax     = 30 * time.Second
	DefaultJitter  = 0.25
)

// Config shapes the delays of a Schedule. Each failure doubles the delay
// from Initial up to Max. Jitter adds up to that fraction of the delay at
// random; zero disables it.
type Config struct {
	Initial time.Duration
	Max     time.Duration
	Jitter  float64
}

func DefaultConfig() Config {
	return Config{Initial: DefaultInitial, Max: DefaultMax, Jitter: DefaultJitter}
}

// Delay returns the delay after the n-th consecutive failure (n >= 1),
// without jitter.
func (c Config) Delay(n int) time.Duration {
	d := c.Initial
	for i := 1; i < n && d < c.Max; i++ {
		d *= 2
	}
	return min(d, c.Max)
}

// Schedule tracks when the next attempt is due on a clock. A fresh
// Schedule is due immediately.
type Schedule struct {
	mu       sync.Mutex
	clk      clock.Clock
	cfg      Config
	failures int
	nextAt   time.Duration
	jitter   func() float64
}

// NewSchedule creates a schedule that is due now.
func NewSchedule(clk clock.Clock, cfg Config) *Schedule {
	if cfg.Initial <= 0 {
		cfg.Initial = DefaultInitial
	}
	if cfg.Max <= 0 {
		cfg.Max = DefaultMax
	}
	if cfg.Max < cfg.Initial {
		cfg.Max = cfg.Initial
	}
	cfg.Jitter = max(cfg.Jitter, 0)
	return &Schedule{clk: clk, cfg: cfg, nextAt: clk.Now(), jitter: rand.Float64}
}

// Due reports whether the next attempt may run.
func (s *Schedule) Due() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clk.Now() >= s.nextAt
}

// Failed records a failed attempt and pushes the next one out. It returns
// the delay chosen.
func (s *Schedule) Failed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures++
	d := s.cfg.Delay(s.failures)
	if s.cfg.Jitter > 0 {
		d += time.Duration(float64(d) * s.cfg.Jitter * s.jitter())
	}
	s.nextAt = s.clk.Now() + d
	return d
}

// Succeeded forgets earlier failures. The schedule stays due.
func (s *Schedule) Succeeded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = 0
	s.nextAt = s.clk.Now()
}

// Attempts returns the failures recorded since the last success.
func (s *Schedule) Attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures
}
