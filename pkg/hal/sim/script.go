package sim

import (
	"sort"
	"sync"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/clock"
)

// Step is one scripted level change.
type Step struct {
	At    time.Duration
	Level bool
}

// Script applies level changes to an input pin as a manual clock advances.
type Script struct {
	mu    sync.Mutex
	pin   *Pin
	steps []Step
}

// NewScript attaches steps to pin. Steps whose time has already passed are
// applied on the next clock advance.
func NewScript(clk *clock.Manual, pin *Pin, steps ...Step) *Script {
	sorted := append([]Step(nil), steps...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })

	s := &Script{pin: pin, steps: sorted}
	clk.OnAdvance(s.apply)
	return s
}

// Pending returns the number of steps not applied yet.
func (s *Script) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.steps)
}

func (s *Script) apply(now time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.steps) > 0 && s.steps[0].At <= now {
		s.pin.force(s.steps[0].Level)
		s.steps = s.steps[1:]
	}
}
