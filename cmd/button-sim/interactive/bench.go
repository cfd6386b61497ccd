package interactive

import (
	"context"
	"errors"
	"sync"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/controller"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/hal/sim"
)

// ErrAwake is returned by Wake while a cycle is running.
var ErrAwake = errors.New("device already awake")

// Factory builds the controller for one wake cycle.
type Factory func() (*controller.Controller, error)

// Bench owns the simulated hardware and runs one wake cycle at a time, the
// way pressing the physical button powers the board.
type Bench struct {
	hw      *sim.Hardware
	factory Factory

	mu       sync.Mutex
	ctrl     *controller.Controller
	cancel   context.CancelFunc
	done     chan struct{}
	cycles   int
	lastErr  error
	onFinish func(ctrl *controller.Controller, err error)
}

// NewBench creates a bench for hw.
func NewBench(hw *sim.Hardware, factory Factory) *Bench {
	return &Bench{hw: hw, factory: factory}
}

// Hardware returns the simulated hardware.
func (b *Bench) Hardware() *sim.Hardware {
	return b.hw
}

// OnFinish sets a callback invoked after every cycle.
func (b *Bench) OnFinish(fn func(ctrl *controller.Controller, err error)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onFinish = fn
}

// Wake starts a wake cycle.
func (b *Bench) Wake() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.done != nil {
		return ErrAwake
	}
	ctrl, err := b.factory()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	b.ctrl = ctrl
	b.cancel = cancel
	b.done = done
	b.cycles++

	go func() {
		err := ctrl.Run(ctx)

		b.mu.Lock()
		b.lastErr = err
		b.done = nil
		b.cancel = nil
		fn := b.onFinish
		b.mu.Unlock()

		cancel()
		close(done)
		if fn != nil {
			fn(ctrl, err)
		}
	}()
	return nil
}

// Awake returns true while a cycle runs.
func (b *Bench) Awake() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done != nil
}

// Controller returns the controller of the current or last cycle.
func (b *Bench) Controller() *controller.Controller {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.ctrl
}

// Cycles returns how many cycles were started.
func (b *Bench) Cycles() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cycles
}

// LastErr returns the error of the last finished cycle.
func (b *Bench) LastErr() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Wait blocks until the running cycle, if any, finishes.
func (b *Bench) Wait() {
	b.mu.Lock()
	done := b.done
	b.mu.Unlock()
	if done != nil {
		<-done
	}
}

// Stop interrupts the running cycle and waits for it to sleep.
func (b *Bench) Stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}
