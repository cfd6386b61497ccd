package controller

import (
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/button"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/delivery"
	buttonlog "github.com/TheLastGimbus/ESP-PizzaButton/pkg/log"
)

// event fills the fields shared by every trace event. Callers hold c.mu or
// run on the loop goroutine.
func (c *Controller) event(comp buttonlog.Component, cat buttonlog.Category) buttonlog.Event {
	ev := buttonlog.Event{
		Timestamp: time.Now(),
		CycleID:   c.cycleID,
		Component: comp,
		Category:  cat,
		DeviceID:  c.deviceID,
	}
	if c.booted {
		ev.Uptime = c.deps.Clock.Now() - c.boot
		ev.Mode = c.mode.trace()
	}
	return ev
}

func (c *Controller) traceState(comp buttonlog.Component, old, new, reason string) {
	ev := c.event(comp, buttonlog.CategoryState)
	ev.StateChange = &buttonlog.StateChangeEvent{OldState: old, NewState: new, Reason: reason}
	c.trace.Log(ev)
}

func (c *Controller) traceInput(in button.Input, level bool) {
	ev := c.event(buttonlog.ComponentButton, buttonlog.CategoryInput)
	ev.Input = &buttonlog.InputEvent{Input: in.String(), Level: level}
	c.trace.Log(ev)
}

func (c *Controller) traceError(comp buttonlog.Component, context string, err error, recovered bool) {
	if err == nil {
		return
	}
	ev := c.event(comp, buttonlog.CategoryError)
	ev.Error = &buttonlog.ErrorEventData{Message: err.Error(), Context: context, Recovered: recovered}
	c.trace.Log(ev)
}

// traceAttempts records one event per POST of a delivery tick.
func (c *Controller) traceAttempts(res delivery.Result) {
	if len(res.Attempts) == 0 {
		return
	}
	for _, a := range res.Attempts {
		ev := c.event(buttonlog.ComponentDelivery, buttonlog.CategoryAttempt)
		ev.Attempt = &buttonlog.AttemptEvent{
			Endpoint: a.Endpoint.HostPort(),
			Instance: a.Endpoint.Instance,
			Status:   a.Status,
			Age:      res.Age,
		}
		if a.Err != nil {
			ev.Attempt.Error = a.Err.Error()
		}
		c.trace.Log(ev)
	}
}
