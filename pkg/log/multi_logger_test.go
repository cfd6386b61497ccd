package log

import (
	"sync"
	"testing"
)

type recordingLogger struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingLogger) Log(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingLogger) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func TestMultiLoggerFansOut(t *testing.T) {
	a, b := &recordingLogger{}, &recordingLogger{}
	m := NewMultiLogger(a, nil, b)

	m.Log(Event{CycleID: "x"})
	m.Log(Event{CycleID: "y"})

	if a.count() != 2 || b.count() != 2 {
		t.Errorf("fan-out counts = %d, %d; want 2, 2", a.count(), b.count())
	}
	if a.events[1].CycleID != "y" {
		t.Errorf("order not preserved: %+v", a.events)
	}
}

func TestMultiLoggerEmpty(t *testing.T) {
	m := NewMultiLogger()
	m.Log(Event{})
}

func TestNoopLogger(t *testing.T) {
	var l Logger = NoopLogger{}
	l.Log(Event{CycleID: "ignored"})
}

func TestLoggerFunc(t *testing.T) {
	var got []string
	m := NewMultiLogger(LoggerFunc(func(e Event) { got = append(got, e.CycleID) }), NoopLogger{})
	m.Log(Event{CycleID: "a"})
	if len(m) != 2 || len(got) != 1 || got[0] != "a" {
		t.Errorf("len(m) = %d, got = %v", len(m), got)
	}
}
