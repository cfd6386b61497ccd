package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/log"
)

func TestFormatStateEvent(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	event := log.Event{
		Timestamp: ts,
		CycleID:   "abc12345-6789-0123-4567-890abcdef012",
		Uptime:    1500 * time.Millisecond,
		Component: log.ComponentSession,
		Category:  log.CategoryState,
		Mode:      log.ModeNormal,
		StateChange: &log.StateChangeEvent{
			OldState: "CONNECTING",
			NewState: "CONNECTED",
			Reason:   "associated",
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{
		"2026-01-28T10:15:32.123456Z",
		"[cycle:abc12345]",
		"+1.500s",
		"SESSION State (NORMAL)",
		"CONNECTING -> CONNECTED",
		"Reason: associated",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatAttemptEvent(t *testing.T) {
	event := log.Event{
		CycleID:   "short",
		Component: log.ComponentDelivery,
		Category:  log.CategoryAttempt,
		Attempt: &log.AttemptEvent{
			Endpoint: "10.0.0.2:80",
			Instance: "kitchen",
			Status:   503,
			Error:    "delivery: unexpected status: 503",
			Age:      250 * time.Millisecond,
		},
	}

	var buf bytes.Buffer
	formatEvent(&buf, event)
	output := buf.String()

	for _, want := range []string{
		"[cycle:short]",
		"DELIVERY Attempt",
		"Endpoint: 10.0.0.2:80 (kitchen)",
		"Status: 503",
		"Error: delivery: unexpected status: 503",
		"Pending: 250.000ms",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
	if strings.Contains(output, "(UNKNOWN)") {
		t.Errorf("unknown mode should not be printed: %s", output)
	}
}

func TestFormatInputAndErrorEvents(t *testing.T) {
	var buf bytes.Buffer
	formatEvent(&buf, log.Event{
		Component: log.ComponentButton,
		Category:  log.CategoryInput,
		Input:     &log.InputEvent{Input: "RESET", Level: false},
	})
	formatEvent(&buf, log.Event{
		Component: log.ComponentCredentials,
		Category:  log.CategoryError,
		Error:     &log.ErrorEventData{Message: "credentials: missing", Context: "load", Recovered: true},
	})
	output := buf.String()

	for _, want := range []string{
		"BUTTON Input",
		"RESET level=LOW",
		"CREDENTIALS Error",
		"Message: credentials: missing",
		"Context: load",
		"Recovered: yes",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got: %s", want, output)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{500 * time.Microsecond, "500.000us"},
		{15 * time.Millisecond, "15.000ms"},
		{2500 * time.Millisecond, "2.500s"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %s, want %s", tt.d, got, tt.want)
		}
	}
}

func TestParseFlags(t *testing.T) {
	if c, err := parseComponent("Delivery"); err != nil || c != log.ComponentDelivery {
		t.Errorf("parseComponent(Delivery) = %v, %v", c, err)
	}
	if _, err := parseComponent("wire"); err == nil {
		t.Error("expected error for unknown component")
	}
	if c, err := parseCategory("ATTEMPT"); err != nil || c != log.CategoryAttempt {
		t.Errorf("parseCategory(ATTEMPT) = %v, %v", c, err)
	}
	if _, err := parseCategory("message"); err == nil {
		t.Error("expected error for unknown category")
	}
	if m, err := parseMode("setup"); err != nil || m != log.ModeProvisioning {
		t.Errorf("parseMode(setup) = %v, %v", m, err)
	}
	if _, err := parseMode("sleep"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestRunViewFilters(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	path := createTestLogFile(t, sampleCycle(ts))

	cat := log.CategoryAttempt
	var buf bytes.Buffer
	if err := RunView(path, log.Filter{Category: &cat}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	output := buf.String()

	if got := strings.Count(output, "DELIVERY Attempt"); got != 2 {
		t.Errorf("expected 2 attempts, got %d: %s", got, output)
	}
	if strings.Contains(output, "POWER") {
		t.Errorf("filtered view should not include power events: %s", output)
	}

	comp := log.ComponentPower
	buf.Reset()
	if err := RunView(path, log.Filter{Component: &comp}, &buf); err != nil {
		t.Fatalf("RunView failed: %v", err)
	}
	if !strings.Contains(buf.String(), "HELD -> ASLEEP") {
		t.Errorf("expected power transition, got: %s", buf.String())
	}
}

func TestRunViewMissingFile(t *testing.T) {
	var buf bytes.Buffer
	if err := RunView("/nonexistent/trace.blog", log.Filter{}, &buf); err == nil {
		t.Error("expected error for missing file")
	}
}
