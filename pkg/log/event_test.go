package log

import (
	"testing"
	"time"
)

func TestEventRoundTripStateChange(t *testing.T) {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	event := Event{
		Timestamp: ts,
		CycleID:   "c0ffee00-0000-4000-8000-000000000001",
		Uptime:    2500 * time.Millisecond,
		Component: ComponentSession,
		Category:  CategoryState,
		Mode:      ModeNormal,
		DeviceID:  "5C:CF:7F:00:BE:EF",
		StateChange: &StateChangeEvent{
			OldState: "CONNECTING",
			NewState: "CONNECTED",
			Reason:   "associated",
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}

	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp: got %v, want %v", got.Timestamp, ts)
	}
	if got.CycleID != event.CycleID {
		t.Errorf("CycleID: got %q, want %q", got.CycleID, event.CycleID)
	}
	if got.Uptime != event.Uptime {
		t.Errorf("Uptime: got %v, want %v", got.Uptime, event.Uptime)
	}
	if got.Component != ComponentSession || got.Category != CategoryState || got.Mode != ModeNormal {
		t.Errorf("classification mismatch: %v %v %v", got.Component, got.Category, got.Mode)
	}
	if got.StateChange == nil || got.StateChange.NewState != "CONNECTED" || got.StateChange.Reason != "associated" {
		t.Fatalf("StateChange mismatch: %+v", got.StateChange)
	}
	if got.Input != nil || got.Attempt != nil || got.Error != nil {
		t.Error("unexpected payloads decoded")
	}
}

func TestEventRoundTripAttempt(t *testing.T) {
	event := Event{
		Timestamp: time.Now(),
		Component: ComponentDelivery,
		Category:  CategoryAttempt,
		Attempt: &AttemptEvent{
			Endpoint: "192.168.4.2:8080",
			Instance: "kitchen",
			Status:   503,
			Error:    "unexpected status",
			Age:      3 * time.Second,
		},
	}

	data, err := EncodeEvent(event)
	if err != nil {
		t.Fatalf("EncodeEvent failed: %v", err)
	}
	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatalf("DecodeEvent failed: %v", err)
	}
	if got.Attempt == nil {
		t.Fatal("Attempt payload missing")
	}
	if *got.Attempt != *event.Attempt {
		t.Errorf("Attempt: got %+v, want %+v", *got.Attempt, *event.Attempt)
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte{0xff, 0x00, 0x13}); err == nil {
		t.Error("expected error decoding garbage")
	}
}

func TestAttemptSucceeded(t *testing.T) {
	tests := []struct {
		name    string
		attempt AttemptEvent
		want    bool
	}{
		{"ok", AttemptEvent{Status: 200}, true},
		{"created", AttemptEvent{Status: 201}, true},
		{"redirect", AttemptEvent{Status: 302}, false},
		{"server error", AttemptEvent{Status: 500}, false},
		{"transport error", AttemptEvent{Error: "refused"}, false},
		{"no status", AttemptEvent{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.attempt.Succeeded(); got != tt.want {
				t.Errorf("Succeeded() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEnumStrings(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{ComponentController.String(), "CONTROLLER"},
		{ComponentPower.String(), "POWER"},
		{ComponentButton.String(), "BUTTON"},
		{ComponentSession.String(), "SESSION"},
		{ComponentDelivery.String(), "DELIVERY"},
		{ComponentReset.String(), "RESET"},
		{ComponentCredentials.String(), "CREDENTIALS"},
		{Component(99).String(), "UNKNOWN"},
		{CategoryState.String(), "STATE"},
		{CategoryInput.String(), "INPUT"},
		{CategoryAttempt.String(), "ATTEMPT"},
		{CategoryError.String(), "ERROR"},
		{Category(42).String(), "UNKNOWN"},
		{ModeNormal.String(), "NORMAL"},
		{ModeProvisioning.String(), "PROVISIONING"},
		{Mode(7).String(), "UNKNOWN"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}
