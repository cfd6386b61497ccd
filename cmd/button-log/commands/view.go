// Package commands implements the button-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/log"
)

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	// Header line: timestamp [cycle:id] +uptime COMPONENT Type
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	cycleID := shortenCycleID(event.CycleID)

	var typeLabel string
	switch {
	case event.StateChange != nil:
		typeLabel = "State"
	case event.Input != nil:
		typeLabel = "Input"
	case event.Attempt != nil:
		typeLabel = "Attempt"
	case event.Error != nil:
		typeLabel = "Error"
	default:
		typeLabel = "Unknown"
	}

	fmt.Fprintf(w, "%s [cycle:%s] +%s %s %s", ts, cycleID, formatDuration(event.Uptime), event.Component, typeLabel)
	if event.Mode != log.ModeUnknown {
		fmt.Fprintf(w, " (%s)", event.Mode)
	}
	fmt.Fprintln(w)

	switch {
	case event.StateChange != nil:
		formatStateChangeDetails(w, event.StateChange)
	case event.Input != nil:
		fmt.Fprintf(w, "  %s level=%s\n", event.Input.Input, levelName(event.Input.Level))
	case event.Attempt != nil:
		formatAttemptDetails(w, event.Attempt)
	case event.Error != nil:
		formatErrorDetails(w, event.Error)
	}

	fmt.Fprintln(w)
}

// shortenCycleID returns the first 8 characters of the cycle ID.
func shortenCycleID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

func levelName(high bool) string {
	if high {
		return "HIGH"
	}
	return "LOW"
}

// formatStateChangeDetails writes state change details.
func formatStateChangeDetails(w io.Writer, sc *log.StateChangeEvent) {
	if sc.OldState != "" {
		fmt.Fprintf(w, "  %s -> %s\n", sc.OldState, sc.NewState)
	} else {
		fmt.Fprintf(w, "  -> %s\n", sc.NewState)
	}
	if sc.Reason != "" {
		fmt.Fprintf(w, "  Reason: %s\n", sc.Reason)
	}
}

func formatAttemptDetails(w io.Writer, a *log.AttemptEvent) {
	fmt.Fprintf(w, "  Endpoint: %s", a.Endpoint)
	if a.Instance != "" {
		fmt.Fprintf(w, " (%s)", a.Instance)
	}
	fmt.Fprintln(w)
	if a.Status != 0 {
		fmt.Fprintf(w, "  Status: %d\n", a.Status)
	}
	if a.Error != "" {
		fmt.Fprintf(w, "  Error: %s\n", a.Error)
	}
	if a.Age > 0 {
		fmt.Fprintf(w, "  Pending: %s\n", formatDuration(a.Age))
	}
}

// formatErrorDetails writes error details.
func formatErrorDetails(w io.Writer, err *log.ErrorEventData) {
	fmt.Fprintf(w, "  Message: %s\n", err.Message)
	if err.Context != "" {
		fmt.Fprintf(w, "  Context: %s\n", err.Context)
	}
	if err.Recovered {
		fmt.Fprintln(w, "  Recovered: yes")
	}
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1000)
	}
	if d < time.Second {
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
	}
	return fmt.Sprintf("%.3fs", d.Seconds())
}

func parseComponent(s string) (log.Component, error) {
	switch strings.ToLower(s) {
	case "controller":
		return log.ComponentController, nil
	case "power":
		return log.ComponentPower, nil
	case "button":
		return log.ComponentButton, nil
	case "session":
		return log.ComponentSession, nil
	case "delivery":
		return log.ComponentDelivery, nil
	case "reset":
		return log.ComponentReset, nil
	case "credentials":
		return log.ComponentCredentials, nil
	default:
		return 0, fmt.Errorf("invalid component: %s (must be controller, power, button, session, delivery, reset, or credentials)", s)
	}
}

func parseCategory(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "state":
		return log.CategoryState, nil
	case "input":
		return log.CategoryInput, nil
	case "attempt":
		return log.CategoryAttempt, nil
	case "error":
		return log.CategoryError, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be state, input, attempt, or error)", s)
	}
}

func parseMode(s string) (log.Mode, error) {
	switch strings.ToLower(s) {
	case "normal":
		return log.ModeNormal, nil
	case "provisioning", "setup":
		return log.ModeProvisioning, nil
	default:
		return 0, fmt.Errorf("invalid mode: %s (must be normal or provisioning)", s)
	}
}

// RunView prints the events of the trace at path that pass filter.
func RunView(path string, filter log.Filter, output io.Writer) error {
	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer reader.Close()

	_, err = forEach(reader, func(ev log.Event) error {
		formatEvent(output, ev)
		return nil
	})
	if err != nil {
		return err
	}
	if reader.Torn() {
		fmt.Fprintln(output, "-- trace ends inside an event --")
	}
	return nil
}
