package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/log"
)

// Stats holds aggregate statistics about a trace file.
type Stats struct {
	TotalEvents        int
	EventsByComponent  map[log.Component]int
	EventsByCategory   map[log.Category]int
	Cycles             map[string]*CycleStats
	Attempts           int
	SuccessfulAttempts int
	Errors             int
	// Torn is set when the trace ends inside an event.
	Torn               bool
	TimeRange          struct {
		Start time.Time
		End   time.Time
	}
}

// CycleStats holds statistics for a single wake cycle.
type CycleStats struct {
	FirstSeen  time.Time
	Events     int
	DeviceID   string
	Mode       log.Mode
	Uptime     time.Duration
	Attempts   int
	Delivered  bool
	SleepCause string
}

// RunStats analyzes the trace file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByComponent: make(map[log.Component]int),
		EventsByCategory:  make(map[log.Category]int),
		Cycles:            make(map[string]*CycleStats),
	}

	_, err = forEach(reader, func(ev log.Event) error {
		stats.add(ev)
		return nil
	})
	if err != nil {
		return err
	}
	stats.Torn = reader.Torn()

	printStats(w, stats)
	return nil
}

func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByComponent[event.Component]++
	s.EventsByCategory[event.Category]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	cycle, ok := s.Cycles[event.CycleID]
	if !ok {
		cycle = &CycleStats{FirstSeen: event.Timestamp}
		s.Cycles[event.CycleID] = cycle
	}
	cycle.Events++
	if event.Uptime > cycle.Uptime {
		cycle.Uptime = event.Uptime
	}
	if event.DeviceID != "" && cycle.DeviceID == "" {
		cycle.DeviceID = event.DeviceID
	}
	if event.Mode != log.ModeUnknown {
		cycle.Mode = event.Mode
	}

	if event.Attempt != nil {
		s.Attempts++
		cycle.Attempts++
		if event.Attempt.Succeeded() {
			s.SuccessfulAttempts++
			cycle.Delivered = true
		}
	}
	if event.Component == log.ComponentPower && event.StateChange != nil {
		cycle.SleepCause = event.StateChange.Reason
	}
	if event.Error != nil {
		s.Errors++
	}
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Pizza Button Trace Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Component:")
	for c := log.ComponentController; c <= log.ComponentCredentials; c++ {
		if count := stats.EventsByComponent[c]; count > 0 {
			fmt.Fprintf(w, "  %-13s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryState, log.CategoryInput, log.CategoryAttempt, log.CategoryError} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-13s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Delivery Attempts: %d (%d succeeded)\n", stats.Attempts, stats.SuccessfulAttempts)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Wake Cycles: %d\n", len(stats.Cycles))
	if len(stats.Cycles) > 0 {
		type cycleInfo struct {
			id    string
			stats *CycleStats
		}
		cycles := make([]cycleInfo, 0, len(stats.Cycles))
		for id, cs := range stats.Cycles {
			cycles = append(cycles, cycleInfo{id, cs})
		}
		sort.Slice(cycles, func(i, j int) bool {
			return cycles[i].stats.FirstSeen.Before(cycles[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, c := range cycles {
			fmt.Fprintf(w, "  [%s] %s, %d events, awake %s\n",
				shortenCycleID(c.id), c.stats.Mode, c.stats.Events, c.stats.Uptime.Round(time.Millisecond))
			if c.stats.DeviceID != "" {
				fmt.Fprintf(w, "             Device: %s\n", c.stats.DeviceID)
			}
			if c.stats.Attempts > 0 {
				fmt.Fprintf(w, "             Attempts: %d, delivered: %t\n", c.stats.Attempts, c.stats.Delivered)
			}
			if c.stats.SleepCause != "" {
				fmt.Fprintf(w, "             Sleep: %s\n", c.stats.SleepCause)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
	if stats.Torn {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Trace ends inside an event (power lost while writing).")
	}
}
