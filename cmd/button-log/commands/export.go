package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/log"
)

// csvHeader names the columns of the csv export, in order.
var csvHeader = []string{"timestamp", "cycle_id", "uptime_ms", "component", "category", "mode", "device_id", "detail", "error"}

// sink receives exported events. flush runs once after the last event.
type sink struct {
	write func(log.Event) error
	flush func() error
}

var exportFormats = map[string]func(io.Writer) (sink, error){
	"jsonl": jsonlSink,
	"csv":   csvSink,
}

func formatNames() string {
	names := make([]string, 0, len(exportFormats))
	for name := range exportFormats {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

// RunExport writes the trace at path in format to output, or to stdout when
// output is empty.
func RunExport(path, format, output string) error {
	newSink, ok := exportFormats[format]
	if !ok {
		return fmt.Errorf("unknown format: %s (supported: %s)", format, formatNames())
	}

	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create %s: %w", output, err)
		}
		defer f.Close()
		w = f
	}

	s, err := newSink(w)
	if err != nil {
		return err
	}
	if _, err := forEach(reader, s.write); err != nil {
		return err
	}
	return s.flush()
}

func jsonlSink(w io.Writer) (sink, error) {
	enc := json.NewEncoder(w)
	return sink{
		write: func(ev log.Event) error { return enc.Encode(ev) },
		flush: func() error { return nil },
	}, nil
}

func csvSink(w io.Writer) (sink, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return sink{}, fmt.Errorf("csv header: %w", err)
	}
	return sink{
		write: func(ev log.Event) error { return cw.Write(csvRow(ev)) },
		flush: func() error {
			cw.Flush()
			return cw.Error()
		},
	}, nil
}

func csvRow(ev log.Event) []string {
	detail, errMsg := eventDetail(ev)
	return []string{
		ev.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
		ev.CycleID,
		strconv.FormatInt(ev.Uptime.Milliseconds(), 10),
		ev.Component.String(),
		ev.Category.String(),
		ev.Mode.String(),
		ev.DeviceID,
		detail,
		errMsg,
	}
}

// eventDetail summarises the payload in one cell.
func eventDetail(event log.Event) (detail, errMsg string) {
	switch {
	case event.StateChange != nil:
		detail = event.StateChange.OldState + "->" + event.StateChange.NewState
	case event.Input != nil:
		detail = event.Input.Input + "=" + levelName(event.Input.Level)
	case event.Attempt != nil:
		detail = event.Attempt.Endpoint + " " + strconv.Itoa(event.Attempt.Status)
		errMsg = event.Attempt.Error
	case event.Error != nil:
		detail = event.Error.Context
		errMsg = event.Error.Message
	}
	return detail, errMsg
}
