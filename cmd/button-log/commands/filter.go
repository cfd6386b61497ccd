package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/log"
)

// FilterOptions specifies filtering criteria for the filter command.
// Empty fields do not constrain the result.
type FilterOptions struct {
	Output    string
	CycleID   string
	DeviceID  string
	TimeStart string
	TimeEnd   string
	Component string
	Category  string
	Mode      string
}

// Filter converts the textual options into a trace filter.
func (o FilterOptions) Filter() (log.Filter, error) {
	f := log.Filter{CycleID: o.CycleID, DeviceID: o.DeviceID}

	var err error
	if f.TimeStart, err = optionalTime("time-start", o.TimeStart); err != nil {
		return log.Filter{}, err
	}
	if f.TimeEnd, err = optionalTime("time-end", o.TimeEnd); err != nil {
		return log.Filter{}, err
	}
	if o.Component != "" {
		c, err := parseComponent(o.Component)
		if err != nil {
			return log.Filter{}, err
		}
		f.Component = &c
	}
	if o.Category != "" {
		c, err := parseCategory(o.Category)
		if err != nil {
			return log.Filter{}, err
		}
		f.Category = &c
	}
	if o.Mode != "" {
		m, err := parseMode(o.Mode)
		if err != nil {
			return log.Filter{}, err
		}
		f.Mode = &m
	}
	return f, nil
}

func optionalTime(flag, s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: %w", flag, s, err)
	}
	return &t, nil
}

// RunFilter copies the events of path that match opts into opts.Output.
// The output is a trace in its own right and can be viewed or filtered again.
func RunFilter(path string, opts FilterOptions, out io.Writer) error {
	filter, err := opts.Filter()
	if err != nil {
		return err
	}

	reader, err := log.NewFilteredReader(path, filter)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer reader.Close()

	dst, err := log.NewFileLogger(opts.Output)
	if err != nil {
		return fmt.Errorf("open %s: %w", opts.Output, err)
	}
	defer dst.Close()

	n, err := forEach(reader, func(ev log.Event) error {
		dst.Log(ev)
		return nil
	})
	if err != nil {
		return err
	}
	if dropped := dst.Dropped(); dropped > 0 {
		return fmt.Errorf("%d of %d events could not be written to %s", dropped, n, opts.Output)
	}

	fmt.Fprintf(out, "Filtered %d events to %s\n", n, opts.Output)
	if reader.Torn() {
		fmt.Fprintf(out, "Note: %s ends inside an event; the partial event was skipped\n", path)
	}
	return nil
}

// forEach feeds every remaining event of r to fn and returns how many it saw.
func forEach(r *log.Reader, fn func(log.Event) error) (int, error) {
	n := 0
	for {
		ev, err := r.Next()
		if err == io.EOF {
			return n, nil
		}
		if err != nil {
			return n, fmt.Errorf("read event %d: %w", n+1, err)
		}
		if err := fn(ev); err != nil {
			return n, err
		}
		n++
	}
}
