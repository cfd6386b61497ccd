package log

import (
	"bufio"
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects trace events. Zero fields match everything.
type Filter struct {
	CycleID   string
	DeviceID  string
	Component *Component
	Category  *Category
	Mode      *Mode

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time
}

// Match reports whether event passes every set criterion.
func (f Filter) Match(event Event) bool {
	switch {
	case f.CycleID != "" && event.CycleID != f.CycleID:
		return false
	case f.DeviceID != "" && event.DeviceID != f.DeviceID:
		return false
	case f.Component != nil && event.Component != *f.Component:
		return false
	case f.Category != nil && event.Category != *f.Category:
		return false
	case f.Mode != nil && event.Mode != *f.Mode:
		return false
	case f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	}
	return true
}

// Reader streams events from a trace file.
//
// The device can lose power in the middle of writing an event. A trace that
// ends inside an event therefore reads as if it ended before it; Torn
// reports whether that happened.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
	torn    bool
}

// NewReader opens path for reading every event.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path for reading the events filter matches.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: NewDecoder(bufio.NewReader(f)),
		filter:  filter,
	}, nil
}

// Next returns the next matching event, or io.EOF at the end of the trace.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		err := r.decoder.Decode(&event)
		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			return Event{}, io.EOF
		case errors.Is(err, io.ErrUnexpectedEOF):
			r.torn = true
			return Event{}, io.EOF
		default:
			return Event{}, err
		}

		if r.filter.Match(event) {
			return event, nil
		}
	}
}

// Torn reports whether the trace ended inside an event.
func (r *Reader) Torn() bool {
	return r.torn
}

// Close closes the trace file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// ReadAll returns every event of the trace at path that filter matches.
func ReadAll(path string, filter Filter) ([]Event, error) {
	r, err := NewFilteredReader(path, filter)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	var out []Event
	for {
		ev, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, ev)
	}
}
