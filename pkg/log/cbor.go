package log

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// maxEventFields bounds the maps and arrays a decoded event may hold, so a
// corrupted trace cannot make the reader allocate without limit.
const maxEventFields = 64

// Codec modes. Timestamps keep nanoseconds so events of one tick still sort.
var (
	encMode = mustEncMode(cbor.EncOptions{
		Sort:        cbor.SortCoreDeterministic,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	})
	decMode = mustDecMode(cbor.DecOptions{
		DupMapKey:        cbor.DupMapKeyEnforcedAPF,
		IndefLength:      cbor.IndefLengthForbidden,
		MaxArrayElements: maxEventFields,
		MaxMapPairs:      maxEventFields,
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	m, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("log: cbor encode options: %v", err))
	}
	return m
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	m, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("log: cbor decode options: %v", err))
	}
	return m
}

// EncodeEvent returns the wire form of one event.
func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

// DecodeEvent parses one event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := decMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// NewEncoder returns a stream encoder writing back-to-back events to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a stream decoder reading back-to-back events from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
