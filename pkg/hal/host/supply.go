package host

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/hal"
)

// IIOSupply reads the battery rail from an IIO raw channel.
type IIOSupply struct {
	path  string
	scale float64
}

// NewIIOSupply creates a sensor for path; scale converts counts to volts.
func NewIIOSupply(path string, scale float64) *IIOSupply {
	return &IIOSupply{path: path, scale: scale}
}

// Voltage returns the scaled reading.
func (s *IIOSupply) Voltage() (float64, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return 0, fmt.Errorf("read supply: %w", err)
	}
	raw, err := strconv.ParseInt(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse supply reading %q: %w", strings.TrimSpace(string(data)), err)
	}
	return float64(raw) * s.scale, nil
}

var _ hal.VoltageSensor = (*IIOSupply)(nil)
