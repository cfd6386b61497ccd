// Package message defines the status report posted to the receiver and the
// reply it may send back.
package message

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/credentials"
)

// Supply voltage bounds. Readings outside are clamped.
const (
	MinVoltage = 3.0
	MaxVoltage = 4.2
)

// ErrReplyParse is returned when a success reply carries no usable
// credentials. The delivery still counts as successful.
var ErrReplyParse = errors.New("message: reply not parsable")

// Message is one status report. It is a value type; build it with New.
type Message struct {
	Main            bool    `json:"main"`
	Left            bool    `json:"left"`
	Right           bool    `json:"right"`
	Voltage         float64 `json:"voltage"`
	FirmwareVersion string  `json:"button-software-version-device"`
	DeviceID        string  `json:"mac"`
	Provisioning    bool    `json:"setup-mode"`
}

// Buttons records which inputs triggered the report.
type Buttons struct {
	Main, Left, Right bool
}

// New builds a message, clamping the supply voltage.
func New(b Buttons, voltage float64, firmware, deviceID string, provisioning bool) Message {
	return Message{
		Main:            b.Main,
		Left:            b.Left,
		Right:           b.Right,
		Voltage:         ClampVoltage(voltage),
		FirmwareVersion: firmware,
		DeviceID:        deviceID,
		Provisioning:    provisioning,
	}
}

// ClampVoltage limits v to [MinVoltage, MaxVoltage].
func ClampVoltage(v float64) float64 {
	switch {
	case v != v: // NaN
		return MinVoltage
	case v < MinVoltage:
		return MinVoltage
	case v > MaxVoltage:
		return MaxVoltage
	}
	return v
}

// Encode returns the JSON body.
func (m Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// reply is the optional body of a success response.
type reply struct {
	SSID     *string `json:"ssid"`
	Password *string `json:"password"`
}

// ParseReply extracts credentials from a success response body.
func ParseReply(body []byte) (credentials.Credentials, error) {
	var r reply
	if err := json.Unmarshal(body, &r); err != nil {
		return credentials.Credentials{}, fmt.Errorf("%w: %v", ErrReplyParse, err)
	}
	if r.SSID == nil || *r.SSID == "" {
		return credentials.Credentials{}, fmt.Errorf("%w: no ssid", ErrReplyParse)
	}

	c := credentials.Credentials{NetworkName: *r.SSID}
	if r.Password != nil {
		c.NetworkSecret = *r.Password
	}
	return c, nil
}
