package log

import (
	"time"
)

// Event is one entry of a wake-cycle trace.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (wall clock, nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// CycleID identifies the wake cycle (UUID).
	CycleID string `cbor:"2,keyasint"`

	// Uptime is the time since boot.
	Uptime time.Duration `cbor:"3,keyasint"`

	// Component that emitted the event.
	Component Component `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// Mode is the operating mode of the cycle.
	Mode Mode `cbor:"6,keyasint,omitempty"`

	// DeviceID is the hardware address.
	DeviceID string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	StateChange *StateChangeEvent `cbor:"10,keyasint,omitempty"`
	Input       *InputEvent       `cbor:"11,keyasint,omitempty"`
	Attempt     *AttemptEvent     `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Component identifies the part of the device that emitted an event.
type Component uint8

const (
	// ComponentController is the control loop itself.
	ComponentController Component = 0
	// ComponentPower is the self-hold controller.
	ComponentPower Component = 1
	// ComponentButton is the input monitor.
	ComponentButton Component = 2
	// ComponentSession is the Wi-Fi session manager.
	ComponentSession Component = 3
	// ComponentDelivery is the delivery engine.
	ComponentDelivery Component = 4
	// ComponentReset is the factory-reset handler.
	ComponentReset Component = 5
	// ComponentCredentials is the credential store.
	ComponentCredentials Component = 6
)

// String returns the component name.
func (c Component) String() string {
	switch c {
	case ComponentController:
		return "CONTROLLER"
	case ComponentPower:
		return "POWER"
	case ComponentButton:
		return "BUTTON"
	case ComponentSession:
		return "SESSION"
	case ComponentDelivery:
		return "DELIVERY"
	case ComponentReset:
		return "RESET"
	case ComponentCredentials:
		return "CREDENTIALS"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryState indicates a state change.
	CategoryState Category = 0
	// CategoryInput indicates an accepted input edge.
	CategoryInput Category = 1
	// CategoryAttempt indicates a delivery attempt.
	CategoryAttempt Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryState:
		return "STATE"
	case CategoryInput:
		return "INPUT"
	case CategoryAttempt:
		return "ATTEMPT"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Mode mirrors the operating mode of the cycle.
type Mode uint8

const (
	// ModeUnknown is used before mode selection.
	ModeUnknown Mode = 0
	// ModeNormal indicates a provisioned, button-driven cycle.
	ModeNormal Mode = 1
	// ModeProvisioning indicates an access-point cycle.
	ModeProvisioning Mode = 2
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeUnknown:
		return "UNKNOWN"
	case ModeNormal:
		return "NORMAL"
	case ModeProvisioning:
		return "PROVISIONING"
	default:
		return "UNKNOWN"
	}
}

// StateChangeEvent captures a transition.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// InputEvent captures an accepted input edge.
type InputEvent struct {
	// Input is the logical input name.
	Input string `cbor:"1,keyasint"`

	// Level is the level that was detected.
	Level bool `cbor:"2,keyasint"`
}

// AttemptEvent captures one POST to one receiver candidate.
type AttemptEvent struct {
	// Endpoint is the candidate address (host:port).
	Endpoint string `cbor:"1,keyasint"`

	// Instance is the DNS-SD instance name.
	Instance string `cbor:"2,keyasint,omitempty"`

	// Status is the HTTP status, zero when no response arrived.
	Status int `cbor:"3,keyasint,omitempty"`

	// Error is the failure, if any.
	Error string `cbor:"4,keyasint,omitempty"`

	// Age is how long the message had been pending.
	Age time.Duration `cbor:"5,keyasint,omitempty"`
}

// Succeeded reports whether the attempt got a 2xx status.
func (a *AttemptEvent) Succeeded() bool {
	return a.Error == "" && a.Status >= 200 && a.Status < 300
}

// ErrorEventData captures an error.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"2,keyasint,omitempty"`

	// Recovered is set when the cycle continued past the error.
	Recovered bool `cbor:"3,keyasint,omitempty"`
}
