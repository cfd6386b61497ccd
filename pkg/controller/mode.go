package controller

import (
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/credentials"
	buttonlog "github.com/TheLastGimbus/ESP-PizzaButton/pkg/log"
)

// Mode is the operating mode of one wake cycle.
type Mode uint8

const (
	// ModeNormal runs the button-driven workflow.
	ModeNormal Mode = iota

	// ModeProvisioning runs the access-point workflow.
	ModeProvisioning
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeProvisioning:
		return "PROVISIONING"
	default:
		return "UNKNOWN"
	}
}

// SelectMode picks Provisioning exactly when no network name is stored.
func SelectMode(creds credentials.Credentials) Mode {
	if creds.Empty() {
		return ModeProvisioning
	}
	return ModeNormal
}

func (m Mode) trace() buttonlog.Mode {
	switch m {
	case ModeNormal:
		return buttonlog.ModeNormal
	case ModeProvisioning:
		return buttonlog.ModeProvisioning
	default:
		return buttonlog.ModeUnknown
	}
}
