// Package version holds the firmware version reported in every message and
// advertised to the update service.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Firmware is the version string sent as button-software-version-device.
// Release builds override it with -ldflags "-X .../pkg/version.Firmware=...".
var Firmware = "1.0"

// ErrInvalid is returned for strings that are not "major.minor".
var ErrInvalid = errors.New("invalid firmware version")

// Version is a firmware version in "major.minor" form.
type Version struct {
	Major uint16
	Minor uint16
}

// Parse parses s. Both parts are unsigned decimal numbers.
func Parse(s string) (Version, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return Version{}, fmt.Errorf("%w %q: no minor part", ErrInvalid, s)
	}
	ma, err := component(major)
	if err != nil {
		return Version{}, fmt.Errorf("%w %q: major: %v", ErrInvalid, s, err)
	}
	mi, err := component(minor)
	if err != nil {
		return Version{}, fmt.Errorf("%w %q: minor: %v", ErrInvalid, s, err)
	}
	return Version{Major: ma, Minor: mi}, nil
}

func component(s string) (uint16, error) {
	if s == "" || strings.ContainsAny(s, "+-") {
		return 0, fmt.Errorf("not a number: %q", s)
	}
	n, err := strconv.ParseUint(s, 10, 16)
	return uint16(n), err
}

func (v Version) String() string {
	return strconv.Itoa(int(v.Major)) + "." + strconv.Itoa(int(v.Minor))
}
