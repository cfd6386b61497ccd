package discovery

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// Service type constants for mDNS.
const (
	// ServiceTypeReceiver is the service advertised by receiving applications.
	ServiceTypeReceiver = "_pizza-app._tcp"

	// ServiceTypeUpdate is the service advertised by the device for updates.
	ServiceTypeUpdate = "_pizza-ota._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultUpdatePort is the port advertised for the update listener.
	DefaultUpdatePort = 8266
)

// TXT record key constants.
const (
	TXTKeyPath     = "path" // Receiver request path (optional)
	TXTKeyFirmware = "fw"   // Device firmware version
	TXTKeyMAC      = "mac"  // Device hardware address
)

// Timing constants.
const (
	// DefaultWindow is how long Discover collects answers.
	DefaultWindow = time.Second

	// MaxWindow caps the browse window.
	MaxWindow = 10 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrInvalidInstanceName = errors.New("invalid instance name")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrInvalidService      = errors.New("invalid service type")
	ErrNotAdvertising      = errors.New("not advertising")
)

// Endpoint is one candidate address of a receiver.
type Endpoint struct {
	// Instance is the DNS-SD instance name.
	Instance string

	// Host is the advertised host name.
	Host string

	// Addr is the IP address in string form.
	Addr string

	// Port is the service port.
	Port uint16

	// Path is the request path, "/" when not advertised.
	Path string
}

// HostPort returns the address in host:port form.
func (e Endpoint) HostPort() string {
	return net.JoinHostPort(e.Addr, strconv.Itoa(int(e.Port)))
}

// URL returns the HTTP URL of the endpoint.
func (e Endpoint) URL() string {
	path := e.Path
	if path == "" {
		path = "/"
	}
	return "http://" + e.HostPort() + path
}

// String returns a short description for logs.
func (e Endpoint) String() string {
	if e.Instance == "" {
		return e.HostPort()
	}
	return fmt.Sprintf("%s (%s)", e.Instance, e.HostPort())
}

// ServiceInfo describes a service the device advertises.
type ServiceInfo struct {
	// Instance is the instance name.
	Instance string

	// Service is the service type, e.g. ServiceTypeUpdate.
	Service string

	// Port is the advertised port.
	Port uint16

	// Firmware is the firmware version for the TXT record.
	Firmware string

	// MAC is the hardware address for the TXT record.
	MAC string
}
