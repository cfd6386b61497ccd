package sim

import (
	"sync"
	"time"

	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/clock"
	"github.com/TheLastGimbus/ESP-PizzaButton/pkg/hal"
)

// Never disables association when used as the radio delay.
const Never time.Duration = -1

// DefaultMAC is the hardware address reported by a simulated radio.
const DefaultMAC = "5C:CF:7F:00:BE:EF"

// Radio is a simulated Wi-Fi radio. A join associates after a fixed delay
// measured on the clock, provided the credentials match the network the
// radio is configured to find.
type Radio struct {
	mu  sync.Mutex
	clk clock.Clock

	delay   time.Duration
	network string
	secret  string
	mac     string

	joinedAt    time.Duration
	joining     bool
	joinName    string
	joinSecret  string
	accessPoint string

	joins       int
	disconnects int
	lost        bool
}

// NewRadio returns a radio that associates delay after a join to any
// network. Pass Never to simulate an unreachable access point.
func NewRadio(clk clock.Clock, delay time.Duration) *Radio {
	return &Radio{clk: clk, delay: delay, mac: DefaultMAC}
}

// SetDelay changes the association delay.
func (r *Radio) SetDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delay = d
}

// RequireNetwork restricts association to the given credentials.
func (r *Radio) RequireNetwork(name, secret string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.network = name
	r.secret = secret
}

// DropLink simulates losing an established association.
func (r *Radio) DropLink() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lost = true
}

// Join records the request; association completes later.
func (r *Radio) Join(name, secret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joining = true
	r.lost = false
	r.joinName = name
	r.joinSecret = secret
	r.joinedAt = r.clk.Now()
	r.joins++
	return nil
}

// Associated reports whether the pending join has completed.
func (r *Radio) Associated() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.joining || r.lost || r.delay < 0 {
		return false
	}
	if r.network != "" && (r.joinName != r.network || r.joinSecret != r.secret) {
		return false
	}
	return r.clk.Now()-r.joinedAt >= r.delay
}

// Disconnect drops the association.
func (r *Radio) Disconnect() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.joining = false
	r.disconnects++
	return nil
}

// StartAccessPoint records the access point name.
func (r *Radio) StartAccessPoint(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.accessPoint = name
	return nil
}

// HardwareAddr returns the simulated MAC.
func (r *Radio) HardwareAddr() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mac
}

// SetHardwareAddr changes the simulated MAC.
func (r *Radio) SetHardwareAddr(mac string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mac = mac
}

// Joins returns how many join requests were issued.
func (r *Radio) Joins() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joins
}

// Disconnects returns how many disconnects were issued.
func (r *Radio) Disconnects() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.disconnects
}

// AccessPoint returns the name of the started access point, if any.
func (r *Radio) AccessPoint() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.accessPoint
}

// JoinedNetwork returns the network name of the last join.
func (r *Radio) JoinedNetwork() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.joinName
}

var _ hal.Radio = (*Radio)(nil)
