// Package discovery implements mDNS/DNS-SD lookups for the button.
//
// Two service types are involved:
//
// # Receiver (_pizza-app._tcp)
//
// The receiving application advertises this service. The device browses
// for it on every delivery attempt, because the receiver's address may
// change between attempts (DHCP, restarts). Each resolved instance yields
// one Endpoint per address, IPv4 first. An optional "path" TXT key selects
// the request path; the default is "/".
//
// # Update (_pizza-ota._tcp)
//
// The device advertises this service once its network is up so an
// external updater can find it. TXT records carry the firmware version
// ("fw") and hardware address ("mac").
//
// Browsing is bounded: Discover collects answers for a fixed window and
// returns whatever arrived, so the control loop is never held longer than
// the window.
package discovery
