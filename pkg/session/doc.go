// Package session drives Wi-Fi association for one wake cycle.
//
// The Manager is a polled state machine:
//
//	IDLE ──Tick──▶ CONNECTING ──associated──▶ CONNECTED
//	                   │
//	                   └──timeout──▶ FAILED (latched)
//
// Tick never blocks. The radio completes association in the background and
// the manager observes it by polling. FAILED is terminal for the wake
// cycle: no further join is issued until the next boot. The manager never
// leaves CONNECTED by itself; the delivery failure path calls Reset to drop
// the link and allow one fresh sequence.
//
// A manager created with empty credentials never leaves IDLE, so CONNECTED
// always implies a provisioned network.
package session
