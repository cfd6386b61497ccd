// Package retry spaces out repeated attempts at background work that must
// never stall the control loop, such as re-announcing the update service
// after a failed mDNS registration.
//
// A Schedule doubles its delay after each failure up to a cap, adds
// optional jitter, and answers on every loop tick whether the next attempt
// is due.
package retry
