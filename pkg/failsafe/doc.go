// Package failsafe bounds how long a wake cycle can keep the device powered.
//
// Two timers guard every cycle:
//
//   - the safety ceiling, started at boot and never stopped, forces sleep
//     whatever the rest of the loop is doing (default: 10 minutes)
//   - the inactivity timer, restarted on every tick that has work in flight,
//     sleeps the device once nothing has happened for a while (default:
//     180 seconds)
//
// Timers are polled from the control loop rather than firing on their own
// goroutine, so expiry is observed at a well-defined point of a tick and
// virtual clocks in tests drive them deterministically.
//
// # States
//
//	STOPPED --Start--> RUNNING --Poll (elapsed >= duration)--> EXPIRED
//	   ^                  |
//	   +------Stop--------+
//
// EXPIRED is terminal for the wake cycle: Start, Restart and Stop are ignored.
package failsafe
