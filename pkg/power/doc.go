// Package power owns the self-hold line that keeps the device energized.
//
// A wake cycle starts with Hold and ends with exactly one effective call to
// Sleep. Sleep drives the safe-idle outputs low, releases the hold line and
// then waits out the regulator's own power-down latency. On hardware the
// process loses power during that wait; on a host or in tests Sleep returns
// and the caller stops its loop.
package power
