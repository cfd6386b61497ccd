// Package log records a machine-readable trace of each wake cycle.
//
// It sits beside operational logging (slog). Each state change, accepted
// input, delivery attempt and error the control loop sees becomes an Event
// tagged with the cycle's UUID, so a trace pulled off a device that
// misbehaved in the field can be replayed later.
//
// On the device the trace goes to a file and to the console:
//
//	file, err := log.NewFileLogger("/var/lib/pizza-button/cycles.blog",
//	    log.WithSync(), log.WithRotation(log.DefaultMaxSize))
//	trace := log.NewMultiLogger(log.NewSlogAdapter(logger), file)
//
// Trace files are back-to-back CBOR events with integer keys. Power can fail
// halfway through an event; Reader stops before the partial event and
// reports it through Torn. The button-log command views, filters and
// exports traces.
package log
