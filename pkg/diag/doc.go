// Package diag carries operational logs off the device.
//
// Records go to the console handler first (tint in development, JSON
// otherwise) and are then offered, formatted as "TAG: message key=value"
// lines, to any attached Sink: the TCP log server on port 2000 and an
// optional MQTT topic. Offering never blocks; a congested sink drops lines.
//
// Tags follow the firmware's four log classes, ordered by importance:
//
//	DATA < EVENT < ERROR < IMPORTANT
//
// A record's tag is taken from its "tag" attribute when present and derived
// from its slog level otherwise.
package diag
