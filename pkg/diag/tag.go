package diag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// TagKey is the attribute key carrying a record's tag.
const TagKey = "tag"

// LevelImportant sits above slog.LevelError so IMPORTANT records survive any
// minimum level.
const LevelImportant = slog.LevelError + 4

// Tag is a firmware log class.
type Tag uint8

const (
	TagData Tag = iota + 1
	TagEvent
	TagError
	TagImportant
)

// String returns the tag name.
func (t Tag) String() string {
	switch t {
	case TagData:
		return "DATA"
	case TagEvent:
		return "EVENT"
	case TagError:
		return "ERROR"
	case TagImportant:
		return "IMPORTANT"
	default:
		return "UNKNOWN"
	}
}

// Level returns the slog level a tag maps to.
func (t Tag) Level() slog.Level {
	switch t {
	case TagData:
		return slog.LevelDebug
	case TagEvent:
		return slog.LevelInfo
	case TagError:
		return slog.LevelError
	case TagImportant:
		return LevelImportant
	default:
		return slog.LevelInfo
	}
}

// Attr returns the attribute that marks a record with t.
func (t Tag) Attr() slog.Attr {
	return slog.String(TagKey, t.String())
}

// TagForLevel derives a tag from a slog level.
func TagForLevel(l slog.Level) Tag {
	switch {
	case l >= LevelImportant:
		return TagImportant
	case l >= slog.LevelError:
		return TagError
	case l >= slog.LevelWarn:
		return TagImportant
	case l >= slog.LevelInfo:
		return TagEvent
	default:
		return TagData
	}
}

// ParseTag parses a tag name, case-insensitively.
func ParseTag(s string) (Tag, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DATA":
		return TagData, true
	case "EVENT":
		return TagEvent, true
	case "ERROR":
		return TagError, true
	case "IMPORTANT":
		return TagImportant, true
	default:
		return 0, false
	}
}

// ParseLevel accepts slog level names and tag names.
func ParseLevel(s string) (slog.Level, error) {
	if tag, ok := ParseTag(s); ok {
		return tag.Level(), nil
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q (allowed: debug, info, warn, error, data, event, important)", s)
	}
}

// Data logs at DATA.
func Data(l *slog.Logger, msg string, args ...any) {
	logTagged(l, TagData, msg, args...)
}

// Event logs at EVENT.
func Event(l *slog.Logger, msg string, args ...any) {
	logTagged(l, TagEvent, msg, args...)
}

// Error logs at ERROR.
func Error(l *slog.Logger, msg string, args ...any) {
	logTagged(l, TagError, msg, args...)
}

// Important logs at IMPORTANT.
func Important(l *slog.Logger, msg string, args ...any) {
	logTagged(l, TagImportant, msg, args...)
}

func logTagged(l *slog.Logger, tag Tag, msg string, args ...any) {
	if l == nil {
		return
	}
	l.Log(context.Background(), tag.Level(), msg, append([]any{tag.Attr()}, args...)...)
}
