package log

import (
	"context"
	"log/slog"
)

// SlogAdapter writes trace events to an slog.Logger at debug level, one
// record per event with the event's fields inlined.
type SlogAdapter struct {
	logger *slog.Logger
}

func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return &SlogAdapter{logger: logger}
}

func (a *SlogAdapter) Log(event Event) {
	if !a.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	a.logger.LogAttrs(context.Background(), slog.LevelDebug, "trace", slog.Any("", event))
}

// LogValue renders the event as a group. Unset optional fields are left out.
func (e Event) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 12)
	attrs = append(attrs,
		slog.String("cycle_id", e.CycleID),
		slog.Duration("uptime", e.Uptime),
		slog.String("component", e.Component.String()),
		slog.String("category", e.Category.String()),
	)
	if e.Mode != ModeUnknown {
		attrs = append(attrs, slog.String("mode", e.Mode.String()))
	}
	if e.DeviceID != "" {
		attrs = append(attrs, slog.String("device_id", e.DeviceID))
	}

	switch {
	case e.StateChange != nil:
		sc := e.StateChange
		attrs = append(attrs, slog.String("old_state", sc.OldState), slog.String("new_state", sc.NewState))
		attrs = appendNonEmpty(attrs, "reason", sc.Reason)
	case e.Input != nil:
		attrs = append(attrs, slog.String("input", e.Input.Input), slog.Bool("level", e.Input.Level))
	case e.Attempt != nil:
		at := e.Attempt
		attrs = append(attrs, slog.String("endpoint", at.Endpoint), slog.Int("status", at.Status))
		attrs = appendNonEmpty(attrs, "instance", at.Instance)
		attrs = appendNonEmpty(attrs, "attempt_error", at.Error)
		if at.Age > 0 {
			attrs = append(attrs, slog.Duration("age", at.Age))
		}
	case e.Error != nil:
		attrs = append(attrs,
			slog.String("error_msg", e.Error.Message),
			slog.String("error_context", e.Error.Context),
			slog.Bool("recovered", e.Error.Recovered),
		)
	}
	return slog.GroupValue(attrs...)
}

func appendNonEmpty(attrs []slog.Attr, key, value string) []slog.Attr {
	if value == "" {
		return attrs
	}
	return append(attrs, slog.String(key, value))
}

var (
	_ Logger         = (*SlogAdapter)(nil)
	_ slog.LogValuer = Event{}
)
