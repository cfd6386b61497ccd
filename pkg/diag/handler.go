package diag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Sink receives formatted log lines.
type Sink interface {
	// Offer hands a line to the sink without blocking. It returns false
	// when the line was dropped.
	Offer(line []byte) bool

	// Close releases the sink.
	Close() error
}

// Handler forwards records to a console handler and offers each record at
// or above MinTag to every sink.
type Handler struct {
	next   slog.Handler
	sinks  []Sink
	minTag Tag

	prefix string // pre-formatted attrs from WithAttrs
	group  string
	tag    Tag    // bound with WithAttrs, zero when unset
}

// NewHandler wraps next. A zero minTag offers every record to the sinks.
func NewHandler(next slog.Handler, minTag Tag, sinks ...Sink) *Handler {
	h := &Handler{next: next, minTag: minTag}
	for _, s := range sinks {
		if s != nil {
			h.sinks = append(h.sinks, s)
		}
	}
	return h
}

// Enabled reports whether either the console or a sink wants the level.
func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	if h.next.Enabled(ctx, level) {
		return true
	}
	// Tagged records can outrank their level, so sinks see everything
	// that might qualify.
	return len(h.sinks) > 0
}

// Handle writes the record to the console handler and the sinks.
func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.next.Enabled(ctx, r.Level) {
		err = h.next.Handle(ctx, r)
	}
	if len(h.sinks) == 0 {
		return err
	}

	tag, line := h.format(r)
	if tag < h.minTag {
		return err
	}
	for _, s := range h.sinks {
		s.Offer(line)
	}
	return err
}

// WithAttrs returns a handler that includes attrs on every record.
func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	var b strings.Builder
	b.WriteString(h.prefix)
	for _, a := range attrs {
		if a.Key == TagKey && h.group == "" {
			if t, ok := ParseTag(a.Value.String()); ok {
				clone.tag = t
				continue
			}
		}
		appendAttr(&b, h.group, a)
	}
	clone.prefix = b.String()
	return &clone
}

// WithGroup returns a handler that qualifies later attrs with name.
func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.next = h.next.WithGroup(name)
	if h.group == "" {
		clone.group = name
	} else {
		clone.group = h.group + "." + name
	}
	return &clone
}

// Close closes every sink.
func (h *Handler) Close() error {
	var first error
	for _, s := range h.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (h *Handler) format(r slog.Record) (Tag, []byte) {
	tag := h.tag
	if tag == 0 {
		tag = TagForLevel(r.Level)
	}
	var attrs strings.Builder
	attrs.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == TagKey && h.group == "" {
			if t, ok := ParseTag(a.Value.String()); ok {
				tag = t
				return true
			}
		}
		appendAttr(&attrs, h.group, a)
		return true
	})
	return tag, []byte(fmt.Sprintf("%s: %s%s\n", tag, r.Message, attrs.String()))
}

func appendAttr(b *strings.Builder, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			appendAttr(b, key, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(key)
	b.WriteByte('=')
	switch a.Value.Kind() {
	case slog.KindDuration:
		b.WriteString(a.Value.Duration().String())
	case slog.KindTime:
		b.WriteString(a.Value.Time().Format(time.RFC3339))
	default:
		s := a.Value.String()
		if strings.ContainsAny(s, " \t\"=") {
			s = fmt.Sprintf("%q", s)
		}
		b.WriteString(s)
	}
}

var _ slog.Handler = (*Handler)(nil)
