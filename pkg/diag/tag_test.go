package diag

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagOrdering(t *testing.T) {
	assert.Less(t, TagData.Level(), TagEvent.Level())
	assert.Less(t, TagEvent.Level(), TagError.Level())
	assert.Less(t, TagError.Level(), TagImportant.Level())
}

func TestTagForLevel(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  Tag
	}{
		{slog.LevelDebug, TagData},
		{slog.LevelDebug - 4, TagData},
		{slog.LevelInfo, TagEvent},
		{slog.LevelWarn, TagImportant},
		{slog.LevelError, TagError},
		{LevelImportant, TagImportant},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, TagForLevel(tt.level))
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"data", slog.LevelDebug, false},
		{"Event", slog.LevelInfo, false},
		{"important", LevelImportant, false},
		{"verbose", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTagString(t *testing.T) {
	assert.Equal(t, "DATA", TagData.String())
	assert.Equal(t, "EVENT", TagEvent.String())
	assert.Equal(t, "ERROR", TagError.String())
	assert.Equal(t, "IMPORTANT", TagImportant.String())
	assert.Equal(t, "UNKNOWN", Tag(0).String())
}

func TestTaggedHelpers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	Data(logger, "vcc", "volts", 3.9)
	Event(logger, "connected")
	Error(logger, "post failed")
	Important(logger, "normal mode")
	Data(nil, "ignored")

	out := buf.String()
	for _, want := range []string{"tag=DATA", "tag=EVENT", "tag=ERROR", "tag=IMPORTANT"} {
		assert.Contains(t, out, want)
	}
	assert.Equal(t, 4, strings.Count(out, "\n"))
}
