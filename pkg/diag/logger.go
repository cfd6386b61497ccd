package diag

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Environments.
const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// Options configures the console logger.
type Options struct {
	// Env selects the console format: tint in "dev", JSON otherwise.
	Env string

	// Level is the console minimum level.
	Level slog.Level

	// Output defaults to os.Stderr.
	Output io.Writer

	App     string
	Version string
}

// NewConsoleHandler returns the console handler for opts.
func NewConsoleHandler(opts Options) slog.Handler {
	w := opts.Output
	if w == nil {
		w = os.Stderr
	}
	if opts.Env == EnvDev {
		return tint.NewHandler(w, &tint.Options{
			Level:      opts.Level,
			TimeFormat: time.Kitchen,
			ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
				if a.Key == slog.LevelKey && a.Value.Any() == LevelImportant {
					return slog.String(a.Key, "IMP")
				}
				return a
			},
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: opts.Level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey && a.Value.Any() == LevelImportant {
				return slog.String(a.Key, TagImportant.String())
			}
			return a
		},
	})
}

// New builds the process logger: console output plus the given sinks at or
// above minTag.
func New(opts Options, minTag Tag, sinks ...Sink) (*slog.Logger, *Handler) {
	h := NewHandler(NewConsoleHandler(opts), minTag, sinks...)
	logger := slog.New(h)
	if opts.App != "" {
		logger = logger.With("app", opts.App)
	}
	if opts.Env != EnvDev {
		if opts.Version != "" {
			logger = logger.With("version", opts.Version)
		}
		if opts.Env != "" {
			logger = logger.With("env", opts.Env)
		}
	}
	return logger, h
}
