package log

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// DefaultMaxSize is the trace size at which NewFileLogger rotates when
// WithRotation is given without a size.
const DefaultMaxSize = 1 << 20

// FileOption configures a FileLogger.
type FileOption func(*fileOptions)

type fileOptions struct {
	sync    bool
	maxSize int64
}

// WithSync flushes every event to storage before Log returns. The device
// drops its own power at the end of a cycle, so anything still buffered at
// that point is lost.
func WithSync() FileOption {
	return func(o *fileOptions) { o.sync = true }
}

// WithRotation moves a trace larger than maxSize bytes to path+".1" when the
// logger opens, replacing the previous generation. maxSize <= 0 uses
// DefaultMaxSize.
func WithRotation(maxSize int64) FileOption {
	return func(o *fileOptions) {
		if maxSize <= 0 {
			maxSize = DefaultMaxSize
		}
		o.maxSize = maxSize
	}
}

// FileLogger appends trace events to a file. Safe for concurrent use.
type FileLogger struct {
	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	sync    bool
	closed  bool
	dropped int
}

// NewFileLogger opens path for appending, creating it and its directory
// when missing.
func NewFileLogger(path string, opts ...FileOption) (*FileLogger, error) {
	var o fileOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	if o.maxSize > 0 {
		if err := rotate(path, o.maxSize); err != nil {
			return nil, err
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileLogger{
		file:    f,
		encoder: NewEncoder(f),
		sync:    o.sync,
	}, nil
}

func rotate(path string, maxSize int64) error {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if info.Size() <= maxSize {
		return nil
	}
	return os.Rename(path, path+".1")
}

// Log appends event. Failures are counted, never returned: tracing must not
// disturb the wake cycle.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.encoder.Encode(event); err != nil {
		l.dropped++
		return
	}
	if l.sync {
		if err := l.file.Sync(); err != nil {
			l.dropped++
		}
	}
}

// Dropped returns how many events failed to reach the file.
func (l *FileLogger) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// Close closes the file. Later Log calls are ignored; Close is idempotent.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	return l.file.Close()
}

var _ Logger = (*FileLogger)(nil)
