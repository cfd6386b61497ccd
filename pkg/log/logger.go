package log

// Logger receives the trace events of a wake cycle. Implementations must be
// safe for concurrent use and must not block the control loop.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards every event.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(Event)

func (f LoggerFunc) Log(event Event) { f(event) }

var (
	_ Logger = NoopLogger{}
	_ Logger = LoggerFunc(nil)
)
