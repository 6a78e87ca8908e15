package log

// Logger receives capture events. Log is called from the engine's bus
// goroutine and must not block; implementations must be safe for
// concurrent use.
type Logger interface {
	Log(event Event)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(Event)

// Log calls f(event).
func (f LoggerFunc) Log(event Event) { f(event) }

// NoopLogger drops every event.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

var (
	_ Logger = NoopLogger{}
	_ Logger = LoggerFunc(nil)
)
