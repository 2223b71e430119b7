package capture

// Logger receives captured events. Implementations must be
// safe for concurrent use; Log is called with the bus locked.
type Logger interface {
	Log(event Event)
}

// NoopLogger discards all events.
type NoopLogger struct{}

func (NoopLogger) Log(Event) {}

var _ Logger = NoopLogger{}

// MultiLogger forwards events to several loggers.
type MultiLogger []Logger

func (m MultiLogger) Log(event Event) {
	for _, l := range m {
		l.Log(event)
	}
}
