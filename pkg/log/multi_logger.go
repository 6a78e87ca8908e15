package log

import (
	"errors"
	"io"
)

// MultiLogger fans events out to several loggers in order, typically a
// FileLogger plus a SlogAdapter for the console.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger combines loggers. Nil and NoopLogger entries are dropped
// and nested MultiLoggers are flattened.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		switch l := l.(type) {
		case nil, NoopLogger:
		case *MultiLogger:
			m.loggers = append(m.loggers, l.loggers...)
		default:
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

// Len returns the number of destinations.
func (m *MultiLogger) Len() int { return len(m.loggers) }

func (m *MultiLogger) Log(event Event) {
	for _, l := range m.loggers {
		l.Log(event)
	}
}

// Close closes every destination that is an io.Closer and returns the
// joined errors.
func (m *MultiLogger) Close() error {
	var errs []error
	for _, l := range m.loggers {
		if c, ok := l.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

var _ Logger = (*MultiLogger)(nil)
