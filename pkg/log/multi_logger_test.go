package log

import (
	"errors"
	"testing"
)

type recordingLogger struct {
	events []Event
}

func (r *recordingLogger) Log(event Event) { r.events = append(r.events, event) }

type closingLogger struct {
	recordingLogger
	closed int
	err    error
}

func (c *closingLogger) Close() error {
	c.closed++
	return c.err
}

func TestMultiLoggerFansOut(t *testing.T) {
	a, b := &recordingLogger{}, &recordingLogger{}
	NewMultiLogger(a, b, NoopLogger{}).Log(frameEvent("run", DirectionIn, 0x40))

	for i, r := range []*recordingLogger{a, b} {
		if len(r.events) != 1 || r.events[0].RunID != "run" {
			t.Errorf("logger %d: got %+v", i, r.events)
		}
	}

	// An empty fan-out is valid.
	NewMultiLogger().Log(frameEvent("run", DirectionIn, 0x40))
}

func TestMultiLoggerDropsNilAndFlattens(t *testing.T) {
	var n int
	count := LoggerFunc(func(Event) { n++ })

	inner := NewMultiLogger(count, nil)
	m := NewMultiLogger(inner, NoopLogger{}, count)
	if m.Len() != 2 {
		t.Fatalf("Len: got %d, want 2", m.Len())
	}
	m.Log(frameEvent("run", DirectionOut, 0x04))
	if n != 2 {
		t.Errorf("events delivered: got %d, want 2", n)
	}
}

func TestMultiLoggerClose(t *testing.T) {
	boom := errors.New("boom")
	a := &closingLogger{}
	b := &closingLogger{err: boom}
	m := NewMultiLogger(a, &recordingLogger{}, b)

	if err := m.Close(); !errors.Is(err, boom) {
		t.Errorf("Close: got %v, want %v", err, boom)
	}
	if a.closed != 1 || b.closed != 1 {
		t.Errorf("closed: a=%d b=%d", a.closed, b.closed)
	}
}
