package log

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func frameEvent(run string, dir Direction, data ...byte) Event {
	return Event{
		Timestamp: time.Now(),
		RunID:     run,
		Direction: dir,
		Layer:     LayerBus,
		Category:  CategoryFrame,
		Remote:    4,
		Frame:     &FrameEvent{Data: data},
	}
}

func capturePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "run.clog")
}

func openLogger(t *testing.T, path string) *FileLogger {
	t.Helper()
	l, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	return l
}

// captured reads every event back through a Reader.
func captured(t *testing.T, path string) []Event {
	t.Helper()
	r, err := NewReader(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	defer r.Close()
	return readAll(t, r)
}

func TestFileLoggerWritesHeaderThenEvents(t *testing.T) {
	path := capturePath(t)
	l := openLogger(t, path)
	l.Log(frameEvent("run-1", DirectionOut, 0x04, 0x46))
	if n := l.Count(); n != 1 {
		t.Errorf("Count = %d after one event", n)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	dec := NewDecoder(f)

	var h Header
	if err := dec.Decode(&h); err != nil {
		t.Fatalf("header: %v", err)
	}
	if h.Magic != CaptureMagic || h.Version != CaptureVersion || h.Created.IsZero() {
		t.Errorf("header = %+v", h)
	}

	var ev Event
	if err := dec.Decode(&ev); err != nil {
		t.Fatalf("event: %v", err)
	}
	switch {
	case ev.RunID != "run-1", ev.Remote != 4:
		t.Errorf("event = %+v", ev)
	case ev.Frame == nil || !bytes.Equal(ev.Frame.Data, []byte{0x04, 0x46}):
		t.Errorf("frame = %+v", ev.Frame)
	}
}

func TestFileLoggerSyncFlushesFrames(t *testing.T) {
	path := capturePath(t)
	l := openLogger(t, path)
	defer l.Close()

	// Frames are buffered until Sync.
	l.Log(frameEvent("run", DirectionOut, 0x04, 0x8f))
	if err := l.Sync(); err != nil {
		t.Fatal(err)
	}
	if got := captured(t, path); len(got) != 1 {
		t.Errorf("%d events visible after Sync", len(got))
	}
	if err := l.Err(); err != nil {
		t.Errorf("Err = %v", err)
	}
}

func TestFileLoggerSecondOpenKeepsOneHeader(t *testing.T) {
	path := capturePath(t)
	for _, run := range []string{"run-1", "run-2"} {
		l := openLogger(t, path)
		l.Log(frameEvent(run, DirectionIn, 0x40, 0x47, 'x'))
		if err := l.Close(); err != nil {
			t.Fatal(err)
		}
	}

	got := captured(t, path)
	if len(got) != 2 {
		t.Fatalf("%d events, want 2", len(got))
	}
	if got[0].RunID != "run-1" || got[1].RunID != "run-2" {
		t.Errorf("runs out of order: %q then %q", got[0].RunID, got[1].RunID)
	}
}

func TestFileLoggerConcurrentWriters(t *testing.T) {
	const writers, each = 8, 50
	path := capturePath(t)
	l := openLogger(t, path)

	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range each {
				l.Log(frameEvent("run", DirectionIn, 0x4f, 0x82, 0x10, 0x00))
			}
		}()
	}
	wg.Wait()
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	if got := len(captured(t, path)); got != writers*each {
		t.Errorf("%d events, want %d", got, writers*each)
	}
}

func TestFileLoggerIgnoresLogAfterClose(t *testing.T) {
	path := capturePath(t)
	l := openLogger(t, path)
	for i := range 2 {
		if err := l.Close(); err != nil {
			t.Errorf("Close #%d: %v", i+1, err)
		}
	}

	l.Log(frameEvent("late", DirectionIn, 0x40))
	if n := l.Count(); n != 0 {
		t.Errorf("Count = %d after closed Log", n)
	}
	if got := captured(t, path); len(got) != 0 {
		t.Errorf("closed logger wrote %d events", len(got))
	}
}
