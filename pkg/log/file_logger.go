package log

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger appends events to a capture file. A new or empty file gets a
// Header first. Writes are buffered; Sync and Close flush them.
//
// Log never reports errors. The first write failure is kept and returned
// by Err and Close, and later events are dropped.
type FileLogger struct {
	mu     sync.Mutex
	file   *os.File
	buf    *bufio.Writer
	enc    *cbor.Encoder
	count  int
	err    error
	closed bool
}

// NewFileLogger opens path for appending, creating it with mode 0644.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	buf := bufio.NewWriter(f)
	l := &FileLogger{file: f, buf: buf, enc: NewEncoder(buf)}
	if info.Size() == 0 {
		if err := l.enc.Encode(newHeader(time.Now())); err != nil {
			f.Close()
			return nil, fmt.Errorf("write capture header: %w", err)
		}
	}
	return l, nil
}

// Log appends event. Verdicts and state changes are flushed right away so
// an interrupted run keeps its results.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed || l.err != nil {
		return
	}
	if err := l.enc.Encode(event); err != nil {
		l.err = err
		return
	}
	l.count++
	if event.Category != CategoryFrame {
		l.err = l.buf.Flush()
	}
}

// Count returns the number of events written by this logger.
func (l *FileLogger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Err returns the first write error.
func (l *FileLogger) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

// Sync flushes buffered events to stable storage.
func (l *FileLogger) Sync() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	if l.err == nil {
		l.err = l.buf.Flush()
	}
	if l.err != nil {
		return l.err
	}
	return l.file.Sync()
}

// Close flushes and closes the file. Further calls return nil and later
// events are dropped.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true
	if l.err == nil {
		l.err = l.buf.Flush()
	}
	return errors.Join(l.err, l.file.Close())
}

var _ Logger = (*FileLogger)(nil)
