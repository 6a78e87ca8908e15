package log

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events. Zero fields match everything.
type Filter struct {
	RunID     string
	Direction *Direction
	Layer     *Layer
	Category  *Category

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time

	Test string

	// Opcode matches frame events by their second byte. Polls carry no
	// opcode and never match.
	Opcode *uint8

	// Remote matches the logical address of the far end.
	Remote *uint8
}

// Match reports whether event passes every set criterion.
func (f *Filter) Match(event Event) bool {
	switch {
	case f.RunID != "" && f.RunID != event.RunID,
		f.Test != "" && f.Test != event.Test,
		f.Direction != nil && *f.Direction != event.Direction,
		f.Layer != nil && *f.Layer != event.Layer,
		f.Category != nil && *f.Category != event.Category,
		f.Remote != nil && *f.Remote != event.Remote:
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	if f.Opcode != nil {
		op, ok := frameOpcode(event)
		return ok && op == *f.Opcode
	}
	return true
}

func frameOpcode(event Event) (uint8, bool) {
	if event.Frame == nil || len(event.Frame.Data) < 2 {
		return 0, false
	}
	return event.Frame.Data[1], true
}

// Reader streams events from a capture file.
type Reader struct {
	file   *os.File
	dec    *cbor.Decoder
	header Header
	empty  bool
	filter Filter
}

// NewReader opens a capture file and checks its header.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader is NewReader returning only events that match filter.
// A zero-length file reads as an empty capture.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{file: f, dec: NewDecoder(f), filter: filter}
	r.header, err = readHeader(r.dec)
	switch {
	case errors.Is(err, io.EOF):
		r.empty = true
	case err != nil:
		f.Close()
		return nil, err
	}
	return r, nil
}

// Header returns the capture header. It is zero for an empty file.
func (r *Reader) Header() Header { return r.header }

// Next returns the next matching event, or io.EOF at the end of the file.
func (r *Reader) Next() (Event, error) {
	if r.empty {
		return Event{}, io.EOF
	}
	for {
		var event Event
		if err := r.dec.Decode(&event); err != nil {
			return Event{}, err
		}
		if r.filter.Match(event) {
			return event, nil
		}
	}
}

// Close releases the file.
func (r *Reader) Close() error {
	return r.file.Close()
}
