package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Each bridge message is a CBOR envelope preceded by its length as a
// big-endian uint16. Envelopes carry at most one CEC frame, so the
// default limit leaves plenty of room.
const (
	LengthPrefixSize      = 2
	DefaultMaxMessageSize = 1024
)

var (
	ErrMessageTooLarge = errors.New("message too large")
	ErrMessageEmpty    = errors.New("message is empty")

	// ErrFrameTruncated means the stream ended inside a message.
	ErrFrameTruncated = errors.New("frame truncated")
)

// FrameReadWriter moves whole messages over a stream. Framer is the TCP
// implementation.
type FrameReadWriter interface {
	ReadFrame() ([]byte, error)
	WriteFrame(data []byte) error
}

// Framer reads and writes length-prefixed messages on a stream. WriteFrame
// may be called concurrently; ReadFrame belongs to one reader goroutine.
type Framer struct {
	rw  io.ReadWriter
	max int

	wmu  sync.Mutex
	wbuf []byte

	prefix [LengthPrefixSize]byte
}

func NewFramer(rw io.ReadWriter) *Framer {
	return NewFramerWithMaxSize(rw, DefaultMaxMessageSize)
}

// NewFramerWithMaxSize limits messages to max bytes, at most 65535.
func NewFramerWithMaxSize(rw io.ReadWriter, max uint16) *Framer {
	return &Framer{rw: rw, max: int(max)}
}

func (f *Framer) checkSize(n int) error {
	switch {
	case n == 0:
		return ErrMessageEmpty
	case n > f.max:
		return fmt.Errorf("%w: %d > %d", ErrMessageTooLarge, n, f.max)
	}
	return nil
}

// WriteFrame sends data as one message in a single Write call.
func (f *Framer) WriteFrame(data []byte) error {
	if err := f.checkSize(len(data)); err != nil {
		return err
	}

	f.wmu.Lock()
	defer f.wmu.Unlock()
	f.wbuf = binary.BigEndian.AppendUint16(f.wbuf[:0], uint16(len(data)))
	f.wbuf = append(f.wbuf, data...)
	if _, err := f.rw.Write(f.wbuf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame returns the next message. io.EOF means the peer closed the
// stream between messages.
func (f *Framer) ReadFrame() ([]byte, error) {
	if err := f.fill(f.prefix[:]); err != nil {
		return nil, err
	}
	n := int(binary.BigEndian.Uint16(f.prefix[:]))
	if err := f.checkSize(n); err != nil {
		return nil, err
	}
	payload := make([]byte, n)
	if err := f.fill(payload); err != nil {
		if err == io.EOF {
			return nil, ErrFrameTruncated
		}
		return nil, err
	}
	return payload, nil
}

func (f *Framer) fill(p []byte) error {
	_, err := io.ReadFull(f.rw, p)
	switch {
	case err == nil, err == io.EOF:
		return err
	case errors.Is(err, io.ErrUnexpectedEOF):
		return ErrFrameTruncated
	}
	return fmt.Errorf("read frame: %w", err)
}
