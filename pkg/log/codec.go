package log

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Capture file identification. Every capture starts with one Header
// record; Events follow until the end of the file.
const (
	CaptureMagic   = "cec-capture"
	CaptureVersion = 1
)

var (
	// ErrNotCapture is returned when a file does not start with a capture
	// header.
	ErrNotCapture = errors.New("not a capture file")

	// ErrCaptureVersion is returned for captures written by a newer format.
	ErrCaptureVersion = errors.New("unsupported capture version")
)

// Header is the first record of a capture file. Its keys do not overlap
// the Event keys, so an event stream without a header never decodes as
// one.
type Header struct {
	Magic   string    `cbor:"0,keyasint"`
	Version uint16    `cbor:"20,keyasint"`
	Created time.Time `cbor:"21,keyasint"`
}

func newHeader(now time.Time) Header {
	return Header{Magic: CaptureMagic, Version: CaptureVersion, Created: now.UTC()}
}

func (h Header) check() error {
	if h.Magic != CaptureMagic {
		return ErrNotCapture
	}
	if h.Version == 0 || h.Version > CaptureVersion {
		return fmt.Errorf("%w: %d", ErrCaptureVersion, h.Version)
	}
	return nil
}

// Timestamps are stored as RFC 3339 text with nanoseconds so captures
// from different hosts sort and diff without loss.
var (
	encMode = mustEncMode(cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	})
	decMode = mustDecMode(cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	m, err := opts.EncMode()
	if err != nil {
		panic("log: capture encoder: " + err.Error())
	}
	return m
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	m, err := opts.DecMode()
	if err != nil {
		panic("log: capture decoder: " + err.Error())
	}
	return m
}

// EncodeEvent returns the CBOR encoding of one event record.
func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

// DecodeEvent parses a single event record.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	err := decMode.Unmarshal(data, &event)
	return event, err
}

// NewEncoder returns a stream encoder using the capture encoding.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder returns a stream decoder using the capture encoding.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// readHeader consumes the header record. An empty stream yields io.EOF.
func readHeader(dec *cbor.Decoder) (Header, error) {
	var h Header
	if err := dec.Decode(&h); err != nil {
		if errors.Is(err, io.EOF) {
			return Header{}, io.EOF
		}
		return Header{}, fmt.Errorf("%w: %v", ErrNotCapture, err)
	}
	return h, h.check()
}
