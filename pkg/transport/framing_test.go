package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"
)

type bufferRW struct{ bytes.Buffer }

func TestFramerRoundTrip(t *testing.T) {
	var buf bufferRW
	f := NewFramer(&buf)

	payload := []byte{0x40, 0x46}
	if err := f.WriteFrame(payload); err != nil {
		t.Fatalf("WriteFrame failed: %v", err)
	}
	if buf.Len() != LengthPrefixSize+len(payload) {
		t.Errorf("encoded size = %d, want %d", buf.Len(), LengthPrefixSize+len(payload))
	}

	got, err := f.ReadFrame()
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = % x, want % x", got, payload)
	}

	if _, err := f.ReadFrame(); err != io.EOF {
		t.Errorf("ReadFrame at end = %v, want io.EOF", err)
	}
}

func TestFramerRejectsEmptyAndOversize(t *testing.T) {
	var buf bufferRW
	f := NewFramerWithMaxSize(&buf, 8)

	if err := f.WriteFrame(nil); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("WriteFrame(nil) = %v, want ErrMessageEmpty", err)
	}
	if err := f.WriteFrame(make([]byte, 9)); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("WriteFrame(9 bytes) = %v, want ErrMessageTooLarge", err)
	}

	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint16(prefix[:], 100)
	buf.Write(prefix[:])
	if _, err := f.ReadFrame(); !errors.Is(err, ErrMessageTooLarge) {
		t.Errorf("ReadFrame(oversize) = %v, want ErrMessageTooLarge", err)
	}
}

func TestFramerTruncated(t *testing.T) {
	var buf bufferRW
	var prefix [LengthPrefixSize]byte
	binary.BigEndian.PutUint16(prefix[:], 4)
	buf.Write(prefix[:])
	buf.Write([]byte{1, 2})

	if _, err := NewFramer(&buf).ReadFrame(); !errors.Is(err, ErrFrameTruncated) {
		t.Errorf("ReadFrame = %v, want ErrFrameTruncated", err)
	}

	var short bufferRW
	short.Write([]byte{0})
	if _, err := NewFramer(&short).ReadFrame(); !errors.Is(err, ErrFrameTruncated) {
		t.Errorf("ReadFrame(short prefix) = %v, want ErrFrameTruncated", err)
	}
}

func TestFramerRejectsZeroLengthPrefix(t *testing.T) {
	var buf bufferRW
	buf.Write([]byte{0, 0, 0x01})
	if _, err := NewFramer(&buf).ReadFrame(); !errors.Is(err, ErrMessageEmpty) {
		t.Errorf("ReadFrame = %v, want ErrMessageEmpty", err)
	}
}

func TestEnvelopeRequiresType(t *testing.T) {
	data, err := EncodeEnvelope(Envelope{Seq: 3})
	if err != nil {
		t.Fatalf("EncodeEnvelope failed: %v", err)
	}
	if _, err := DecodeEnvelope(data); err == nil {
		t.Error("DecodeEnvelope should reject an envelope without type")
	}
}

// queueRW is a FrameReadWriter that keeps whole messages in memory.
type queueRW struct{ msgs [][]byte }

func (q *queueRW) WriteFrame(data []byte) error {
	q.msgs = append(q.msgs, bytes.Clone(data))
	return nil
}

func (q *queueRW) ReadFrame() ([]byte, error) {
	if len(q.msgs) == 0 {
		return nil, io.EOF
	}
	m := q.msgs[0]
	q.msgs = q.msgs[1:]
	return m, nil
}

func TestEnvelopeOverAnyFrameReadWriter(t *testing.T) {
	for name, rw := range map[string]FrameReadWriter{
		"framer": NewFramer(&bufferRW{}),
		"queue":  &queueRW{},
	} {
		t.Run(name, func(t *testing.T) {
			want := Envelope{Type: EnvTxResult, Seq: 9, Status: TxNack}
			if err := writeEnvelope(rw, want); err != nil {
				t.Fatalf("write: %v", err)
			}
			got, err := readEnvelope(rw)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if got.Type != want.Type || got.Seq != want.Seq || got.Status != want.Status {
				t.Errorf("got %+v, want %+v", got, want)
			}
		})
	}
}
