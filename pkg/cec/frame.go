package cec

import (
	"errors"
	"fmt"
	"strings"
)

// MaxFrameLen is the largest frame the bus carries: header, opcode and
// fourteen operand bytes.
const MaxFrameLen = 16

var (
	// ErrShortFrame is returned when a frame is too short for the opcode
	// being decoded.
	ErrShortFrame = errors.New("cec: frame too short")

	// ErrFrameTooLong is returned when encoding would exceed MaxFrameLen.
	ErrFrameTooLong = errors.New("cec: frame too long")

	// ErrEmptyFrame is returned when parsing zero bytes.
	ErrEmptyFrame = errors.New("cec: empty frame")
)

// Frame is a single CEC message. A Frame carries no opcode when it is a
// poll (header only).
//
// Frames are values; constructors copy operand slices so a Frame handed to
// a transport is never aliased by its builder.
type Frame struct {
	Initiator   LogicalAddress
	Destination LogicalAddress
	Poll        bool
	Opcode      Opcode
	operands    []byte

	// Reply is the opcode the initiator waits for. Only meaningful when
	// HasReply is set, since 0x00 is Feature Abort.
	Reply    Opcode
	HasReply bool
}

// NewFrame builds a frame. The reply opcode is derived from the request
// opcode when the protocol defines a directed reply for it and the frame is
// not broadcast.
func NewFrame(from, to LogicalAddress, op Opcode, operands ...byte) Frame {
	f := Frame{
		Initiator:   from,
		Destination: to,
		Opcode:      op,
		operands:    append([]byte(nil), operands...),
	}
	if r, ok := ReplyFor(op); ok && to != AddrBroadcast {
		f.Reply = r
		f.HasReply = true
	}
	return f
}

// PollFrame builds a header-only frame used to test for bus presence.
func PollFrame(from, to LogicalAddress) Frame {
	return Frame{Initiator: from, Destination: to, Poll: true}
}

// WithReply returns a copy of f that waits for the given reply opcode.
func (f Frame) WithReply(op Opcode) Frame {
	f.Reply = op
	f.HasReply = true
	f.operands = append([]byte(nil), f.operands...)
	return f
}

// WithoutReply returns a copy of f that does not wait for a reply.
func (f Frame) WithoutReply() Frame {
	f.Reply = 0
	f.HasReply = false
	f.operands = append([]byte(nil), f.operands...)
	return f
}

// Operands returns a copy of the operand bytes.
func (f Frame) Operands() []byte { return append([]byte(nil), f.operands...) }

// Operand returns operand i, or false when the frame is too short.
func (f Frame) Operand(i int) (byte, bool) {
	if i < 0 || i >= len(f.operands) {
		return 0, false
	}
	return f.operands[i], true
}

// Len is the encoded length in bytes.
func (f Frame) Len() int {
	if f.Poll {
		return 1
	}
	return 2 + len(f.operands)
}

// IsBroadcast reports whether the frame is addressed to every device.
func (f Frame) IsBroadcast() bool { return f.Destination == AddrBroadcast }

// IsFeatureAbort reports whether the frame is a Feature Abort.
func (f Frame) IsFeatureAbort() bool { return !f.Poll && f.Opcode == OpFeatureAbort }

// Bytes encodes the frame in wire order.
func (f Frame) Bytes() ([]byte, error) {
	if f.Len() > MaxFrameLen {
		return nil, ErrFrameTooLong
	}
	b := make([]byte, 0, f.Len())
	b = append(b, byte(f.Initiator)<<4|byte(f.Destination)&0x0f)
	if f.Poll {
		return b, nil
	}
	b = append(b, byte(f.Opcode))
	return append(b, f.operands...), nil
}

// ParseFrame decodes a received frame. Received frames never carry a reply
// expectation.
func ParseFrame(b []byte) (Frame, error) {
	if len(b) == 0 {
		return Frame{}, ErrEmptyFrame
	}
	if len(b) > MaxFrameLen {
		return Frame{}, ErrFrameTooLong
	}
	f := Frame{
		Initiator:   LogicalAddress(b[0] >> 4),
		Destination: LogicalAddress(b[0] & 0x0f),
	}
	if len(b) == 1 {
		f.Poll = true
		return f, nil
	}
	f.Opcode = Opcode(b[1])
	f.operands = append([]byte(nil), b[2:]...)
	return f, nil
}

// String formats the frame for logs.
func (f Frame) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d->%d", f.Initiator, f.Destination)
	if f.Poll {
		sb.WriteString(" poll")
		return sb.String()
	}
	fmt.Fprintf(&sb, " %s", f.Opcode)
	if len(f.operands) > 0 {
		fmt.Fprintf(&sb, " [% x]", f.operands)
	}
	return sb.String()
}

func (f Frame) need(n int) error {
	if len(f.operands) < n {
		return fmt.Errorf("%w: %s needs %d operand bytes, got %d", ErrShortFrame, f.Opcode, n, len(f.operands))
	}
	return nil
}

func (f Frame) u16(i int) uint16 { return uint16(f.operands[i])<<8 | uint16(f.operands[i+1]) }
