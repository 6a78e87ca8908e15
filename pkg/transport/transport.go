package transport

import (
	"context"
	"errors"

	"github.com/cec-protocol/cec-go/pkg/cec"
)

// Transport errors.
var (
	// ErrNoAck is returned by Send when no follower acknowledged the frame.
	ErrNoAck = errors.New("transport: frame not acknowledged")

	// ErrTxFailed is returned by Send for arbitration loss and adapter
	// errors.
	ErrTxFailed = errors.New("transport: transmit failed")

	// ErrTimeout is returned when the adapter does not report a transmit
	// result in time.
	ErrTimeout = errors.New("transport: timeout")

	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("transport: closed")
)

// Transport is a CEC bus adapter. Implementations are safe for concurrent
// use; Receive is expected to be called from a single goroutine.
type Transport interface {
	// Send transmits one frame and waits for its transmit status. A frame
	// nobody acknowledged yields ErrNoAck.
	Send(ctx context.Context, f cec.Frame) error

	// Receive blocks until a frame addressed to the adapter (or broadcast)
	// arrives or ctx is done.
	Receive(ctx context.Context) (cec.Frame, error)

	// LogicalAddresses reports the addresses the adapter currently holds.
	// An unconfigured adapter reports an empty mask.
	LogicalAddresses(ctx context.Context) (cec.AddressMask, error)

	// Close releases the adapter.
	Close() error
}

// TxStatus is the transmit outcome carried by the bridge protocol.
type TxStatus uint8

const (
	TxOK      TxStatus = 0
	TxNack    TxStatus = 1
	TxArbLost TxStatus = 2
	TxError   TxStatus = 3
)

// String returns the status name.
func (s TxStatus) String() string {
	switch s {
	case TxOK:
		return "OK"
	case TxNack:
		return "NACK"
	case TxArbLost:
		return "ARB_LOST"
	case TxError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// StatusOf maps a Send error to a TxStatus.
func StatusOf(err error) TxStatus {
	switch {
	case err == nil:
		return TxOK
	case errors.Is(err, ErrNoAck):
		return TxNack
	default:
		return TxError
	}
}

// Compile-time interface satisfaction checks.
var (
	_ Transport       = (*Bridge)(nil)
	_ FrameReadWriter = (*Framer)(nil)
)
