package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"syscall"

	"github.com/cec-protocol/cec-go/pkg/cec"
	"github.com/cec-protocol/cec-go/pkg/transport"
)

// Kind says who is at fault for a runner error and whether retrying can
// help.
type Kind uint8

const (
	// KindProtocol is a malformed or unexpected message. Unclassified
	// errors are treated as protocol errors.
	KindProtocol Kind = iota
	// KindTransient is a bridge or adapter problem that may clear up.
	KindTransient
	// KindDevice is a remote device that did not cooperate.
	KindDevice
)

var kindNames = [...]string{
	KindProtocol:  "protocol",
	KindTransient: "transient",
	KindDevice:    "device",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

// KindError attaches a Kind to an error.
type KindError struct {
	Kind Kind
	Err  error
}

func (e *KindError) Error() string { return e.Err.Error() }
func (e *KindError) Unwrap() error { return e.Err }

// Retryable reports whether the operation may succeed when repeated.
func (e *KindError) Retryable() bool { return e.Kind == KindTransient }

func Transient(err error) error { return &KindError{Kind: KindTransient, Err: err} }
func Device(err error) error    { return &KindError{Kind: KindDevice, Err: err} }
func Protocol(err error) error  { return &KindError{Kind: KindProtocol, Err: err} }

// KindOf returns the kind attached to err, or KindProtocol.
func KindOf(err error) Kind {
	var ke *KindError
	if errors.As(err, &ke) {
		return ke.Kind
	}
	return KindProtocol
}

// knownCauses maps sentinel causes to kinds, first match wins.
var knownCauses = []struct {
	cause error
	kind  Kind
}{
	{transport.ErrNoAck, KindDevice},
	{transport.ErrTxFailed, KindTransient},
	{transport.ErrTimeout, KindTransient},
	{transport.ErrClosed, KindTransient},
	{context.DeadlineExceeded, KindTransient},
	{io.EOF, KindTransient},
	{io.ErrUnexpectedEOF, KindTransient},
	{syscall.ECONNREFUSED, KindTransient},
	{syscall.ECONNRESET, KindTransient},
	{syscall.EPIPE, KindTransient},
	{cec.ErrShortFrame, KindProtocol},
}

// Classify attaches a kind to err. Errors that already carry one are
// returned as they are; network errors are transient.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ke *KindError
	if errors.As(err, &ke) {
		return err
	}
	for _, c := range knownCauses {
		if errors.Is(err, c.cause) {
			return &KindError{Kind: c.kind, Err: err}
		}
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return Transient(err)
	}
	return Protocol(err)
}

// ConfigError is an operator input problem found before any bus traffic.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string { return e.Field + ": " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }
