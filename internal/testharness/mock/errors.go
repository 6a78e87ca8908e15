package mock

import "errors"

// Mock package errors.
var (
	// ErrAddressInUse is returned when a device is added at an address that
	// is already taken on the bus.
	ErrAddressInUse = errors.New("logical address already in use")

	// ErrInvalidAddress is returned for devices on the broadcast address.
	ErrInvalidAddress = errors.New("invalid logical address for a device")

	// errBadOperand marks a request whose operands a device rejects with
	// Feature Abort [Invalid operand].
	errBadOperand = errors.New("invalid operand")
)
