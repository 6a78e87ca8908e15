package cec

import (
	"fmt"
	"strconv"
	"strings"
)

// LogicalAddress identifies a device role on the bus (0-15).
type LogicalAddress uint8

const (
	AddrTV           LogicalAddress = 0
	AddrRecord1      LogicalAddress = 1
	AddrRecord2      LogicalAddress = 2
	AddrTuner1       LogicalAddress = 3
	AddrPlayback1    LogicalAddress = 4
	AddrAudioSystem  LogicalAddress = 5
	AddrTuner2       LogicalAddress = 6
	AddrTuner3       LogicalAddress = 7
	AddrPlayback2    LogicalAddress = 8
	AddrRecord3      LogicalAddress = 9
	AddrTuner4       LogicalAddress = 10
	AddrPlayback3    LogicalAddress = 11
	AddrBackup1      LogicalAddress = 12
	AddrBackup2      LogicalAddress = 13
	AddrSpecific     LogicalAddress = 14
	AddrUnregistered LogicalAddress = 15

	// AddrBroadcast is the destination of broadcast frames. It shares its
	// value with AddrUnregistered, which is only valid as an initiator.
	AddrBroadcast LogicalAddress = 15
)

var addrNames = [16]string{
	"TV", "Record Device 1", "Record Device 2", "Tuner 1",
	"Playback Device 1", "Audio System", "Tuner 2", "Tuner 3",
	"Playback Device 2", "Record Device 3", "Tuner 4", "Playback Device 3",
	"Backup 1", "Backup 2", "Specific", "Unregistered",
}

// String returns the role name of the address.
func (a LogicalAddress) String() string {
	if a > 15 {
		return fmt.Sprintf("Invalid(%d)", uint8(a))
	}
	return addrNames[a]
}

// Valid reports whether the address is in the 0-15 range.
func (a LogicalAddress) Valid() bool { return a <= 15 }

// Bit returns the single-address mask for a.
func (a LogicalAddress) Bit() AddressMask { return AddressMask(1) << a }

// AddressMask is a set of logical addresses, bit n standing for address n.
type AddressMask uint16

const (
	MaskTV           AddressMask = 1 << AddrTV
	MaskRecord       AddressMask = 1<<AddrRecord1 | 1<<AddrRecord2 | 1<<AddrRecord3
	MaskTuner        AddressMask = 1<<AddrTuner1 | 1<<AddrTuner2 | 1<<AddrTuner3 | 1<<AddrTuner4
	MaskPlayback     AddressMask = 1<<AddrPlayback1 | 1<<AddrPlayback2 | 1<<AddrPlayback3
	MaskAudioSystem  AddressMask = 1 << AddrAudioSystem
	MaskBackup       AddressMask = 1<<AddrBackup1 | 1<<AddrBackup2
	MaskSpecific     AddressMask = 1 << AddrSpecific
	MaskUnregistered AddressMask = 1 << AddrUnregistered
	MaskAll          AddressMask = 0xffff
)

// Has reports whether a is in the mask.
func (m AddressMask) Has(a LogicalAddress) bool { return a <= 15 && m&a.Bit() != 0 }

// Intersects reports whether the two masks share any address.
func (m AddressMask) Intersects(o AddressMask) bool { return m&o != 0 }

// Addresses returns the addresses in the mask in ascending order.
func (m AddressMask) Addresses() []LogicalAddress {
	var out []LogicalAddress
	for a := LogicalAddress(0); a <= 15; a++ {
		if m.Has(a) {
			out = append(out, a)
		}
	}
	return out
}

// String formats the mask as a hex bitmap.
func (m AddressMask) String() string { return fmt.Sprintf("0x%04x", uint16(m)) }

// MaskForPrimaryType returns the logical addresses a device of the given
// primary type may claim. Switches and video processors claim the
// specific-use or unregistered address.
func MaskForPrimaryType(t PrimaryDeviceType) AddressMask {
	switch t {
	case PrimaryTV:
		return MaskTV
	case PrimaryRecord:
		return MaskRecord | MaskBackup
	case PrimaryTuner:
		return MaskTuner
	case PrimaryPlayback:
		return MaskPlayback
	case PrimaryAudioSystem:
		return MaskAudioSystem
	case PrimarySwitch, PrimaryProcessor:
		return MaskSpecific | MaskUnregistered
	default:
		return 0
	}
}

// IsTV reports whether the device at la acts as a TV. Address 14 may be
// taken by a second TV, which then declares the TV primary type.
func IsTV(la LogicalAddress, prim PrimaryDeviceType) bool {
	if la == AddrTV {
		return true
	}
	return la == AddrSpecific && prim == PrimaryTV
}

// PhysicalAddress is the a.b.c.d topology position of a device.
type PhysicalAddress uint16

// InvalidPhysicalAddress is reported by devices without a valid position.
const InvalidPhysicalAddress PhysicalAddress = 0xffff

// String formats the address in dotted form.
func (p PhysicalAddress) String() string {
	return fmt.Sprintf("%x.%x.%x.%x", uint16(p)>>12, (uint16(p)>>8)&0xf, (uint16(p)>>4)&0xf, uint16(p)&0xf)
}

// ParsePhysicalAddress parses the dotted a.b.c.d form.
func ParsePhysicalAddress(s string) (PhysicalAddress, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return InvalidPhysicalAddress, fmt.Errorf("physical address %q: want a.b.c.d", s)
	}
	var p uint16
	for _, part := range parts {
		n, err := strconv.ParseUint(part, 16, 4)
		if err != nil {
			return InvalidPhysicalAddress, fmt.Errorf("physical address %q: %w", s, err)
		}
		p = p<<4 | uint16(n)
	}
	return PhysicalAddress(p), nil
}
