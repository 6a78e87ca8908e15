// Package remote holds what the engine has learned about each device on the
// bus during a run.
//
// A Model is created on first access and only ever accumulates facts; no
// field is reset between test cases. Callers run strictly sequentially, so
// the table performs no locking.
package remote

import (
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// Capability is a tri-state flag. Unknown must be treated conservatively:
// assertions that depend on the capability are skipped, not failed.
type Capability uint8

const (
	Unknown Capability = iota
	Yes
	No
)

// Learn records v if nothing is known yet and reports whether the value was
// taken. Later calls never overwrite an earlier answer.
func (c *Capability) Learn(v bool) bool {
	if *c != Unknown {
		return false
	}
	if v {
		*c = Yes
	} else {
		*c = No
	}
	return true
}

// Known reports whether the capability has been learned.
func (c Capability) Known() bool { return c != Unknown }

// IsYes reports a learned positive answer.
func (c Capability) IsYes() bool { return c == Yes }

// IsNo reports a learned negative answer.
func (c Capability) IsNo() bool { return c == No }

func (c Capability) String() string {
	switch c {
	case Yes:
		return "yes"
	case No:
		return "no"
	default:
		return "unknown"
	}
}

// opcodeSet is a 256 bit set indexed by opcode.
type opcodeSet [4]uint64

func (s *opcodeSet) add(op cec.Opcode)          { s[op>>6] |= 1 << (op & 63) }
func (s *opcodeSet) has(op cec.Opcode) bool     { return s[op>>6]&(1<<(op&63)) != 0 }
func (s *opcodeSet) and(o *opcodeSet) opcodeSet { return opcodeSet{s[0] & o[0], s[1] & o[1], s[2] & o[2], s[3] & o[3]} }

// Model is the state of one remote device.
type Model struct {
	Address cec.LogicalAddress

	// Present is set when the device acknowledged a poll during discovery.
	Present bool

	PhysAddr       cec.PhysicalAddress
	HasPhysAddr    bool
	PrimaryType    cec.PrimaryDeviceType
	HasPrimaryType bool
	Version        cec.Version
	Language       string
	VendorID       uint32
	HasVendorID    bool
	OSDName        string

	// Report Features content, valid when HasFeatures is set.
	HasFeatures    bool
	RCProfile      uint8
	DeviceFeatures cec.DeviceFeatures
	AllDeviceTypes cec.AllDeviceTypes

	DeckControl    Capability
	RecordTVScreen Capability
	OSD            Capability
	RCPassthrough  Capability
	PowerStatus    Capability
	ARC            Capability
	SystemAudio    Capability

	// Defaults used when a case needs a broadcast system for this device.
	AnalogueSystem cec.BroadcastSystem
	DigitalSystem  cec.DigitalBroadcastSystem

	// InStandby is the last observed power state.
	InStandby bool

	recognized   opcodeSet
	unrecognized opcodeSet
}

func newModel(la cec.LogicalAddress) *Model {
	return &Model{
		Address:        la,
		PhysAddr:       cec.InvalidPhysicalAddress,
		AnalogueSystem: cec.BcastPALBG,
		DigitalSystem:  cec.DigDVBT,
	}
}

// RecordRecognized marks op as accepted by the device.
func (m *Model) RecordRecognized(op cec.Opcode) { m.recognized.add(op) }

// RecordUnrecognized marks op as refused with Feature Abort [Unrecognized
// opcode].
func (m *Model) RecordUnrecognized(op cec.Opcode) { m.unrecognized.add(op) }

// Recognized reports whether op was ever accepted.
func (m *Model) Recognized(op cec.Opcode) bool { return m.recognized.has(op) }

// Unrecognized reports whether op was ever refused as unrecognized.
func (m *Model) Unrecognized(op cec.Opcode) bool { return m.unrecognized.has(op) }

// Conflicts lists the opcodes that were both accepted and refused as
// unrecognized, in ascending order.
func (m *Model) Conflicts() []cec.Opcode {
	both := m.recognized.and(&m.unrecognized)
	var out []cec.Opcode
	for i := 0; i < 256; i++ {
		if both.has(cec.Opcode(i)) {
			out = append(out, cec.Opcode(i))
		}
	}
	return out
}

// AtLeast2_0 reports whether the device declared CEC 2.0 or newer.
func (m *Model) AtLeast2_0() bool { return m.Version >= cec.Version2_0 }

// IsTV reports whether the device acts as a TV.
func (m *Model) IsTV() bool { return cec.IsTV(m.Address, m.PrimaryType) }

// AddressMask is the single-bit mask of the device's logical address.
func (m *Model) AddressMask() cec.AddressMask { return m.Address.Bit() }

// RoleMask returns the logical addresses matching the declared primary
// device type, or the device's own address bit when the type is unknown.
func (m *Model) RoleMask() cec.AddressMask {
	if !m.HasPrimaryType {
		return m.AddressMask()
	}
	mask := cec.MaskForPrimaryType(m.PrimaryType)
	if mask == 0 {
		return m.AddressMask()
	}
	return mask | m.AddressMask()
}

// Table holds one Model per logical address.
type Table struct {
	models [16]*Model
}

// NewTable returns an empty table.
func NewTable() *Table { return &Table{} }

// Get returns the model for la, creating it on first access.
func (t *Table) Get(la cec.LogicalAddress) *Model {
	la &= 0x0f
	if t.models[la] == nil {
		t.models[la] = newModel(la)
	}
	return t.models[la]
}

// Lookup returns the model for la without creating it.
func (t *Table) Lookup(la cec.LogicalAddress) (*Model, bool) {
	m := t.models[la&0x0f]
	return m, m != nil
}

// RecordRecognized is shorthand for Get(la).RecordRecognized(op).
func (t *Table) RecordRecognized(la cec.LogicalAddress, op cec.Opcode) {
	t.Get(la).RecordRecognized(op)
}

// RecordUnrecognized is shorthand for Get(la).RecordUnrecognized(op).
func (t *Table) RecordUnrecognized(la cec.LogicalAddress, op cec.Opcode) {
	t.Get(la).RecordUnrecognized(op)
}

// Known returns the models created so far in address order.
func (t *Table) Known() []*Model {
	var out []*Model
	for _, m := range t.models {
		if m != nil {
			out = append(out, m)
		}
	}
	return out
}

// LearnFeatures stores a Report Features reply and the capabilities it
// declares. Capabilities already learned are kept.
func (m *Model) LearnFeatures(f cec.Features) {
	m.HasFeatures = true
	m.RCProfile = f.RCProfile
	m.DeviceFeatures = f.DeviceFeatures
	m.AllDeviceTypes = f.AllDeviceTypes
	if m.Version == 0 {
		m.Version = f.Version
	}
	m.DeckControl.Learn(f.DeviceFeatures.Has(cec.FeatureDeckControl))
	m.RecordTVScreen.Learn(f.DeviceFeatures.Has(cec.FeatureRecordTVScreen))
	m.ARC.Learn(f.DeviceFeatures&(cec.FeatureSinkARCTx|cec.FeatureSourceARCRx) != 0)
}
