package remote

import (
	"testing"

	"github.com/cec-protocol/cec-go/pkg/cec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapabilityLearnOnce(t *testing.T) {
	var c Capability
	assert.False(t, c.Known())
	assert.True(t, c.Learn(true))
	assert.False(t, c.Learn(false), "second answer is ignored")
	assert.True(t, c.IsYes())
	assert.Equal(t, "yes", c.String())

	var n Capability
	n.Learn(false)
	assert.True(t, n.IsNo())
	assert.False(t, n.IsYes())
}

func TestTableCreatesOnFirstAccess(t *testing.T) {
	tbl := NewTable()
	_, ok := tbl.Lookup(cec.AddrPlayback1)
	assert.False(t, ok)

	m := tbl.Get(cec.AddrPlayback1)
	require.NotNil(t, m)
	assert.Equal(t, cec.AddrPlayback1, m.Address)
	assert.Equal(t, cec.InvalidPhysicalAddress, m.PhysAddr)
	assert.Same(t, m, tbl.Get(cec.AddrPlayback1))

	tbl.Get(cec.AddrTV)
	known := tbl.Known()
	require.Len(t, known, 2)
	assert.Equal(t, cec.AddrTV, known[0].Address)
}

func TestOpcodeTracking(t *testing.T) {
	tbl := NewTable()
	tbl.RecordRecognized(cec.AddrTV, cec.OpGiveOSDName)
	tbl.RecordUnrecognized(cec.AddrTV, cec.OpAbort)
	tbl.RecordUnrecognized(cec.AddrTV, cec.Opcode(0xfe))

	m := tbl.Get(cec.AddrTV)
	assert.True(t, m.Recognized(cec.OpGiveOSDName))
	assert.False(t, m.Unrecognized(cec.OpGiveOSDName))
	assert.True(t, m.Unrecognized(cec.OpAbort))
	assert.Empty(t, m.Conflicts())

	m.RecordRecognized(cec.OpAbort)
	m.RecordRecognized(cec.Opcode(0xfe))
	m.RecordUnrecognized(cec.OpFeatureAbort)
	m.RecordRecognized(cec.OpFeatureAbort)
	assert.Equal(t, []cec.Opcode{cec.OpFeatureAbort, cec.Opcode(0xfe), cec.OpAbort}, m.Conflicts())
}

func TestRoleMask(t *testing.T) {
	tbl := NewTable()

	unknown := tbl.Get(cec.AddrSpecific)
	assert.Equal(t, cec.MaskSpecific, unknown.RoleMask())

	unknown.PrimaryType = cec.PrimaryTV
	unknown.HasPrimaryType = true
	assert.True(t, unknown.RoleMask().Has(cec.AddrTV))
	assert.True(t, unknown.RoleMask().Has(cec.AddrSpecific))
	assert.True(t, unknown.IsTV())
	assert.Equal(t, cec.MaskSpecific, unknown.AddressMask())

	rec := tbl.Get(cec.AddrRecord1)
	rec.PrimaryType = cec.PrimaryRecord
	rec.HasPrimaryType = true
	assert.True(t, rec.RoleMask().Has(cec.AddrBackup1))
	assert.False(t, rec.RoleMask().Has(cec.AddrTV))
}

func TestVersionGate(t *testing.T) {
	m := NewTable().Get(cec.AddrTV)
	assert.False(t, m.AtLeast2_0())
	m.Version = cec.Version2_0
	assert.True(t, m.AtLeast2_0())
}
