package cec

import (
	"errors"
	"testing"
)

func TestNewFrameDerivesReply(t *testing.T) {
	f := NewFrame(AddrPlayback1, AddrTV, OpGiveOSDName)
	if !f.HasReply || f.Reply != OpSetOSDName {
		t.Errorf("reply = %v/%v, want Set OSD Name", f.HasReply, f.Reply)
	}

	b := NewFrame(AddrPlayback1, AddrBroadcast, OpGivePhysicalAddr)
	if b.HasReply {
		t.Error("broadcast frame should not wait for a directed reply")
	}

	n := NewFrame(AddrPlayback1, AddrTV, OpImageViewOn)
	if n.HasReply {
		t.Error("Image View On solicits no reply")
	}
}

func TestFrameBytes(t *testing.T) {
	f := NewFrame(AddrPlayback1, AddrTV, OpGiveOSDName)
	got, err := f.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if len(got) != 2 || got[0] != 0x40 || got[1] != 0x46 {
		t.Errorf("Bytes() = % x, want 40 46", got)
	}

	p, _ := PollFrame(AddrTV, AddrRecord1).Bytes()
	if len(p) != 1 || p[0] != 0x01 {
		t.Errorf("poll Bytes() = % x, want 01", p)
	}
}

func TestFrameTooLong(t *testing.T) {
	f := NewFrame(AddrTV, AddrRecord1, OpSetOSDName, make([]byte, 15)...)
	if _, err := f.Bytes(); !errors.Is(err, ErrFrameTooLong) {
		t.Errorf("Bytes() error = %v, want ErrFrameTooLong", err)
	}
	if _, err := ParseFrame(make([]byte, 17)); !errors.Is(err, ErrFrameTooLong) {
		t.Errorf("ParseFrame() error = %v, want ErrFrameTooLong", err)
	}
	if _, err := ParseFrame(nil); !errors.Is(err, ErrEmptyFrame) {
		t.Errorf("ParseFrame(nil) error = %v, want ErrEmptyFrame", err)
	}
}

func TestParseFrame(t *testing.T) {
	f, err := ParseFrame([]byte{0x4f, 0x84, 0x10, 0x00, 0x04})
	if err != nil {
		t.Fatalf("ParseFrame() error = %v", err)
	}
	if f.Initiator != AddrPlayback1 || f.Destination != AddrBroadcast {
		t.Errorf("addresses = %d->%d", f.Initiator, f.Destination)
	}
	if f.HasReply {
		t.Error("parsed frames carry no reply expectation")
	}
	pa, prim, err := f.PhysicalAddrInfo()
	if err != nil {
		t.Fatalf("PhysicalAddrInfo() error = %v", err)
	}
	if pa.String() != "1.0.0.0" || prim != PrimaryPlayback {
		t.Errorf("PhysicalAddrInfo() = %s, %s", pa, prim)
	}

	poll, _ := ParseFrame([]byte{0x04})
	if !poll.Poll {
		t.Error("single byte frame should be a poll")
	}
}

func TestFrameOperandsAreCopied(t *testing.T) {
	ops := []byte{1, 2}
	f := NewFrame(AddrTV, AddrRecord1, OpVendorCommand, ops...)
	ops[0] = 9
	got := f.Operands()
	got[1] = 9
	if b, _ := f.Operand(0); b != 1 {
		t.Errorf("operand 0 = %d, builder slice leaked", b)
	}
	if b, _ := f.Operand(1); b != 2 {
		t.Errorf("operand 1 = %d, Operands() leaked", b)
	}
	if _, ok := f.Operand(2); ok {
		t.Error("Operand(2) should be out of range")
	}
}

func TestFrameString(t *testing.T) {
	f := GiveDeckStatus(AddrTV, AddrPlayback1, StatusRequestOnce)
	if got, want := f.String(), "0->4 Give Deck Status [03]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got := Raw(AddrTV, AddrPlayback1, 0xfe).Opcode.String(); got != "Opcode 0xfe" {
		t.Errorf("unknown opcode String() = %q", got)
	}
}

func TestMaskForPrimaryType(t *testing.T) {
	if !MaskForPrimaryType(PrimaryPlayback).Has(AddrPlayback2) {
		t.Error("playback mask should contain address 8")
	}
	if MaskForPrimaryType(PrimaryPlayback).Has(AddrTuner1) {
		t.Error("playback mask should not contain address 3")
	}
	if got := (MaskTV | MaskAudioSystem).Addresses(); len(got) != 2 || got[1] != AddrAudioSystem {
		t.Errorf("Addresses() = %v", got)
	}
	if !IsTV(AddrSpecific, PrimaryTV) || IsTV(AddrSpecific, PrimaryPlayback) {
		t.Error("IsTV misclassifies the specific-use address")
	}
}

func TestParsePhysicalAddress(t *testing.T) {
	p, err := ParsePhysicalAddress("2.1.0.0")
	if err != nil || p != 0x2100 {
		t.Errorf("ParsePhysicalAddress() = %04x, %v", uint16(p), err)
	}
	for _, bad := range []string{"", "1.0.0", "1.0.0.g", "10.0.0.0"} {
		if _, err := ParsePhysicalAddress(bad); err == nil {
			t.Errorf("ParsePhysicalAddress(%q) should fail", bad)
		}
	}
}
