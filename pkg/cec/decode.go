package cec

import (
	"fmt"
	"strings"
)

// Typed decoders for received frames. Each returns ErrShortFrame (wrapped)
// when the operands are missing; semantic range checks are left to callers.

func (f Frame) expect(op Opcode) error {
	if f.Poll || f.Opcode != op {
		return fmt.Errorf("cec: expected %s, got %s", op, f.Opcode)
	}
	return nil
}

// AbortInfo decodes a Feature Abort.
func (f Frame) AbortInfo() (Opcode, AbortReason, error) {
	if err := f.expect(OpFeatureAbort); err != nil {
		return 0, 0, err
	}
	if err := f.need(2); err != nil {
		return 0, 0, err
	}
	return Opcode(f.operands[0]), AbortReason(f.operands[1]), nil
}

// PhysicalAddrInfo decodes Report Physical Address.
func (f Frame) PhysicalAddrInfo() (PhysicalAddress, PrimaryDeviceType, error) {
	if err := f.expect(OpReportPhysicalAddr); err != nil {
		return 0, 0, err
	}
	if err := f.need(3); err != nil {
		return 0, 0, err
	}
	return PhysicalAddress(f.u16(0)), PrimaryDeviceType(f.operands[2]), nil
}

// PhysAddrOperand decodes the leading physical address of Active Source,
// Inactive Source, Set Stream Path and Routing Information.
func (f Frame) PhysAddrOperand() (PhysicalAddress, error) {
	if err := f.need(2); err != nil {
		return 0, err
	}
	return PhysicalAddress(f.u16(0)), nil
}

// VersionInfo decodes CEC Version.
func (f Frame) VersionInfo() (Version, error) {
	if err := f.expect(OpCECVersion); err != nil {
		return 0, err
	}
	if err := f.need(1); err != nil {
		return 0, err
	}
	return Version(f.operands[0]), nil
}

// MenuLanguage decodes Set Menu Language.
func (f Frame) MenuLanguage() (string, error) {
	if err := f.expect(OpSetMenuLanguage); err != nil {
		return "", err
	}
	if err := f.need(3); err != nil {
		return "", err
	}
	return string(f.operands[:3]), nil
}

// VendorID decodes Device Vendor ID.
func (f Frame) VendorID() (uint32, error) {
	if err := f.expect(OpDeviceVendorID); err != nil {
		return 0, err
	}
	if err := f.need(3); err != nil {
		return 0, err
	}
	return uint32(f.operands[0])<<16 | uint32(f.operands[1])<<8 | uint32(f.operands[2]), nil
}

// OSDName decodes Set OSD Name. Trailing NULs are dropped.
func (f Frame) OSDName() (string, error) {
	if err := f.expect(OpSetOSDName); err != nil {
		return "", err
	}
	return strings.TrimRight(string(f.operands), "\x00"), nil
}

// OSDString decodes Set OSD String.
func (f Frame) OSDString() (DisplayControl, string, error) {
	if err := f.expect(OpSetOSDString); err != nil {
		return 0, "", err
	}
	if err := f.need(1); err != nil {
		return 0, "", err
	}
	return DisplayControl(f.operands[0]), string(f.operands[1:]), nil
}

// ProgramTitle decodes Set Timer Program Title.
func (f Frame) ProgramTitle() (string, error) {
	if err := f.expect(OpSetTimerProgramTitle); err != nil {
		return "", err
	}
	return string(f.operands), nil
}

// FeaturesInfo decodes Report Features. Both variable-length operands must
// be present and terminated.
func (f Frame) FeaturesInfo() (Features, error) {
	if err := f.expect(OpReportFeatures); err != nil {
		return Features{}, err
	}
	if err := f.need(4); err != nil {
		return Features{}, err
	}
	out := Features{
		Version:        Version(f.operands[0]),
		AllDeviceTypes: AllDeviceTypes(f.operands[1]),
	}
	i := 2
	rc, n, ok := extBytes(f.operands[i:])
	if !ok {
		return Features{}, fmt.Errorf("%w: unterminated RC profile", ErrShortFrame)
	}
	out.RCProfile = rc[0] &^ featureExtBit
	for _, b := range rc[1:] {
		out.RCProfileExt = append(out.RCProfileExt, b&^featureExtBit)
	}
	i += n
	df, _, ok := extBytes(f.operands[i:])
	if !ok {
		return Features{}, fmt.Errorf("%w: unterminated device features", ErrShortFrame)
	}
	out.DeviceFeatures = DeviceFeatures(df[0] &^ featureExtBit)
	for _, b := range df[1:] {
		out.FeaturesExt = append(out.FeaturesExt, b&^featureExtBit)
	}
	return out, nil
}

// extBytes returns the bytes of one extensible operand: every byte with
// bit 7 set is followed by another.
func extBytes(b []byte) ([]byte, int, bool) {
	for i, v := range b {
		if v&featureExtBit == 0 {
			return b[:i+1], i + 1, true
		}
	}
	return nil, 0, false
}

// PowerStatusInfo decodes Report Power Status.
func (f Frame) PowerStatusInfo() (PowerStatus, error) {
	if err := f.expect(OpReportPowerStatus); err != nil {
		return 0, err
	}
	if err := f.need(1); err != nil {
		return 0, err
	}
	return PowerStatus(f.operands[0]), nil
}

// MenuStatusInfo decodes Menu Status.
func (f Frame) MenuStatusInfo() (MenuState, error) {
	if err := f.expect(OpMenuStatus); err != nil {
		return 0, err
	}
	if err := f.need(1); err != nil {
		return 0, err
	}
	return MenuState(f.operands[0]), nil
}

// DeckStatusInfo decodes Deck Status.
func (f Frame) DeckStatusInfo() (DeckInfo, error) {
	if err := f.expect(OpDeckStatus); err != nil {
		return 0, err
	}
	if err := f.need(1); err != nil {
		return 0, err
	}
	return DeckInfo(f.operands[0]), nil
}

// RecordStatusInfo decodes Record Status.
func (f Frame) RecordStatusInfo() (RecordStatus, error) {
	if err := f.expect(OpRecordStatus); err != nil {
		return 0, err
	}
	if err := f.need(1); err != nil {
		return 0, err
	}
	return RecordStatus(f.operands[0]), nil
}

// TimerClearedStatusInfo decodes Timer Cleared Status.
func (f Frame) TimerClearedStatusInfo() (TimerClearedStatus, error) {
	if err := f.expect(OpTimerClearedStatus); err != nil {
		return 0, err
	}
	if err := f.need(1); err != nil {
		return 0, err
	}
	return TimerClearedStatus(f.operands[0]), nil
}

// TimerStatusInfo decodes Timer Status, including the optional duration.
func (f Frame) TimerStatusInfo() (TimerStatus, error) {
	if err := f.expect(OpTimerStatus); err != nil {
		return TimerStatus{}, err
	}
	if err := f.need(1); err != nil {
		return TimerStatus{}, err
	}
	b := f.operands[0]
	s := TimerStatus{
		OverlapWarning: b&0x80 != 0,
		Media:          MediaInfo(b >> 5 & 0x03),
		Programmed:     b&0x10 != 0,
	}
	if s.Programmed {
		s.Info = ProgrammedInfo(b & 0x0f)
	} else {
		s.Error = ProgramError(b & 0x0f)
	}
	if s.carriesDuration() && len(f.operands) >= 3 {
		s.HasDuration = true
		s.DurationHours = fromBCD(f.operands[1])
		s.DurationMinutes = fromBCD(f.operands[2])
	}
	return s, nil
}

// TunerInfo decodes Tuner Device Status. A frame of length 7 carries an
// analogue service and one of length 10 a digital service.
func (f Frame) TunerInfo() (TunerDeviceInfo, error) {
	if err := f.expect(OpTunerDeviceStatus); err != nil {
		return TunerDeviceInfo{}, err
	}
	if err := f.need(5); err != nil {
		return TunerDeviceInfo{}, err
	}
	info := TunerDeviceInfo{
		Recording: f.operands[0]&0x80 != 0,
		Display:   TunerDisplayInfo(f.operands[0] & 0x7f),
	}
	switch f.Len() {
	case 7:
		info.IsAnalogue = true
		info.Analogue = decodeAnalogue(f.operands[1:5])
	case 10:
		info.Digital = decodeDigital(f.operands[1:8])
	default:
		return TunerDeviceInfo{}, fmt.Errorf("cec: tuner device status has invalid length %d", f.Len())
	}
	return info, nil
}

// AnalogueServiceInfo decodes Select Analogue Service.
func (f Frame) AnalogueServiceInfo() (AnalogueService, error) {
	if err := f.expect(OpSelectAnalogueService); err != nil {
		return AnalogueService{}, err
	}
	if err := f.need(4); err != nil {
		return AnalogueService{}, err
	}
	return decodeAnalogue(f.operands), nil
}

// DigitalServiceInfo decodes Select Digital Service.
func (f Frame) DigitalServiceInfo() (DigitalServiceID, error) {
	if err := f.expect(OpSelectDigitalService); err != nil {
		return DigitalServiceID{}, err
	}
	if err := f.need(digitalServiceIDLen); err != nil {
		return DigitalServiceID{}, err
	}
	return decodeDigital(f.operands), nil
}

// RecordSourceInfo decodes Record On.
func (f Frame) RecordSourceInfo() (RecordSource, error) {
	if err := f.expect(OpRecordOn); err != nil {
		return RecordSource{}, err
	}
	if err := f.need(1); err != nil {
		return RecordSource{}, err
	}
	src := RecordSource{Type: RecordSourceType(f.operands[0])}
	switch src.Type {
	case RecordSrcDigital:
		if err := f.need(1 + digitalServiceIDLen); err != nil {
			return RecordSource{}, err
		}
		src.Digital = decodeDigital(f.operands[1:])
	case RecordSrcAnalogue:
		if err := f.need(5); err != nil {
			return RecordSource{}, err
		}
		src.Analogue = decodeAnalogue(f.operands[1:])
	case RecordSrcExtPlug:
		if err := f.need(2); err != nil {
			return RecordSource{}, err
		}
		src.Plug = f.operands[1]
	case RecordSrcExtPhysAddr:
		if err := f.need(3); err != nil {
			return RecordSource{}, err
		}
		src.PhysAddr = PhysicalAddress(f.u16(1))
	}
	return src, nil
}

// TimerSpecInfo decodes the common scheduling operands of any set or clear
// timer message.
func (f Frame) TimerSpecInfo() (TimerSpec, error) {
	switch f.Opcode {
	case OpSetAnalogueTimer, OpClearAnalogueTimer, OpSetDigitalTimer,
		OpClearDigitalTimer, OpSetExtTimer, OpClearExtTimer:
	default:
		return TimerSpec{}, fmt.Errorf("cec: %s is not a timer message", f.Opcode)
	}
	if err := f.need(7); err != nil {
		return TimerSpec{}, err
	}
	return decodeTimerSpec(f.operands), nil
}

// TimerAnalogueService decodes the service of an analogue timer message.
func (f Frame) TimerAnalogueService() (AnalogueService, error) {
	if err := f.need(11); err != nil {
		return AnalogueService{}, err
	}
	return decodeAnalogue(f.operands[7:]), nil
}

// TimerDigitalService decodes the service of a digital timer message.
func (f Frame) TimerDigitalService() (DigitalServiceID, error) {
	if err := f.need(7 + digitalServiceIDLen); err != nil {
		return DigitalServiceID{}, err
	}
	return decodeDigital(f.operands[7:]), nil
}

// TimerExternalSource decodes the source of an external timer message.
func (f Frame) TimerExternalSource() (ExternalSource, error) {
	if err := f.need(9); err != nil {
		return ExternalSource{}, err
	}
	e := ExternalSource{Specifier: ExternalSourceSpecifier(f.operands[7])}
	if e.Specifier == ExtSrcPlug {
		e.Plug = f.operands[8]
		return e, nil
	}
	if err := f.need(10); err != nil {
		return ExternalSource{}, err
	}
	e.PhysAddr = PhysicalAddress(f.u16(8))
	return e, nil
}

// CDCOperation returns the initiator physical address and CDC opcode of a
// CDC Message.
func (f Frame) CDCOperation() (PhysicalAddress, uint8, error) {
	if err := f.expect(OpCDCMessage); err != nil {
		return 0, 0, err
	}
	if err := f.need(3); err != nil {
		return 0, 0, err
	}
	return PhysicalAddress(f.u16(0)), f.operands[2], nil
}

// HECReportInfo decodes a CDC HEC Report State.
func (f Frame) HECReportInfo() (HECReport, error) {
	pa, op, err := f.CDCOperation()
	if err != nil {
		return HECReport{}, err
	}
	if op != CDCHECReportState {
		return HECReport{}, fmt.Errorf("cec: CDC operation 0x%02x is not HEC Report State", op)
	}
	if err := f.need(6); err != nil {
		return HECReport{}, err
	}
	st := f.operands[5]
	r := HECReport{
		PhysAddr:       pa,
		TargetPhysAddr: PhysicalAddress(f.u16(3)),
		HECState:       HECFunctionState(st >> 6),
		HostState:      st >> 4 & 3,
		ENCState:       st >> 2 & 3,
		ErrorCode:      st & 3,
	}
	if len(f.operands) >= 8 {
		r.HasField = true
		r.Field = f.u16(6)
	}
	return r, nil
}
