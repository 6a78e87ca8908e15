package cec

// Message builders. Broadcast-only messages ignore any destination and are
// always sent to AddrBroadcast.

func pa16(p PhysicalAddress) []byte { return []byte{byte(p >> 8), byte(p)} }

// FeatureAbort rejects op with the given reason.
func FeatureAbort(from, to LogicalAddress, op Opcode, reason AbortReason) Frame {
	return NewFrame(from, to, OpFeatureAbort, byte(op), byte(reason))
}

// Abort is the test message every follower must refuse with Feature Abort.
func Abort(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpAbort).WithReply(OpFeatureAbort)
}

// Raw builds a frame for an arbitrary opcode, typically one outside the
// vocabulary.
func Raw(from, to LogicalAddress, op Opcode, operands ...byte) Frame {
	return NewFrame(from, to, op, operands...)
}

func GivePhysicalAddr(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpGivePhysicalAddr)
}

func ReportPhysicalAddr(from LogicalAddress, pa PhysicalAddress, prim PrimaryDeviceType) Frame {
	return NewFrame(from, AddrBroadcast, OpReportPhysicalAddr, byte(pa>>8), byte(pa), byte(prim))
}

func GetCECVersion(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpGetCECVersion)
}

func CECVersion(from, to LogicalAddress, v Version) Frame {
	return NewFrame(from, to, OpCECVersion, byte(v))
}

func GetMenuLanguage(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpGetMenuLanguage)
}

// SetMenuLanguage broadcasts a three letter ISO 639-2 language code.
func SetMenuLanguage(from LogicalAddress, lang string) Frame {
	b := []byte(lang)
	if len(b) > 3 {
		b = b[:3]
	}
	return NewFrame(from, AddrBroadcast, OpSetMenuLanguage, b...)
}

func GiveFeatures(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpGiveFeatures)
}

func ReportFeatures(from LogicalAddress, f Features) Frame {
	return NewFrame(from, AddrBroadcast, OpReportFeatures, f.encode()...)
}

func GiveDeviceVendorID(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpGiveDeviceVendorID)
}

// DeviceVendorID broadcasts a 24-bit IEEE OUI.
func DeviceVendorID(from LogicalAddress, id uint32) Frame {
	return NewFrame(from, AddrBroadcast, OpDeviceVendorID, byte(id>>16), byte(id>>8), byte(id))
}

func GiveOSDName(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpGiveOSDName)
}

// SetOSDName carries at most fourteen characters.
func SetOSDName(from, to LogicalAddress, name string) Frame {
	b := []byte(name)
	if len(b) > 14 {
		b = b[:14]
	}
	return NewFrame(from, to, OpSetOSDName, b...)
}

// SetOSDString carries at most thirteen characters after the display
// control byte.
func SetOSDString(from, to LogicalAddress, ctl DisplayControl, text string) Frame {
	b := []byte(text)
	if len(b) > 13 {
		b = b[:13]
	}
	return NewFrame(from, to, OpSetOSDString, append([]byte{byte(ctl)}, b...)...)
}

func ActiveSource(from LogicalAddress, pa PhysicalAddress) Frame {
	return NewFrame(from, AddrBroadcast, OpActiveSource, pa16(pa)...)
}

func InactiveSource(from, to LogicalAddress, pa PhysicalAddress) Frame {
	return NewFrame(from, to, OpInactiveSource, pa16(pa)...)
}

func RequestActiveSource(from LogicalAddress) Frame {
	return NewFrame(from, AddrBroadcast, OpRequestActiveSource)
}

func SetStreamPath(from LogicalAddress, pa PhysicalAddress) Frame {
	return NewFrame(from, AddrBroadcast, OpSetStreamPath, pa16(pa)...)
}

func UserControlPressed(from, to LogicalAddress, cmd UICommand) Frame {
	return NewFrame(from, to, OpUserControlPressed, byte(cmd))
}

func UserControlReleased(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpUserControlReleased)
}

func MenuRequest(from, to LogicalAddress, t MenuRequestType) Frame {
	return NewFrame(from, to, OpMenuRequest, byte(t))
}

func MenuStatus(from, to LogicalAddress, s MenuState) Frame {
	return NewFrame(from, to, OpMenuStatus, byte(s))
}

func GiveDeckStatus(from, to LogicalAddress, req StatusRequest) Frame {
	return NewFrame(from, to, OpGiveDeckStatus, byte(req))
}

func DeckStatus(from, to LogicalAddress, info DeckInfo) Frame {
	return NewFrame(from, to, OpDeckStatus, byte(info))
}

func DeckControl(from, to LogicalAddress, mode DeckControlMode) Frame {
	return NewFrame(from, to, OpDeckControl, byte(mode))
}

func Play(from, to LogicalAddress, mode PlayMode) Frame {
	return NewFrame(from, to, OpPlay, byte(mode))
}

func GiveTunerDeviceStatus(from, to LogicalAddress, req StatusRequest) Frame {
	return NewFrame(from, to, OpGiveTunerDeviceStatus, byte(req))
}

// TunerDeviceStatus encodes the tuner state in the analogue or digital form
// selected by info.IsAnalogue.
func TunerDeviceStatus(from, to LogicalAddress, info TunerDeviceInfo) Frame {
	b := byte(info.Display) & 0x7f
	if info.Recording {
		b |= 0x80
	}
	ops := []byte{b}
	if info.IsAnalogue {
		ops = append(ops, info.Analogue.encode()...)
	} else {
		ops = append(ops, info.Digital.encode()...)
	}
	return NewFrame(from, to, OpTunerDeviceStatus, ops...)
}

func TunerStepIncrement(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpTunerStepIncrement)
}

func TunerStepDecrement(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpTunerStepDecrement)
}

func SelectAnalogueService(from, to LogicalAddress, s AnalogueService) Frame {
	return NewFrame(from, to, OpSelectAnalogueService, s.encode()...)
}

func SelectDigitalService(from, to LogicalAddress, id DigitalServiceID) Frame {
	return NewFrame(from, to, OpSelectDigitalService, id.encode()...)
}

func RecordTVScreen(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpRecordTVScreen)
}

func RecordOn(from, to LogicalAddress, src RecordSource) Frame {
	return NewFrame(from, to, OpRecordOn, src.encode()...)
}

func RecordOff(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpRecordOff)
}

func RecordStatusMsg(from, to LogicalAddress, s RecordStatus) Frame {
	return NewFrame(from, to, OpRecordStatus, byte(s))
}

func SetAnalogueTimer(from, to LogicalAddress, t TimerSpec, s AnalogueService) Frame {
	return NewFrame(from, to, OpSetAnalogueTimer, append(t.encode(), s.encode()...)...)
}

func ClearAnalogueTimer(from, to LogicalAddress, t TimerSpec, s AnalogueService) Frame {
	return NewFrame(from, to, OpClearAnalogueTimer, append(t.encode(), s.encode()...)...)
}

func SetDigitalTimer(from, to LogicalAddress, t TimerSpec, id DigitalServiceID) Frame {
	return NewFrame(from, to, OpSetDigitalTimer, append(t.encode(), id.encode()...)...)
}

func ClearDigitalTimer(from, to LogicalAddress, t TimerSpec, id DigitalServiceID) Frame {
	return NewFrame(from, to, OpClearDigitalTimer, append(t.encode(), id.encode()...)...)
}

func SetExtTimer(from, to LogicalAddress, t TimerSpec, src ExternalSource) Frame {
	return NewFrame(from, to, OpSetExtTimer, append(t.encode(), src.encode()...)...)
}

func ClearExtTimer(from, to LogicalAddress, t TimerSpec, src ExternalSource) Frame {
	return NewFrame(from, to, OpClearExtTimer, append(t.encode(), src.encode()...)...)
}

func TimerStatusMsg(from, to LogicalAddress, s TimerStatus) Frame {
	return NewFrame(from, to, OpTimerStatus, s.encode()...)
}

func TimerClearedStatusMsg(from, to LogicalAddress, s TimerClearedStatus) Frame {
	return NewFrame(from, to, OpTimerClearedStatus, byte(s))
}

// SetTimerProgramTitle carries at most fourteen characters.
func SetTimerProgramTitle(from, to LogicalAddress, title string) Frame {
	b := []byte(title)
	if len(b) > 14 {
		b = b[:14]
	}
	return NewFrame(from, to, OpSetTimerProgramTitle, b...)
}

func GiveDevicePowerStatus(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpGiveDevicePowerStatus)
}

func ReportPowerStatus(from, to LogicalAddress, s PowerStatus) Frame {
	return NewFrame(from, to, OpReportPowerStatus, byte(s))
}

func Standby(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpStandby)
}

func ImageViewOn(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpImageViewOn)
}

func TextViewOn(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpTextViewOn)
}

// HECDiscover broadcasts a CDC HEC Discover from the device at pa.
func HECDiscover(from LogicalAddress, pa PhysicalAddress) Frame {
	return NewFrame(from, AddrBroadcast, OpCDCMessage, byte(pa>>8), byte(pa), CDCHECDiscover)
}

// HECReportState broadcasts a CDC HEC Report State.
func HECReportState(from LogicalAddress, r HECReport) Frame {
	ops := []byte{
		byte(r.PhysAddr >> 8), byte(r.PhysAddr),
		CDCHECReportState,
		byte(r.TargetPhysAddr >> 8), byte(r.TargetPhysAddr),
		byte(r.HECState&3)<<6 | (r.HostState&3)<<4 | (r.ENCState&3)<<2 | r.ErrorCode&3,
	}
	if r.HasField {
		ops = append(ops, byte(r.Field>>8), byte(r.Field))
	}
	return NewFrame(from, AddrBroadcast, OpCDCMessage, ops...)
}
