package cec

import "fmt"

// AnalogueService identifies an analogue broadcast service.
type AnalogueService struct {
	Type AnalogueBroadcastType
	// Frequency in units of 62.5 kHz.
	Frequency uint16
	System    BroadcastSystem
}

// FrequencyMHz converts the frequency operand to MHz.
func (s AnalogueService) FrequencyMHz() float64 {
	return float64(s.Frequency) * 625 / 10000
}

// FrequencyFromKHz converts a frequency in kHz to the operand value.
func FrequencyFromKHz(khz uint32) uint16 {
	return uint16(khz * 10 / 625)
}

func (s AnalogueService) encode() []byte {
	return []byte{byte(s.Type), byte(s.Frequency >> 8), byte(s.Frequency), byte(s.System)}
}

func decodeAnalogue(b []byte) AnalogueService {
	return AnalogueService{
		Type:      AnalogueBroadcastType(b[0]),
		Frequency: uint16(b[1])<<8 | uint16(b[2]),
		System:    BroadcastSystem(b[3]),
	}
}

// String formats the service for logs.
func (s AnalogueService) String() string {
	return fmt.Sprintf("Analog Channel %.2f MHz (%s, %s)", s.FrequencyMHz(), s.System, s.Type)
}

// DigitalServiceID identifies a digital broadcast service, either by
// transport/service ids or by channel number. The struct is comparable so
// captured services can be matched with ==.
type DigitalServiceID struct {
	Method ServiceIDMethod
	System DigitalBroadcastSystem

	// By digital id. For ATSC ServiceID carries the program number and
	// OriginalNetworkID is unused.
	TransportID       uint16
	ServiceID         uint16
	OriginalNetworkID uint16

	// By channel.
	ChannelFormat ChannelNumberFormat
	Major         uint16
	Minor         uint16
}

const digitalServiceIDLen = 7

func (d DigitalServiceID) encode() []byte {
	b := make([]byte, digitalServiceIDLen)
	b[0] = byte(d.Method)<<7 | byte(d.System)&0x7f
	if d.Method == ServiceByChannel {
		b[1] = byte(d.ChannelFormat)<<2 | byte(d.Major>>8)&0x03
		b[2] = byte(d.Major)
		b[3] = byte(d.Minor >> 8)
		b[4] = byte(d.Minor)
		return b
	}
	b[1], b[2] = byte(d.TransportID>>8), byte(d.TransportID)
	b[3], b[4] = byte(d.ServiceID>>8), byte(d.ServiceID)
	if d.System.Family() != FamilyATSC {
		b[5], b[6] = byte(d.OriginalNetworkID>>8), byte(d.OriginalNetworkID)
	}
	return b
}

func decodeDigital(b []byte) DigitalServiceID {
	d := DigitalServiceID{
		Method: ServiceIDMethod(b[0] >> 7),
		System: DigitalBroadcastSystem(b[0] & 0x7f),
	}
	if d.Method == ServiceByChannel {
		d.ChannelFormat = ChannelNumberFormat(b[1] >> 2)
		d.Major = uint16(b[1]&0x03)<<8 | uint16(b[2])
		d.Minor = uint16(b[3])<<8 | uint16(b[4])
		return d
	}
	d.TransportID = uint16(b[1])<<8 | uint16(b[2])
	d.ServiceID = uint16(b[3])<<8 | uint16(b[4])
	if d.System.Family() != FamilyATSC {
		d.OriginalNetworkID = uint16(b[5])<<8 | uint16(b[6])
	}
	return d
}

// String formats the service for logs.
func (d DigitalServiceID) String() string {
	if d.Method == ServiceByChannel {
		if d.ChannelFormat == ChannelOnePart {
			return fmt.Sprintf("%s Channel %d", d.System, d.Minor)
		}
		return fmt.Sprintf("%s Channel %d.%d", d.System, d.Major, d.Minor)
	}
	switch d.System.Family() {
	case FamilyATSC:
		return fmt.Sprintf("%s Channel TSID: %d, Program Number: %d", d.System, d.TransportID, d.ServiceID)
	default:
		return fmt.Sprintf("%s Channel TSID: %d, SID: %d, ONID: %d", d.System, d.TransportID, d.ServiceID, d.OriginalNetworkID)
	}
}

// TunerDisplayInfo tells what the tuner is currently showing.
type TunerDisplayInfo uint8

const (
	TunerDisplayDigital  TunerDisplayInfo = 0
	TunerDisplayNone     TunerDisplayInfo = 1
	TunerDisplayAnalogue TunerDisplayInfo = 2
)

// TunerDeviceInfo is the operand of Tuner Device Status. Exactly one of
// Analogue and Digital is meaningful, selected by IsAnalogue.
type TunerDeviceInfo struct {
	Recording  bool
	Display    TunerDisplayInfo
	IsAnalogue bool
	Analogue   AnalogueService
	Digital    DigitalServiceID
}

// String formats the tuned service for logs.
func (t TunerDeviceInfo) String() string {
	if t.IsAnalogue {
		return t.Analogue.String()
	}
	return t.Digital.String()
}

// ValidateService checks the semantic ranges of the tuned service and
// returns a description of the first problem found.
func (t TunerDeviceInfo) ValidateService() error {
	if t.IsAnalogue {
		if !t.Analogue.System.Valid() {
			return fmt.Errorf("invalid analog bcast_system %d", t.Analogue.System)
		}
		if !t.Analogue.Type.Valid() {
			return fmt.Errorf("invalid analog bcast_type %d", t.Analogue.Type)
		}
		if t.Analogue.Frequency == 0 {
			return fmt.Errorf("analog frequency is zero")
		}
		return nil
	}
	d := t.Digital
	if d.Method == ServiceByChannel {
		if !d.ChannelFormat.Valid() {
			return fmt.Errorf("invalid channel number format %d", d.ChannelFormat)
		}
		return nil
	}
	if !d.System.Valid() {
		return fmt.Errorf("invalid digital broadcast system %d", d.System)
	}
	if d.Method > ServiceByChannel {
		return fmt.Errorf("invalid service ID method %d", d.Method)
	}
	return nil
}

// RecordSource is the operand of Record On.
type RecordSource struct {
	Type     RecordSourceType
	Digital  DigitalServiceID
	Analogue AnalogueService
	Plug     uint8
	PhysAddr PhysicalAddress
}

func (r RecordSource) encode() []byte {
	b := []byte{byte(r.Type)}
	switch r.Type {
	case RecordSrcDigital:
		b = append(b, r.Digital.encode()...)
	case RecordSrcAnalogue:
		b = append(b, r.Analogue.encode()...)
	case RecordSrcExtPlug:
		b = append(b, r.Plug)
	case RecordSrcExtPhysAddr:
		b = append(b, byte(r.PhysAddr>>8), byte(r.PhysAddr))
	}
	return b
}

// Validate checks the source for out-of-range values. A by-channel digital
// service must carry a defined channel number format; an analogue service
// may use BcastOther but never frequency 0 or 0xffff.
func (r RecordSource) Validate() error {
	if !r.Type.Valid() {
		return fmt.Errorf("invalid record source type %d", r.Type)
	}
	switch r.Type {
	case RecordSrcDigital:
		d := r.Digital
		if !d.System.Valid() {
			return fmt.Errorf("invalid digital broadcast system 0x%02x", uint8(d.System))
		}
		if d.Method == ServiceByChannel && !d.ChannelFormat.Valid() {
			return fmt.Errorf("invalid channel number format %d", d.ChannelFormat)
		}
	case RecordSrcAnalogue:
		a := r.Analogue
		if !a.Type.Valid() {
			return fmt.Errorf("invalid analogue broadcast type %d", a.Type)
		}
		if !a.System.Valid() && a.System != BcastOther {
			return fmt.Errorf("invalid analogue broadcast system %d", a.System)
		}
		if a.Frequency == 0 || a.Frequency == 0xffff {
			return fmt.Errorf("invalid analogue frequency 0x%04x", a.Frequency)
		}
	case RecordSrcExtPlug:
		if r.Plug == 0 {
			return fmt.Errorf("external plug 0 is invalid")
		}
	}
	return nil
}

// Features is the content of Report Features. RCProfile and DeviceFeatures
// hold the first byte of their operands; the extension bytes are kept in
// the Ext fields.
type Features struct {
	Version        Version
	AllDeviceTypes AllDeviceTypes
	RCProfile      uint8
	DeviceFeatures DeviceFeatures
	RCProfileExt   []byte
	FeaturesExt    []byte
}

const featureExtBit = 0x80

func (f Features) encode() []byte {
	b := []byte{byte(f.Version), byte(f.AllDeviceTypes)}
	rc := append([]byte{f.RCProfile}, f.RCProfileExt...)
	for i := range rc {
		if i < len(rc)-1 {
			rc[i] |= featureExtBit
		} else {
			rc[i] &^= featureExtBit
		}
	}
	df := append([]byte{byte(f.DeviceFeatures)}, f.FeaturesExt...)
	for i := range df {
		if i < len(df)-1 {
			df[i] |= featureExtBit
		} else {
			df[i] &^= featureExtBit
		}
	}
	return append(append(b, rc...), df...)
}

// TimerSpec is the scheduling part shared by all timer messages. Hours and
// minutes travel as BCD; day and month as plain bytes.
type TimerSpec struct {
	Day             uint8
	Month           uint8
	StartHour       uint8
	StartMinute     uint8
	DurationHours   uint8
	DurationMinutes uint8
	Sequence        RecordingSequence
}

func toBCD(v uint8) byte   { return (v/10)<<4 | v%10 }
func fromBCD(b byte) uint8 { return (b>>4)*10 + b&0x0f }

func (t TimerSpec) encode() []byte {
	return []byte{
		t.Day, t.Month,
		toBCD(t.StartHour), toBCD(t.StartMinute),
		toBCD(t.DurationHours), toBCD(t.DurationMinutes),
		byte(t.Sequence),
	}
}

func decodeTimerSpec(b []byte) TimerSpec {
	return TimerSpec{
		Day:             b[0],
		Month:           b[1],
		StartHour:       fromBCD(b[2]),
		StartMinute:     fromBCD(b[3]),
		DurationHours:   fromBCD(b[4]),
		DurationMinutes: fromBCD(b[5]),
		Sequence:        RecordingSequence(b[6]),
	}
}

// String formats the timer as day/month hh:mm+hh:mm.
func (t TimerSpec) String() string {
	return fmt.Sprintf("%02d/%02d %02d:%02d for %d:%02d seq 0x%02x",
		t.Day, t.Month, t.StartHour, t.StartMinute, t.DurationHours, t.DurationMinutes, uint8(t.Sequence))
}

// ExternalSource is the source part of the external timer messages.
type ExternalSource struct {
	Specifier ExternalSourceSpecifier
	Plug      uint8
	PhysAddr  PhysicalAddress
}

func (e ExternalSource) encode() []byte {
	if e.Specifier == ExtSrcPlug {
		return []byte{byte(e.Specifier), e.Plug}
	}
	return []byte{byte(e.Specifier), byte(e.PhysAddr >> 8), byte(e.PhysAddr)}
}

// TimerStatus is the operand of Timer Status. Programmed selects between
// Info and Error.
type TimerStatus struct {
	OverlapWarning  bool
	Media           MediaInfo
	Programmed      bool
	Info            ProgrammedInfo
	Error           ProgramError
	HasDuration     bool
	DurationHours   uint8
	DurationMinutes uint8
}

func (s TimerStatus) carriesDuration() bool {
	if s.Programmed {
		return s.Info == ProgInfoNotEnoughSpace || s.Info == ProgInfoMightNotBeEnoughSpace
	}
	return s.Error == ProgErrDuplicate
}

func (s TimerStatus) encode() []byte {
	b := byte(s.Media&0x03) << 5
	if s.OverlapWarning {
		b |= 0x80
	}
	if s.Programmed {
		b |= 0x10 | byte(s.Info)&0x0f
	} else {
		b |= byte(s.Error) & 0x0f
	}
	out := []byte{b}
	if s.HasDuration && s.carriesDuration() {
		out = append(out, toBCD(s.DurationHours), toBCD(s.DurationMinutes))
	}
	return out
}

// HECReport is the content of a CDC HEC Report State message.
type HECReport struct {
	PhysAddr       PhysicalAddress
	TargetPhysAddr PhysicalAddress
	HECState       HECFunctionState
	HostState      uint8
	ENCState       uint8
	ErrorCode      uint8
	HasField       bool
	Field          uint16
}
