package cec

import "fmt"

// AudioStatus is the operand of Report Audio Status.
type AudioStatus struct {
	Mute bool
	// Volume is 0-100 percent, or VolumeUnknown.
	Volume uint8
}

// VolumeUnknown is reported when the audio system cannot tell its level.
const VolumeUnknown uint8 = 0x7f

// Valid reports whether the volume is a percentage or VolumeUnknown.
func (s AudioStatus) Valid() bool { return s.Volume <= 100 || s.Volume == VolumeUnknown }

func (s AudioStatus) encode() byte {
	b := s.Volume & 0x7f
	if s.Mute {
		b |= 0x80
	}
	return b
}

func (s AudioStatus) String() string {
	v := "unknown"
	if s.Volume != VolumeUnknown {
		v = fmt.Sprintf("%d%%", s.Volume)
	}
	if s.Mute {
		return v + " (muted)"
	}
	return v
}

// AudioRate is the operand of Set Audio Rate.
type AudioRate uint8

const (
	AudioRateOff          AudioRate = 0
	AudioRateWideNormal   AudioRate = 1
	AudioRateWideFast     AudioRate = 2
	AudioRateWideSlow     AudioRate = 3
	AudioRateNarrowNormal AudioRate = 4
	AudioRateNarrowFast   AudioRate = 5
	AudioRateNarrowSlow   AudioRate = 6
)

func (r AudioRate) Valid() bool { return r <= AudioRateNarrowSlow }

// Latency is the operand of Report Current Latency.
type Latency struct {
	PhysAddr PhysicalAddress
	// VideoLatency is (ms/2)+1; 0 and values above 251 are reserved.
	VideoLatency   uint8
	LowLatencyMode bool
	// AudioCompensated: 0 unknown, 1 not compensated, 2 compensated,
	// 3 partially compensated (AudioDelay present).
	AudioCompensated uint8
	AudioDelay       uint8
	HasAudioDelay    bool
}

// Audio output compensation values.
const (
	AudioCompUnknown uint8 = iota
	AudioCompNone
	AudioCompFull
	AudioCompPartial
)

// ValidLatency reports whether v is a defined latency value.
func ValidLatency(v uint8) bool { return v >= 1 && v <= 251 }

func (l Latency) encode() []byte {
	b := append(pa16(l.PhysAddr), l.VideoLatency, l.AudioCompensated&3)
	if l.LowLatencyMode {
		b[3] |= 0x04
	}
	if l.HasAudioDelay {
		b = append(b, l.AudioDelay)
	}
	return b
}

// AudioFormat names a Short Audio Descriptor request: the format id in the
// top two bits and the audio format code below.
type AudioFormat uint8

// Common audio format codes with format id 0.
const (
	AudioFormatLPCM AudioFormat = 0x01
	AudioFormatAC3  AudioFormat = 0x02
	AudioFormatDTS  AudioFormat = 0x07
)

// Code returns the audio format code.
func (a AudioFormat) Code() uint8 { return uint8(a) & 0x3f }

// ShortAudioDescriptor is one three byte SAD as carried in EDID.
type ShortAudioDescriptor [3]byte

// Code returns the audio format code of the descriptor.
func (d ShortAudioDescriptor) Code() uint8 { return d[0]>>3&0x0f }

// Builders.

func GiveAudioStatus(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpGiveAudioStatus)
}

func ReportAudioStatus(from, to LogicalAddress, s AudioStatus) Frame {
	return NewFrame(from, to, OpReportAudioStatus, s.encode())
}

func GiveSystemAudioModeStatus(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpGiveSystemAudioStatus)
}

func SystemAudioModeStatus(from, to LogicalAddress, on bool) Frame {
	return NewFrame(from, to, OpSystemAudioStatus, boolByte(on))
}

// SystemAudioModeRequest asks the audio system to turn system audio on for
// the source at pa. Without a physical address it asks to turn it off.
func SystemAudioModeRequest(from, to LogicalAddress, pa PhysicalAddress, on bool) Frame {
	if !on {
		return NewFrame(from, to, OpSystemAudioModeReq)
	}
	return NewFrame(from, to, OpSystemAudioModeReq, pa16(pa)...)
}

// SetSystemAudioMode is broadcast by the audio system, or directed to a TV
// that asked.
func SetSystemAudioMode(from, to LogicalAddress, on bool) Frame {
	return NewFrame(from, to, OpSetSystemAudioMode, boolByte(on))
}

// RequestShortAudioDescriptor asks for up to four formats.
func RequestShortAudioDescriptor(from, to LogicalAddress, formats ...AudioFormat) Frame {
	if len(formats) > 4 {
		formats = formats[:4]
	}
	b := make([]byte, len(formats))
	for i, a := range formats {
		b[i] = byte(a)
	}
	return NewFrame(from, to, OpRequestShortAudioDesc, b...)
}

func ReportShortAudioDescriptor(from, to LogicalAddress, sads ...ShortAudioDescriptor) Frame {
	var b []byte
	for _, d := range sads {
		b = append(b, d[:]...)
	}
	return NewFrame(from, to, OpReportShortAudioDesc, b...)
}

func SetAudioRate(from, to LogicalAddress, r AudioRate) Frame {
	return NewFrame(from, to, OpSetAudioRate, byte(r))
}

// RequestCurrentLatency is broadcast; the device at pa answers with a
// broadcast Report Current Latency.
func RequestCurrentLatency(from LogicalAddress, pa PhysicalAddress) Frame {
	return NewFrame(from, AddrBroadcast, OpRequestCurrentLatency, pa16(pa)...).WithReply(OpReportCurrentLatency)
}

func ReportCurrentLatency(from LogicalAddress, l Latency) Frame {
	return NewFrame(from, AddrBroadcast, OpReportCurrentLatency, l.encode()...)
}

func InitiateARC(from, to LogicalAddress) Frame { return NewFrame(from, to, OpInitiateARC) }

func TerminateARC(from, to LogicalAddress) Frame { return NewFrame(from, to, OpTerminateARC) }

func ReportARCInitiated(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpReportARCInitiated)
}

func ReportARCTerminated(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpReportARCTerminated)
}

func RequestARCInitiation(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpRequestARCInitiation)
}

func RequestARCTermination(from, to LogicalAddress) Frame {
	return NewFrame(from, to, OpRequestARCTermination)
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// Decoders.

// AudioStatusInfo decodes Report Audio Status.
func (f Frame) AudioStatusInfo() (AudioStatus, error) {
	if err := f.expect(OpReportAudioStatus); err != nil {
		return AudioStatus{}, err
	}
	if err := f.need(1); err != nil {
		return AudioStatus{}, err
	}
	b := f.operands[0]
	return AudioStatus{Mute: b&0x80 != 0, Volume: b & 0x7f}, nil
}

// SystemAudioStatusInfo decodes System Audio Mode Status and Set System
// Audio Mode. Values other than 0 and 1 are an error.
func (f Frame) SystemAudioStatusInfo() (bool, error) {
	if f.Poll || (f.Opcode != OpSystemAudioStatus && f.Opcode != OpSetSystemAudioMode) {
		return false, fmt.Errorf("cec: expected %s, got %s", OpSystemAudioStatus, f.Opcode)
	}
	if err := f.need(1); err != nil {
		return false, err
	}
	switch f.operands[0] {
	case 0:
		return false, nil
	case 1:
		return true, nil
	}
	return false, fmt.Errorf("cec: invalid system audio status 0x%02x", f.operands[0])
}

// SystemAudioModeRequestInfo decodes System Audio Mode Request. ok is false
// for the operand-less form that turns system audio off.
func (f Frame) SystemAudioModeRequestInfo() (pa PhysicalAddress, ok bool, err error) {
	if err := f.expect(OpSystemAudioModeReq); err != nil {
		return 0, false, err
	}
	if len(f.operands) < 2 {
		return 0, false, nil
	}
	return PhysicalAddress(f.u16(0)), true, nil
}

// ShortAudioDescriptors decodes Report Short Audio Descriptor.
func (f Frame) ShortAudioDescriptors() ([]ShortAudioDescriptor, error) {
	if err := f.expect(OpReportShortAudioDesc); err != nil {
		return nil, err
	}
	if err := f.need(3); err != nil {
		return nil, err
	}
	if len(f.operands)%3 != 0 {
		return nil, fmt.Errorf("cec: %d bytes is not a whole number of audio descriptors", len(f.operands))
	}
	sads := make([]ShortAudioDescriptor, 0, len(f.operands)/3)
	for i := 0; i < len(f.operands); i += 3 {
		sads = append(sads, ShortAudioDescriptor{f.operands[i], f.operands[i+1], f.operands[i+2]})
	}
	return sads, nil
}

// AudioFormats decodes Request Short Audio Descriptor.
func (f Frame) AudioFormats() ([]AudioFormat, error) {
	if err := f.expect(OpRequestShortAudioDesc); err != nil {
		return nil, err
	}
	if err := f.need(1); err != nil {
		return nil, err
	}
	out := make([]AudioFormat, len(f.operands))
	for i, b := range f.operands {
		out[i] = AudioFormat(b)
	}
	return out, nil
}

// AudioRateInfo decodes Set Audio Rate.
func (f Frame) AudioRateInfo() (AudioRate, error) {
	if err := f.expect(OpSetAudioRate); err != nil {
		return 0, err
	}
	if err := f.need(1); err != nil {
		return 0, err
	}
	return AudioRate(f.operands[0]), nil
}

// LatencyInfo decodes Report Current Latency.
func (f Frame) LatencyInfo() (Latency, error) {
	if err := f.expect(OpReportCurrentLatency); err != nil {
		return Latency{}, err
	}
	if err := f.need(4); err != nil {
		return Latency{}, err
	}
	l := Latency{
		PhysAddr:         PhysicalAddress(f.u16(0)),
		VideoLatency:     f.operands[2],
		LowLatencyMode:   f.operands[3]&0x04 != 0,
		AudioCompensated: f.operands[3] & 0x03,
	}
	if len(f.operands) > 4 {
		l.AudioDelay, l.HasAudioDelay = f.operands[4], true
	}
	return l, nil
}
