package mock

import "github.com/cec-protocol/cec-go/pkg/cec"

type audioState struct {
	status      cec.AudioStatus
	systemAudio bool
	arc         bool
	rate        cec.AudioRate
	sads        []cec.ShortAudioDescriptor
	latency     cec.Latency
}

// NewAudioSystem creates a CEC 2.0 audio system with ARC, system audio
// control and LPCM/AC-3 decoders.
func NewAudioSystem(la cec.LogicalAddress, pa cec.PhysicalAddress) *Device {
	d := NewDevice(la, pa, cec.PrimaryAudioSystem, cec.Version2_0)
	d.Features = cec.Features{
		AllDeviceTypes: cec.AllDevTypeAudioSystem,
		DeviceFeatures: cec.FeatureSourceARCRx,
	}
	d.audio = audioState{
		status: cec.AudioStatus{Volume: 30},
		sads: []cec.ShortAudioDescriptor{
			{0x09, 0x07, 0x07}, // LPCM, 2ch, 32-48 kHz
			{0x15, 0x07, 0x50}, // AC-3, 6ch
		},
		latency: cec.Latency{VideoLatency: 1, AudioCompensated: cec.AudioCompNone},
	}
	d.handle(cec.OpGiveAudioStatus, handleGiveAudioStatus)
	d.handle(cec.OpGiveSystemAudioStatus, handleGiveSystemAudioStatus)
	d.handle(cec.OpSystemAudioModeReq, handleSystemAudioModeRequest)
	d.handle(cec.OpRequestShortAudioDesc, handleRequestShortAudioDesc)
	d.handle(cec.OpSetAudioRate, handleSetAudioRate)
	d.handle(cec.OpInitiateARC, handleInitiateARC)
	d.handle(cec.OpTerminateARC, handleTerminateARC)
	d.handle(cec.OpRequestCurrentLatency, handleRequestCurrentLatency)
	return d
}

// AudioStatus returns the volume and mute state.
func (d *Device) AudioStatus() cec.AudioStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.audio.status
}

// SystemAudio reports whether system audio mode is on.
func (d *Device) SystemAudio() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.audio.systemAudio
}

// ARC reports whether the audio return channel is running.
func (d *Device) ARC() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.audio.arc
}

// AudioRate returns the last rate accepted by Set Audio Rate.
func (d *Device) AudioRate() cec.AudioRate {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.audio.rate
}

// SetLatency replaces the values reported for Request Current Latency.
// The physical address is always the device's own.
func (d *Device) SetLatency(l cec.Latency) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.audio.latency = l
}

func handleGiveAudioStatus(d *Device, f cec.Frame) []cec.Frame {
	return d.directed(f, cec.ReportAudioStatus(d.Address, f.Initiator, d.audio.status))
}

func handleGiveSystemAudioStatus(d *Device, f cec.Frame) []cec.Frame {
	return d.directed(f, cec.SystemAudioModeStatus(d.Address, f.Initiator, d.audio.systemAudio))
}

// handleSystemAudioModeRequest switches system audio and announces the new
// mode to everyone.
func handleSystemAudioModeRequest(d *Device, f cec.Frame) []cec.Frame {
	_, on, err := f.SystemAudioModeRequestInfo()
	if err != nil {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	d.audio.systemAudio = on
	return []cec.Frame{cec.SetSystemAudioMode(d.Address, cec.AddrBroadcast, on)}
}

// handleRequestShortAudioDesc reports the descriptors for the requested
// formats it decodes, refusing the request when it decodes none.
func handleRequestShortAudioDesc(d *Device, f cec.Frame) []cec.Frame {
	formats, err := f.AudioFormats()
	if err != nil {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	var found []cec.ShortAudioDescriptor
	for _, a := range formats {
		for _, sad := range d.audio.sads {
			// Extended format ids are not decoded.
			if a>>6 == 0 && sad.Code() == a.Code() {
				found = append(found, sad)
			}
		}
	}
	if len(found) == 0 {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	return d.directed(f, cec.ReportShortAudioDescriptor(d.Address, f.Initiator, found...))
}

func handleSetAudioRate(d *Device, f cec.Frame) []cec.Frame {
	r, err := f.AudioRateInfo()
	if err != nil || !r.Valid() {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	d.audio.rate = r
	return nil
}

func handleInitiateARC(d *Device, f cec.Frame) []cec.Frame {
	d.audio.arc = true
	return d.directed(f, cec.ReportARCInitiated(d.Address, f.Initiator))
}

func handleTerminateARC(d *Device, f cec.Frame) []cec.Frame {
	d.audio.arc = false
	return d.directed(f, cec.ReportARCTerminated(d.Address, f.Initiator))
}

// handleRequestCurrentLatency answers only requests naming the device's
// physical address.
func handleRequestCurrentLatency(d *Device, f cec.Frame) []cec.Frame {
	pa, err := f.PhysAddrOperand()
	if err != nil || pa != d.PhysAddr {
		return nil
	}
	l := d.audio.latency
	l.PhysAddr = d.PhysAddr
	return []cec.Frame{cec.ReportCurrentLatency(d.Address, l)}
}

// TV side of ARC: the TV transmits audio and starts or stops the channel
// when the audio system asks.

func handleRequestARCInitiation(d *Device, f cec.Frame) []cec.Frame {
	return d.directed(f, cec.InitiateARC(d.Address, f.Initiator))
}

func handleRequestARCTermination(d *Device, f cec.Frame) []cec.Frame {
	return d.directed(f, cec.TerminateARC(d.Address, f.Initiator))
}

func handleReportARC(d *Device, f cec.Frame) []cec.Frame {
	d.audio.arc = f.Opcode == cec.OpReportARCInitiated
	return nil
}
