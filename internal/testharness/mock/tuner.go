package mock

import (
	"github.com/cec-protocol/cec-go/pkg/cec"
)

type tunerState struct {
	channels []cec.TunerDeviceInfo
	current  int
	// wrapTo is where Tuner Step Increment lands after the last channel.
	wrapTo int
}

// defaultChannels is the channel list of NewTV.
func defaultChannels() []cec.TunerDeviceInfo {
	return []cec.TunerDeviceInfo{
		{
			Display: cec.TunerDisplayDigital,
			Digital: cec.DigitalServiceID{
				Method: cec.ServiceByDigitalID, System: cec.DigDVBT,
				TransportID: 1004, ServiceID: 1040, OriginalNetworkID: 8945,
			},
		},
		{
			Display: cec.TunerDisplayDigital,
			Digital: cec.DigitalServiceID{
				Method: cec.ServiceByDigitalID, System: cec.DigDVBC,
				TransportID: 1011, ServiceID: 28006, OriginalNetworkID: 1,
			},
		},
		{
			Display: cec.TunerDisplayDigital,
			Digital: cec.DigitalServiceID{
				Method: cec.ServiceByChannel, System: cec.DigATSCT,
				ChannelFormat: cec.ChannelTwoPart, Major: 4, Minor: 1,
			},
		},
		{
			Display:    cec.TunerDisplayAnalogue,
			IsAnalogue: true,
			Analogue: cec.AnalogueService{
				Type: cec.AnalogueCable, Frequency: cec.FrequencyFromKHz(471250), System: cec.BcastPALBG,
			},
		},
	}
}

func (d *Device) handleTuner() {
	d.handle(cec.OpGiveTunerDeviceStatus, handleGiveTunerStatus)
	d.handle(cec.OpTunerStepIncrement, handleTunerIncrement)
	d.handle(cec.OpTunerStepDecrement, handleTunerDecrement)
	d.handle(cec.OpSelectAnalogueService, handleSelectAnalogue)
	d.handle(cec.OpSelectDigitalService, handleSelectDigital)
}

// Channel returns the service the tuner is on.
func (d *Device) Channel() cec.TunerDeviceInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.tuner.channels[d.tuner.current]
}

func handleGiveTunerStatus(d *Device, f cec.Frame) []cec.Frame {
	b, ok := f.Operand(0)
	req := cec.StatusRequest(b)
	if !ok || !req.Valid() {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	if req == cec.StatusRequestOff {
		return nil
	}
	return d.directed(f, cec.TunerDeviceStatus(d.Address, f.Initiator, d.tuner.channels[d.tuner.current]))
}

// SetTunerWrap makes Tuner Step Increment continue at channel i after the
// last one, so the channels before i are never revisited.
func (d *Device) SetTunerWrap(i int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tuner.wrapTo = i
}

func handleTunerIncrement(d *Device, _ cec.Frame) []cec.Frame {
	d.tuner.current++
	if d.tuner.current == len(d.tuner.channels) {
		d.tuner.current = d.tuner.wrapTo
	}
	return nil
}

func handleTunerDecrement(d *Device, _ cec.Frame) []cec.Frame {
	n := len(d.tuner.channels)
	d.tuner.current = (d.tuner.current - 1 + n) % n
	return nil
}

// tune selects the first channel match accepts.
func (d *Device) tune(match func(cec.TunerDeviceInfo) bool) bool {
	for i, ch := range d.tuner.channels {
		if match(ch) {
			d.tuner.current = i
			return true
		}
	}
	return false
}

func handleSelectAnalogue(d *Device, f cec.Frame) []cec.Frame {
	s, err := f.AnalogueServiceInfo()
	if err != nil || !s.Type.Valid() || !s.System.Valid() || s.Frequency == 0 || s.Frequency == 0xffff {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	if !d.tune(func(ch cec.TunerDeviceInfo) bool { return ch.IsAnalogue && ch.Analogue == s }) {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	return nil
}

func handleSelectDigital(d *Device, f cec.Frame) []cec.Frame {
	id, err := f.DigitalServiceInfo()
	if err != nil || !id.System.Valid() {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	if !d.tune(func(ch cec.TunerDeviceInfo) bool { return !ch.IsAnalogue && ch.Digital == id }) {
		return d.abort(f, cec.AbortInvalidOperand)
	}
	return nil
}

// handleRecordTVScreen answers a recorder with the service on screen.
// Requests from other device types are ignored.
func handleRecordTVScreen(d *Device, f cec.Frame) []cec.Frame {
	if f.IsBroadcast() || !(cec.MaskRecord | cec.MaskBackup).Has(f.Initiator) {
		return nil
	}
	ch := d.tuner.channels[d.tuner.current]
	src := cec.RecordSource{Type: cec.RecordSrcDigital, Digital: ch.Digital}
	if ch.IsAnalogue {
		src = cec.RecordSource{Type: cec.RecordSrcAnalogue, Analogue: ch.Analogue}
	}
	return []cec.Frame{cec.RecordOn(d.Address, f.Initiator, src)}
}
