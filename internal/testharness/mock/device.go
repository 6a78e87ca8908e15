// Package mock provides a simulated CEC bus and compliant device profiles
// for testing the engine and the case catalogue without hardware.
package mock

import (
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/cec-protocol/cec-go/pkg/cec"
)

// HandlerFunc answers one frame delivered to a device and returns the
// frames the device transmits in response. It runs with the device lock
// held.
type HandlerFunc func(d *Device, f cec.Frame) []cec.Frame

// Device is a simulated CEC follower.
//
// Opcodes without a handler are refused with Feature Abort [Unrecognized
// opcode] when directed and ignored when broadcast.
type Device struct {
	Address  cec.LogicalAddress
	PhysAddr cec.PhysicalAddress
	Primary  cec.PrimaryDeviceType
	Version  cec.Version
	VendorID uint32
	OSDName  string

	// Language is reported by TVs for Get Menu Language.
	Language string

	// Features is sent for Give Features. Its Version is taken from the
	// device.
	Features cec.Features

	// Clock dates timers. Nil means time.Now.
	Clock func() time.Time

	handlers map[cec.Opcode]HandlerFunc
	received []cec.Frame

	power        cec.PowerStatus
	active       bool
	osdText      string
	deck         deckState
	tuner        tunerState
	audio        audioState
	recording    bool
	timers       *xsync.MapOf[timerKey, cec.TimerSpec]
	timerDateErr cec.ProgramError

	mu sync.Mutex
}

// NewDevice creates a powered-on device that implements the messages every
// CEC device must support. Profiles such as NewTV add the rest.
func NewDevice(la cec.LogicalAddress, pa cec.PhysicalAddress, prim cec.PrimaryDeviceType, v cec.Version) *Device {
	d := &Device{
		Address:  la,
		PhysAddr: pa,
		Primary:  prim,
		Version:  v,
		VendorID: 0x000c03,
		OSDName:  "Mock " + prim.String(),
		Language: "eng",
		handlers: make(map[cec.Opcode]HandlerFunc),
		power:    cec.PowerOn,
		timers:   xsync.NewMapOf[timerKey, cec.TimerSpec](),
	}
	d.handle(cec.OpAbort, handleAbort)
	d.handle(cec.OpGivePhysicalAddr, handleGivePhysicalAddr)
	d.handle(cec.OpGetCECVersion, handleGetCECVersion)
	d.handle(cec.OpGiveDeviceVendorID, handleGiveVendorID)
	d.handle(cec.OpGiveOSDName, handleGiveOSDName)
	d.handle(cec.OpGiveDevicePowerStatus, handleGivePowerStatus)
	d.handle(cec.OpStandby, handleStandby)
	d.handle(cec.OpUserControlPressed, handleUserControlPressed)
	d.handle(cec.OpUserControlReleased, ignore)
	d.handle(cec.OpActiveSource, handleActiveSource)
	d.handle(cec.OpRequestActiveSource, handleRequestActiveSource)
	d.handle(cec.OpSetStreamPath, handleSetStreamPath)
	if v >= cec.Version2_0 {
		d.handle(cec.OpGiveFeatures, handleGiveFeatures)
	}
	return d
}

// NewTV creates a CEC 2.0 TV with a tuner, an on screen display, an ARC
// transmitter and a HEC capable HDMI input.
func NewTV(la cec.LogicalAddress, pa cec.PhysicalAddress) *Device {
	d := NewDevice(la, pa, cec.PrimaryTV, cec.Version2_0)
	d.Features = cec.Features{
		AllDeviceTypes: cec.AllDevTypeTV,
		RCProfile:      0x02,
		DeviceFeatures: cec.FeatureRecordTVScreen | cec.FeatureSetOSDString | cec.FeatureSinkARCTx,
	}
	d.tuner = tunerState{channels: defaultChannels()}
	d.audio.latency = cec.Latency{VideoLatency: 41, AudioCompensated: cec.AudioCompFull}
	d.handle(cec.OpGetMenuLanguage, handleGetMenuLanguage)
	d.handle(cec.OpSetOSDName, ignore)
	d.handle(cec.OpSetOSDString, handleSetOSDString)
	d.handle(cec.OpImageViewOn, handleWake)
	d.handle(cec.OpTextViewOn, handleWake)
	d.handle(cec.OpInactiveSource, handleInactiveSource)
	d.handle(cec.OpRecordTVScreen, handleRecordTVScreen)
	d.handle(cec.OpCDCMessage, handleCDC)
	d.handle(cec.OpRequestARCInitiation, handleRequestARCInitiation)
	d.handle(cec.OpRequestARCTermination, handleRequestARCTermination)
	d.handle(cec.OpReportARCInitiated, handleReportARC)
	d.handle(cec.OpReportARCTerminated, handleReportARC)
	d.handle(cec.OpRequestCurrentLatency, handleRequestCurrentLatency)
	d.handleTuner()
	return d
}

// NewPlayback creates a CEC 2.0 playback device with a loaded deck.
func NewPlayback(la cec.LogicalAddress, pa cec.PhysicalAddress) *Device {
	d := NewDevice(la, pa, cec.PrimaryPlayback, cec.Version2_0)
	d.Features = cec.Features{
		AllDeviceTypes: cec.AllDevTypePlayback,
		RCProfile:      0x0f,
		DeviceFeatures: cec.FeatureDeckControl,
	}
	d.deck = deckState{info: cec.DeckStop, media: true}
	d.handle(cec.OpMenuRequest, handleMenuRequest)
	d.handleDeck()
	return d
}

// NewRecorder creates a CEC 1.4 recording device with a deck, one touch
// record and timer programming.
func NewRecorder(la cec.LogicalAddress, pa cec.PhysicalAddress) *Device {
	d := NewDevice(la, pa, cec.PrimaryRecord, cec.Version1_4)
	d.deck = deckState{info: cec.DeckStop, media: true}
	d.handle(cec.OpMenuRequest, handleMenuRequest)
	d.handleDeck()
	d.handleRecord()
	d.handleTimers()
	return d
}

func (d *Device) handle(op cec.Opcode, fn HandlerFunc) { d.handlers[op] = fn }

// SetHandler replaces the handler for op. A nil fn makes the device refuse
// op as unrecognized.
func (d *Device) SetHandler(op cec.Opcode, fn HandlerFunc) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if fn == nil {
		delete(d.handlers, op)
		return
	}
	d.handlers[op] = fn
}

// Handle delivers f to the device and returns its responses.
func (d *Device) Handle(f cec.Frame) []cec.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.received = append(d.received, f)
	if f.Poll || f.Opcode == cec.OpFeatureAbort {
		return nil
	}
	h, ok := d.handlers[f.Opcode]
	if !ok {
		if f.IsBroadcast() {
			return nil
		}
		return d.abort(f, cec.AbortUnrecognizedOpcode)
	}
	return h(d, f)
}

// Received returns a copy of every frame delivered to the device.
func (d *Device) Received() []cec.Frame {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]cec.Frame(nil), d.received...)
}

// PowerStatus returns the current power state.
func (d *Device) PowerStatus() cec.PowerStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.power
}

// SetPowerStatus forces the power state without announcing it.
func (d *Device) SetPowerStatus(p cec.PowerStatus) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.power = p
}

// Active reports whether the device considers itself the active source.
func (d *Device) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// OSDText returns the string currently shown on screen.
func (d *Device) OSDText() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.osdText
}

// Recording reports whether a one touch recording is running.
func (d *Device) Recording() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.recording
}

func (d *Device) now() time.Time {
	if d.Clock != nil {
		return d.Clock()
	}
	return time.Now()
}

func (d *Device) abort(f cec.Frame, reason cec.AbortReason) []cec.Frame {
	return []cec.Frame{cec.FeatureAbort(d.Address, f.Initiator, f.Opcode, reason)}
}

// directed replies only to frames addressed to the device.
func (d *Device) directed(f cec.Frame, reply cec.Frame) []cec.Frame {
	if f.IsBroadcast() {
		return nil
	}
	return []cec.Frame{reply}
}

func ignore(*Device, cec.Frame) []cec.Frame { return nil }
