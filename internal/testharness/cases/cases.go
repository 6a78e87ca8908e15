// Package cases is the catalogue of CEC compliance cases, grouped by
// feature area in the order they run.
package cases

import (
	"github.com/cec-protocol/cec-go/internal/testharness/engine"
	"github.com/cec-protocol/cec-go/pkg/cec"
)

// Areas returns every area in schedule order.
func Areas() []engine.Area {
	return []engine.Area{
		{
			Name: "Core",
			Tags: engine.TagCore,
			Cases: []engine.Case{
				{Name: "Feature aborts unknown messages", Mask: cec.MaskAll, Body: coreUnknown},
				{Name: "Feature aborts Abort message", Mask: cec.MaskAll, Body: coreAbort},
			},
		},
		{
			Name: "Give Device Power Status feature",
			Tags: engine.TagPowerStatus,
			Cases: []engine.Case{
				{Name: "Give Device Power Status", Mask: cec.MaskAll, Body: powerStatusGive},
			},
		},
		{
			Name: "System Information feature",
			Tags: engine.TagSystemInformation,
			Cases: []engine.Case{
				{Name: "Polling Message", Mask: cec.MaskAll, Body: systemInfoPolling},
				{Name: "Give Physical Address", Mask: cec.MaskAll, Body: systemInfoPhysAddr},
				{Name: "Give CEC Version", Mask: cec.MaskAll, Body: systemInfoVersion},
				{Name: "Get Menu Language", Mask: cec.MaskAll, Body: systemInfoGetMenuLang},
				{Name: "Set Menu Language", Mask: cec.MaskAll, Body: systemInfoSetMenuLang},
				{Name: "Give Device Features", Mask: cec.MaskAll, Body: systemInfoGiveFeatures},
			},
		},
		{
			Name: "Vendor Specific Commands feature",
			Tags: engine.TagVendorSpecific,
			Cases: []engine.Case{
				{Name: "Give Device Vendor ID", Mask: cec.MaskAll, Body: vendorID},
			},
		},
		{
			Name: "Device OSD Transfer feature",
			Tags: engine.TagDeviceOSDTransfer,
			Cases: []engine.Case{
				{Name: "Set OSD Name", Mask: cec.MaskAll, Body: osdNameSet},
				{Name: "Give OSD Name", Mask: cec.MaskAll, Body: osdNameGive},
			},
		},
		{
			Name: "OSD String feature",
			Tags: engine.TagOSDDisplay,
			Cases: []engine.Case{
				{Name: "Set OSD String with default timeout", Mask: cec.MaskTV, Body: osdStringDefault},
				{Name: "Set OSD String with no timeout", Mask: cec.MaskTV, Body: osdStringUntilCleared},
				{Name: "Set OSD String with invalid operand", Mask: cec.MaskTV, Body: osdStringInvalid},
			},
		},
		{
			Name: "Remote Control Passthrough feature",
			Tags: engine.TagRCPassthrough,
			Cases: []engine.Case{
				{Name: "User Control Pressed", Mask: cec.MaskAll, Body: userControlPressed},
				{Name: "User Control Released", Mask: cec.MaskAll, Body: userControlReleased},
			},
		},
		{
			Name: "Device Menu Control feature",
			Tags: engine.TagDeviceMenuControl,
			Cases: []engine.Case{
				{Name: "Menu Request", Mask: cec.MaskAll &^ cec.MaskTV, Body: menuRequest},
				{Name: "User Control Pressed", Mask: cec.MaskAll, Body: userControlPressed},
				{Name: "User Control Released", Mask: cec.MaskAll, Body: userControlReleased},
			},
		},
		{
			Name: "Deck Control feature",
			Tags: engine.TagDeckControl,
			Cases: []engine.Case{
				{Name: "Give Deck Status", Mask: deckMask, Body: deckGiveStatus},
				{Name: "Give Deck Status Invalid Operand", Mask: deckMask, Body: deckGiveStatusInvalid},
				{Name: "Deck Control", Mask: deckMask, Body: deckControl},
				{Name: "Deck Control Invalid Operand", Mask: deckMask, Body: deckControlInvalid},
				{Name: "Play", Mask: deckMask, Body: deckPlay},
				{Name: "Play Invalid Operand", Mask: deckMask, Body: deckPlayInvalid},
			},
		},
		{
			Name: "Tuner Control feature",
			Tags: engine.TagTunerControl,
			Cases: []engine.Case{
				{Name: "Tuner Control", Mask: tunerMask, Body: tunerControl},
			},
		},
		{
			Name: "One Touch Record feature",
			Tags: engine.TagOneTouchRecord,
			Cases: []engine.Case{
				{Name: "Record TV Screen", Mask: cec.MaskTV, Body: recordTVScreen},
				{Name: "Record On", Mask: recordMask, Body: recordOn},
				{Name: "Record On Invalid Operand", Mask: recordMask, Body: recordOnInvalid},
				{Name: "Record Off", Mask: recordMask, Body: recordOff},
			},
		},
		{
			Name: "Timer Programming feature",
			Tags: engine.TagTimerProgramming,
			Cases: []engine.Case{
				{Name: "Set Analogue Timer", Mask: recordMask, Body: timerSetAnalogue},
				{Name: "Set Digital Timer", Mask: recordMask, Body: timerSetDigital},
				{Name: "Set Timer Program Title", Mask: recordMask, Body: timerSetProgramTitle},
				{Name: "Set External Timer", Mask: recordMask, Body: timerSetExternal},
				{Name: "Clear Analogue Timer", Mask: recordMask, Body: timerClearAnalogue},
				{Name: "Clear Digital Timer", Mask: recordMask, Body: timerClearDigital},
				{Name: "Clear External Timer", Mask: recordMask, Body: timerClearExternal},
				{Name: "Set Timers with Errors", Mask: recordMask, Body: timerErrors},
				{Name: "Set Overlapping Timers", Mask: recordMask, Body: timerOverlap},
			},
		},
		{
			Name: "Capability Discovery and Control feature",
			Tags: engine.TagCapDiscovery,
			Cases: []engine.Case{
				{Name: "CDC HEC Discover", Mask: cec.MaskAll, Body: cdcHECDiscover},
			},
		},
		{
			Name: "Dynamic Auto Lipsync feature",
			Tags: engine.TagDynamicAutoLipsync,
			Cases: []engine.Case{
				{Name: "Request Current Latency", Mask: audioSinkMask, ForCEC20: true, Body: dalRequestLatency},
				{Name: "Request Current Latency for another address", Mask: audioSinkMask, ForCEC20: true, Body: dalForeignAddress},
			},
		},
		{
			Name: "Audio Return Channel feature",
			Tags: engine.TagARCControl,
			Cases: []engine.Case{
				{Name: "Initiate ARC (RX)", Mask: cec.MaskAudioSystem, Body: arcInitiateRx},
				{Name: "Terminate ARC (RX)", Mask: cec.MaskAudioSystem, Body: arcTerminateRx},
				{Name: "Request ARC Initiation (TX)", Mask: cec.MaskTV, Body: arcInitiateTx},
				{Name: "Request ARC Termination (TX)", Mask: cec.MaskTV, Body: arcTerminateTx},
			},
		},
		{
			Name: "System Audio Control feature",
			Tags: engine.TagSystemAudioControl,
			Cases: []engine.Case{
				{Name: "Give Audio Status", Mask: cec.MaskAudioSystem, Body: sacGiveAudioStatus},
				{Name: "Give System Audio Mode Status", Mask: cec.MaskAudioSystem, Body: sacGiveModeStatus},
				{Name: "System Audio Mode Request on", Mask: cec.MaskAudioSystem, Body: sacModeOn},
				{Name: "System Audio Mode Request off", Mask: cec.MaskAudioSystem, Body: sacModeOff},
				{Name: "Request Short Audio Descriptor", Mask: cec.MaskAudioSystem, Body: sacShortAudioDescriptor},
			},
		},
		{
			Name: "Audio Rate Control feature",
			Tags: engine.TagAudioRateControl,
			Cases: []engine.Case{
				{Name: "Set Audio Rate", Mask: audioSinkMask, Body: audioRateSet},
				{Name: "Set Audio Rate Invalid Operand", Mask: audioSinkMask, Body: audioRateInvalid},
			},
		},
		{
			Name: "Routing Control feature",
			Tags: engine.TagRoutingControl,
			Cases: []engine.Case{
				{Name: "Active Source", Mask: cec.MaskTV, Body: routingActiveSource},
				{Name: "Request Active Source", Mask: cec.MaskAll, Body: routingRequestActiveSource},
				{Name: "Inactive Source", Mask: cec.MaskTV, Body: routingInactiveSource},
				{Name: "Set Stream Path", Mask: cec.MaskAll, Body: routingSetStreamPath},
			},
		},
		{
			Name: "Standby/Resume and Power Status",
			Tags: engine.TagPowerStatus | engine.TagStandbyResume,
			Cases: []engine.Case{
				{Name: "Standby", Mask: cec.MaskAll, InStandby: true, Body: standbyEnter},
				{Name: "Poll in standby", Mask: cec.MaskAll, InStandby: true, Body: standbyPoll},
				{Name: "Wake up", Mask: cec.MaskAll, InStandby: true, Body: standbyWake},
				{Name: "Report Power Status on wake", Mask: cec.MaskAll, InStandby: true, ForCEC20: true, Body: standbyReportOnWake},
			},
		},
		{
			Name: "Post-test checks",
			Tags: engine.TagCore,
			Cases: []engine.Case{
				{Name: "Recognized/unrecognized message consistency", Mask: cec.MaskAll, Body: postCheckRecognized},
			},
		},
	}
}

const (
	deckMask      = cec.MaskPlayback | cec.MaskRecord
	tunerMask     = cec.MaskTuner | cec.MaskTV
	recordMask    = cec.MaskRecord | cec.MaskBackup
	audioSinkMask = cec.MaskTV | cec.MaskAudioSystem
)

// NewRegistry builds a registry holding the full catalogue.
func NewRegistry() (*engine.Registry, error) {
	return engine.NewRegistry(Areas()...)
}
