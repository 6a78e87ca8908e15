package cec

import "fmt"

// AbortReason is the reason operand of a Feature Abort.
type AbortReason uint8

const (
	AbortUnrecognizedOpcode AbortReason = 0
	AbortIncorrectMode      AbortReason = 1
	AbortNoSource           AbortReason = 2
	AbortInvalidOperand     AbortReason = 3
	AbortRefused            AbortReason = 4
	AbortUndetermined       AbortReason = 5
)

// String returns the reason name.
func (r AbortReason) String() string {
	switch r {
	case AbortUnrecognizedOpcode:
		return "Unrecognized Op"
	case AbortIncorrectMode:
		return "Incorrect Mode"
	case AbortNoSource:
		return "No Source"
	case AbortInvalidOperand:
		return "Invalid Op"
	case AbortRefused:
		return "Refused"
	case AbortUndetermined:
		return "Undetermined"
	default:
		return fmt.Sprintf("Unknown Reason (%d)", uint8(r))
	}
}

// Version is the CEC version operand.
type Version uint8

const (
	Version1_3a Version = 4
	Version1_4  Version = 5
	Version2_0  Version = 6
)

// String returns the version in dotted form.
func (v Version) String() string {
	switch v {
	case Version1_3a:
		return "1.3a"
	case Version1_4:
		return "1.4"
	case Version2_0:
		return "2.0"
	default:
		return fmt.Sprintf("Unknown (%d)", uint8(v))
	}
}

// Valid reports whether v is a version this engine knows how to test.
func (v Version) Valid() bool { return v >= Version1_3a && v <= Version2_0 }

// PrimaryDeviceType is the device type sent with Report Physical Address.
type PrimaryDeviceType uint8

const (
	PrimaryTV          PrimaryDeviceType = 0
	PrimaryRecord      PrimaryDeviceType = 1
	PrimaryTuner       PrimaryDeviceType = 3
	PrimaryPlayback    PrimaryDeviceType = 4
	PrimaryAudioSystem PrimaryDeviceType = 5
	PrimarySwitch      PrimaryDeviceType = 6
	PrimaryProcessor   PrimaryDeviceType = 7
)

// String returns the device type name.
func (t PrimaryDeviceType) String() string {
	switch t {
	case PrimaryTV:
		return "TV"
	case PrimaryRecord:
		return "Record"
	case PrimaryTuner:
		return "Tuner"
	case PrimaryPlayback:
		return "Playback"
	case PrimaryAudioSystem:
		return "Audio System"
	case PrimarySwitch:
		return "Switch"
	case PrimaryProcessor:
		return "Processor"
	default:
		return fmt.Sprintf("Reserved (%d)", uint8(t))
	}
}

// ParsePrimaryDeviceType maps a lowercase type name to its value.
func ParsePrimaryDeviceType(s string) (PrimaryDeviceType, error) {
	switch s {
	case "tv":
		return PrimaryTV, nil
	case "record":
		return PrimaryRecord, nil
	case "tuner":
		return PrimaryTuner, nil
	case "playback":
		return PrimaryPlayback, nil
	case "audio", "audiosystem":
		return PrimaryAudioSystem, nil
	case "switch":
		return PrimarySwitch, nil
	case "processor":
		return PrimaryProcessor, nil
	}
	return 0, fmt.Errorf("unknown primary device type %q", s)
}

// AllDeviceTypes is the bitmap operand of Report Features.
type AllDeviceTypes uint8

const (
	AllDevTypeTV          AllDeviceTypes = 0x80
	AllDevTypeRecord      AllDeviceTypes = 0x40
	AllDevTypeTuner       AllDeviceTypes = 0x20
	AllDevTypePlayback    AllDeviceTypes = 0x10
	AllDevTypeAudioSystem AllDeviceTypes = 0x08
	AllDevTypeSwitch      AllDeviceTypes = 0x04
)

// DeviceFeatures is the first byte of the Device Features operand.
type DeviceFeatures uint8

const (
	FeatureRecordTVScreen DeviceFeatures = 0x40
	FeatureSetOSDString   DeviceFeatures = 0x20
	FeatureDeckControl    DeviceFeatures = 0x10
	FeatureSetAudioRate   DeviceFeatures = 0x08
	FeatureSinkARCTx      DeviceFeatures = 0x04
	FeatureSourceARCRx    DeviceFeatures = 0x02
)

// Has reports whether all bits of f are set.
func (d DeviceFeatures) Has(f DeviceFeatures) bool { return d&f == f }

// PowerStatus is the operand of Report Power Status.
type PowerStatus uint8

const (
	PowerOn        PowerStatus = 0
	PowerStandby   PowerStatus = 1
	PowerToOn      PowerStatus = 2
	PowerToStandby PowerStatus = 3
)

// String returns the power status name.
func (p PowerStatus) String() string {
	switch p {
	case PowerOn:
		return "On"
	case PowerStandby:
		return "Standby"
	case PowerToOn:
		return "In transition Standby to On"
	case PowerToStandby:
		return "In transition On to Standby"
	default:
		return fmt.Sprintf("Unknown (%d)", uint8(p))
	}
}

// StatusRequest selects one-shot or continuous status reporting.
type StatusRequest uint8

const (
	StatusRequestOn   StatusRequest = 1
	StatusRequestOff  StatusRequest = 2
	StatusRequestOnce StatusRequest = 3
)

// Valid reports whether r is a defined request value.
func (r StatusRequest) Valid() bool { return r >= StatusRequestOn && r <= StatusRequestOnce }

// DeckInfo is the operand of Deck Status.
type DeckInfo uint8

const (
	DeckPlay           DeckInfo = 0x11
	DeckRecord         DeckInfo = 0x12
	DeckPlayRev        DeckInfo = 0x13
	DeckStill          DeckInfo = 0x14
	DeckSlow           DeckInfo = 0x15
	DeckSlowRev        DeckInfo = 0x16
	DeckFastFwd        DeckInfo = 0x17
	DeckFastRev        DeckInfo = 0x18
	DeckNoMedia        DeckInfo = 0x19
	DeckStop           DeckInfo = 0x1a
	DeckSkipFwd        DeckInfo = 0x1b
	DeckSkipRev        DeckInfo = 0x1c
	DeckIndexSearchFwd DeckInfo = 0x1d
	DeckIndexSearchRev DeckInfo = 0x1e
	DeckOther          DeckInfo = 0x1f
)

// Valid reports whether d is within the defined range.
func (d DeckInfo) Valid() bool { return d >= DeckPlay && d <= DeckOther }

// String returns the deck state name.
func (d DeckInfo) String() string {
	switch d {
	case DeckPlay:
		return "Play"
	case DeckRecord:
		return "Record"
	case DeckPlayRev:
		return "Play Reverse"
	case DeckStill:
		return "Still"
	case DeckSlow:
		return "Slow"
	case DeckSlowRev:
		return "Slow Reverse"
	case DeckFastFwd:
		return "Fast Forward"
	case DeckFastRev:
		return "Fast Reverse"
	case DeckNoMedia:
		return "No Media"
	case DeckStop:
		return "Stop"
	case DeckSkipFwd:
		return "Skip Forward"
	case DeckSkipRev:
		return "Skip Reverse"
	case DeckIndexSearchFwd:
		return "Index Search Forward"
	case DeckIndexSearchRev:
		return "Index Search Reverse"
	case DeckOther:
		return "Other"
	default:
		return fmt.Sprintf("Unknown (0x%02x)", uint8(d))
	}
}

// DeckControlMode is the operand of Deck Control.
type DeckControlMode uint8

const (
	DeckCtlSkipFwd DeckControlMode = 1
	DeckCtlSkipRev DeckControlMode = 2
	DeckCtlStop    DeckControlMode = 3
	DeckCtlEject   DeckControlMode = 4
)

// Valid reports whether m is a defined mode.
func (m DeckControlMode) Valid() bool { return m >= DeckCtlSkipFwd && m <= DeckCtlEject }

// PlayMode is the operand of Play.
type PlayMode uint8

const (
	PlayFwd        PlayMode = 0x24
	PlayRev        PlayMode = 0x20
	PlayStill      PlayMode = 0x25
	PlayFastFwdMin PlayMode = 0x05
	PlayFastFwdMed PlayMode = 0x06
	PlayFastFwdMax PlayMode = 0x07
	PlayFastRevMin PlayMode = 0x09
	PlayFastRevMed PlayMode = 0x0a
	PlayFastRevMax PlayMode = 0x0b
	PlaySlowFwdMin PlayMode = 0x15
	PlaySlowFwdMed PlayMode = 0x16
	PlaySlowFwdMax PlayMode = 0x17
	PlaySlowRevMin PlayMode = 0x19
	PlaySlowRevMed PlayMode = 0x1a
	PlaySlowRevMax PlayMode = 0x1b
)

// DeckInfo returns the deck state a deck enters for the play mode.
func (m PlayMode) DeckInfo() (DeckInfo, bool) {
	switch m {
	case PlayFwd:
		return DeckPlay, true
	case PlayRev:
		return DeckPlayRev, true
	case PlayStill:
		return DeckStill, true
	case PlayFastFwdMin, PlayFastFwdMed, PlayFastFwdMax:
		return DeckFastFwd, true
	case PlayFastRevMin, PlayFastRevMed, PlayFastRevMax:
		return DeckFastRev, true
	case PlaySlowFwdMin, PlaySlowFwdMed, PlaySlowFwdMax:
		return DeckSlow, true
	case PlaySlowRevMin, PlaySlowRevMed, PlaySlowRevMax:
		return DeckSlowRev, true
	default:
		return 0, false
	}
}

// AnalogueBroadcastType is the analogue service medium.
type AnalogueBroadcastType uint8

const (
	AnalogueCable       AnalogueBroadcastType = 0
	AnalogueSatellite   AnalogueBroadcastType = 1
	AnalogueTerrestrial AnalogueBroadcastType = 2
)

// Valid reports whether t is a defined broadcast type.
func (t AnalogueBroadcastType) Valid() bool { return t <= AnalogueTerrestrial }

// String returns the medium name.
func (t AnalogueBroadcastType) String() string {
	switch t {
	case AnalogueCable:
		return "Cable"
	case AnalogueSatellite:
		return "Satellite"
	case AnalogueTerrestrial:
		return "Terrestrial"
	default:
		return "Future use"
	}
}

// BroadcastSystem is the analogue broadcast system.
type BroadcastSystem uint8

const (
	BcastPALBG   BroadcastSystem = 0x00
	BcastSECAMLq BroadcastSystem = 0x01
	BcastPALM    BroadcastSystem = 0x02
	BcastNTSCM   BroadcastSystem = 0x03
	BcastPALI    BroadcastSystem = 0x04
	BcastSECAMDK BroadcastSystem = 0x05
	BcastSECAMBG BroadcastSystem = 0x06
	BcastSECAML  BroadcastSystem = 0x07
	BcastPALDK   BroadcastSystem = 0x08
	BcastOther   BroadcastSystem = 0x1f
)

// Valid reports whether s names a concrete broadcast system. BcastOther is
// accepted only where the caller allows it.
func (s BroadcastSystem) Valid() bool { return s <= BcastPALDK }

// String returns the system name.
func (s BroadcastSystem) String() string {
	switch s {
	case BcastPALBG:
		return "PAL B/G"
	case BcastSECAMLq:
		return "SECAM L'"
	case BcastPALM:
		return "PAL M"
	case BcastNTSCM:
		return "NTSC M"
	case BcastPALI:
		return "PAL I"
	case BcastSECAMDK:
		return "SECAM DK"
	case BcastSECAMBG:
		return "SECAM B/G"
	case BcastSECAML:
		return "SECAM L"
	case BcastPALDK:
		return "PAL DK"
	case BcastOther:
		return "Other"
	default:
		return fmt.Sprintf("Future use (%d)", uint8(s))
	}
}

// DigitalBroadcastSystem is the digital broadcast system of a service.
type DigitalBroadcastSystem uint8

const (
	DigARIBGeneric DigitalBroadcastSystem = 0x00
	DigATSCGeneric DigitalBroadcastSystem = 0x01
	DigDVBGeneric  DigitalBroadcastSystem = 0x02
	DigARIBBS      DigitalBroadcastSystem = 0x08
	DigARIBCS      DigitalBroadcastSystem = 0x09
	DigARIBT       DigitalBroadcastSystem = 0x0a
	DigATSCCable   DigitalBroadcastSystem = 0x10
	DigATSCSat     DigitalBroadcastSystem = 0x11
	DigATSCT       DigitalBroadcastSystem = 0x12
	DigDVBC        DigitalBroadcastSystem = 0x18
	DigDVBS        DigitalBroadcastSystem = 0x19
	DigDVBS2       DigitalBroadcastSystem = 0x1a
	DigDVBT        DigitalBroadcastSystem = 0x1b
)

// Family groups digital broadcast systems by identification scheme.
type Family uint8

const (
	FamilyUnknown Family = iota
	FamilyARIB
	FamilyATSC
	FamilyDVB
)

// Family returns the identification scheme of the system.
func (s DigitalBroadcastSystem) Family() Family {
	switch s {
	case DigARIBGeneric, DigARIBBS, DigARIBCS, DigARIBT:
		return FamilyARIB
	case DigATSCGeneric, DigATSCCable, DigATSCSat, DigATSCT:
		return FamilyATSC
	case DigDVBGeneric, DigDVBC, DigDVBS, DigDVBS2, DigDVBT:
		return FamilyDVB
	default:
		return FamilyUnknown
	}
}

// Valid reports whether s is a defined system.
func (s DigitalBroadcastSystem) Valid() bool { return s.Family() != FamilyUnknown }

// Generic reports whether s is one of the generic systems that should not
// be used by devices.
func (s DigitalBroadcastSystem) Generic() bool {
	return s == DigARIBGeneric || s == DigATSCGeneric || s == DigDVBGeneric
}

// String returns the system name.
func (s DigitalBroadcastSystem) String() string {
	switch s {
	case DigARIBGeneric:
		return "ARIB generic"
	case DigATSCGeneric:
		return "ATSC generic"
	case DigDVBGeneric:
		return "DVB generic"
	case DigARIBBS:
		return "ARIB-BS"
	case DigARIBCS:
		return "ARIB-CS"
	case DigARIBT:
		return "ARIB-T"
	case DigATSCCable:
		return "ATSC Cable"
	case DigATSCSat:
		return "ATSC Satellite"
	case DigATSCT:
		return "ATSC Terrestrial"
	case DigDVBC:
		return "DVB-C"
	case DigDVBS:
		return "DVB-S"
	case DigDVBS2:
		return "DVB-S2"
	case DigDVBT:
		return "DVB-T"
	default:
		return fmt.Sprintf("Reserved (0x%02x)", uint8(s))
	}
}

// ServiceIDMethod tells how a digital service is identified.
type ServiceIDMethod uint8

const (
	ServiceByDigitalID ServiceIDMethod = 0
	ServiceByChannel   ServiceIDMethod = 1
)

// ChannelNumberFormat is the format of a by-channel service identification.
type ChannelNumberFormat uint8

const (
	ChannelOnePart ChannelNumberFormat = 0x01
	ChannelTwoPart ChannelNumberFormat = 0x02
)

// Valid reports whether f is a defined format.
func (f ChannelNumberFormat) Valid() bool { return f == ChannelOnePart || f == ChannelTwoPart }

// RecordSourceType is the first operand of Record On.
type RecordSourceType uint8

const (
	RecordSrcOwn         RecordSourceType = 1
	RecordSrcDigital     RecordSourceType = 2
	RecordSrcAnalogue    RecordSourceType = 3
	RecordSrcExtPlug     RecordSourceType = 4
	RecordSrcExtPhysAddr RecordSourceType = 5
)

// Valid reports whether t is a defined source type.
func (t RecordSourceType) Valid() bool { return t >= RecordSrcOwn && t <= RecordSrcExtPhysAddr }

// RecordStatus is the operand of Record Status.
type RecordStatus uint8

const (
	RecStatusCurrentSource      RecordStatus = 0x01
	RecStatusDigitalService     RecordStatus = 0x02
	RecStatusAnalogueService    RecordStatus = 0x03
	RecStatusExternalInput      RecordStatus = 0x04
	RecStatusNoDigitalService   RecordStatus = 0x05
	RecStatusNoAnalogueService  RecordStatus = 0x06
	RecStatusNoService          RecordStatus = 0x07
	RecStatusInvalidExtPlug     RecordStatus = 0x09
	RecStatusInvalidExtPhysAddr RecordStatus = 0x0a
	RecStatusUnsupportedCA      RecordStatus = 0x0b
	RecStatusNoCAEntitlements   RecordStatus = 0x0c
	RecStatusCantCopySource     RecordStatus = 0x0d
	RecStatusNoMoreCopies       RecordStatus = 0x0e
	RecStatusNoMedia            RecordStatus = 0x10
	RecStatusPlaying            RecordStatus = 0x11
	RecStatusAlreadyRecording   RecordStatus = 0x12
	RecStatusMediaProtected     RecordStatus = 0x13
	RecStatusNoSignal           RecordStatus = 0x14
	RecStatusMediaProblem       RecordStatus = 0x15
	RecStatusNoSpace            RecordStatus = 0x16
	RecStatusParentalLock       RecordStatus = 0x17
	RecStatusTerminatedOK       RecordStatus = 0x1a
	RecStatusAlreadyTerminated  RecordStatus = 0x1b
	RecStatusOther              RecordStatus = 0x1f
)

// IsStartError reports whether s explains why a recording could not start.
func (s RecordStatus) IsStartError() bool {
	switch s {
	case RecStatusNoDigitalService, RecStatusNoAnalogueService, RecStatusNoService,
		RecStatusInvalidExtPlug, RecStatusInvalidExtPhysAddr, RecStatusUnsupportedCA,
		RecStatusNoCAEntitlements, RecStatusCantCopySource, RecStatusNoMoreCopies,
		RecStatusNoMedia, RecStatusPlaying, RecStatusAlreadyRecording,
		RecStatusMediaProtected, RecStatusNoSignal, RecStatusMediaProblem,
		RecStatusNoSpace, RecStatusParentalLock, RecStatusOther:
		return true
	default:
		return false
	}
}

// RecordingSequence is the weekday recurrence bitmap of a timer. Zero
// means once only; bit 0 is Sunday and bit 6 Saturday.
type RecordingSequence uint8

const (
	RecSeqOnceOnly  RecordingSequence = 0x00
	RecSeqSunday    RecordingSequence = 0x01
	RecSeqMonday    RecordingSequence = 0x02
	RecSeqTuesday   RecordingSequence = 0x04
	RecSeqWednesday RecordingSequence = 0x08
	RecSeqThursday  RecordingSequence = 0x10
	RecSeqFriday    RecordingSequence = 0x20
	RecSeqSaturday  RecordingSequence = 0x40
)

// Valid reports whether bit 7 is clear.
func (s RecordingSequence) Valid() bool { return s&0x80 == 0 }

// Recurring reports whether the timer repeats on any weekday.
func (s RecordingSequence) Recurring() bool { return s != RecSeqOnceOnly }

// ExternalSourceSpecifier selects the form of an external timer source.
type ExternalSourceSpecifier uint8

const (
	ExtSrcPlug     ExternalSourceSpecifier = 4
	ExtSrcPhysAddr ExternalSourceSpecifier = 5
)

// MediaInfo is reported in Timer Status.
type MediaInfo uint8

const (
	MediaUnprotected MediaInfo = 0
	MediaProtected   MediaInfo = 1
	MediaNone        MediaInfo = 2
	MediaFuture      MediaInfo = 3
)

// ProgrammedInfo is the Timer Status code for a programmed timer.
type ProgrammedInfo uint8

const (
	ProgInfoEnoughSpace           ProgrammedInfo = 0x08
	ProgInfoNotEnoughSpace        ProgrammedInfo = 0x09
	ProgInfoNoMediaInfo           ProgrammedInfo = 0x0a
	ProgInfoMightNotBeEnoughSpace ProgrammedInfo = 0x0b
)

// Valid reports whether i is a defined value.
func (i ProgrammedInfo) Valid() bool {
	return i >= ProgInfoEnoughSpace && i <= ProgInfoMightNotBeEnoughSpace
}

// ProgramError is the Timer Status code for a timer that was not programmed.
type ProgramError uint8

const (
	ProgErrNoFreeTimer        ProgramError = 0x01
	ProgErrDateOutOfRange     ProgramError = 0x02
	ProgErrRecSeqError        ProgramError = 0x03
	ProgErrInvalidExtPlug     ProgramError = 0x04
	ProgErrInvalidExtPhysAddr ProgramError = 0x05
	ProgErrCAUnsupported      ProgramError = 0x06
	ProgErrInsufficientCA     ProgramError = 0x07
	ProgErrResolution         ProgramError = 0x08
	ProgErrParentalLock       ProgramError = 0x09
	ProgErrClockFailure       ProgramError = 0x0a
	ProgErrDuplicate          ProgramError = 0x0e
)

// Valid reports whether e is a defined value.
func (e ProgramError) Valid() bool {
	return (e >= ProgErrNoFreeTimer && e <= ProgErrClockFailure) || e == ProgErrDuplicate
}

// String returns the error name.
func (e ProgramError) String() string {
	switch e {
	case ProgErrNoFreeTimer:
		return "No free timer available"
	case ProgErrDateOutOfRange:
		return "Date out of range"
	case ProgErrRecSeqError:
		return "Recording sequence error"
	case ProgErrInvalidExtPlug:
		return "Invalid external plug"
	case ProgErrInvalidExtPhysAddr:
		return "Invalid external physical address"
	case ProgErrCAUnsupported:
		return "CA system not supported"
	case ProgErrInsufficientCA:
		return "No or insufficient CA entitlements"
	case ProgErrResolution:
		return "Resolution not supported"
	case ProgErrParentalLock:
		return "Parental lock on"
	case ProgErrClockFailure:
		return "Clock failure"
	case ProgErrDuplicate:
		return "Duplicate"
	default:
		return fmt.Sprintf("Reserved (0x%02x)", uint8(e))
	}
}

// TimerClearedStatus is the operand of Timer Cleared Status.
type TimerClearedStatus uint8

const (
	TimerClearedRecording  TimerClearedStatus = 0x00
	TimerClearedNoMatching TimerClearedStatus = 0x01
	TimerClearedNoInfo     TimerClearedStatus = 0x02
	TimerCleared           TimerClearedStatus = 0x80
)

// Valid reports whether s is one of the four defined values.
func (s TimerClearedStatus) Valid() bool {
	switch s {
	case TimerClearedRecording, TimerClearedNoMatching, TimerClearedNoInfo, TimerCleared:
		return true
	}
	return false
}

// DisplayControl is the first operand of Set OSD String.
type DisplayControl uint8

const (
	DisplayDefault      DisplayControl = 0x00
	DisplayUntilCleared DisplayControl = 0x40
	DisplayClear        DisplayControl = 0x80
)

// Valid reports whether c is a defined value.
func (c DisplayControl) Valid() bool {
	return c == DisplayDefault || c == DisplayUntilCleared || c == DisplayClear
}

// MenuRequestType is the operand of Menu Request.
type MenuRequestType uint8

const (
	MenuActivate   MenuRequestType = 0
	MenuDeactivate MenuRequestType = 1
	MenuQuery      MenuRequestType = 2
)

// MenuState is the operand of Menu Status.
type MenuState uint8

const (
	MenuActivated   MenuState = 0
	MenuDeactivated MenuState = 1
)

// UICommand is the key code of User Control Pressed.
type UICommand uint8

const (
	UISelect      UICommand = 0x00
	UIVolumeUp    UICommand = 0x41
	UIVolumeDown  UICommand = 0x42
	UIMute        UICommand = 0x43
	UIPowerToggle UICommand = 0x6b
	UIPowerOff    UICommand = 0x6c
	UIPowerOn     UICommand = 0x6d
)

// CDC operation codes carried inside a CDC Message.
const (
	CDCHECInquireState      uint8 = 0x00
	CDCHECReportState       uint8 = 0x01
	CDCHECSetStateAdjacent  uint8 = 0x02
	CDCHECSetState          uint8 = 0x03
	CDCHECRequestDeactivate uint8 = 0x04
	CDCHECNotifyAlive       uint8 = 0x05
	CDCHECDiscover          uint8 = 0x06
)

// HECFunctionState is the HEC functionality state in a HEC report.
type HECFunctionState uint8

const (
	HECNotSupported    HECFunctionState = 0
	HECInactive        HECFunctionState = 1
	HECActive          HECFunctionState = 2
	HECActivationField HECFunctionState = 3
)

// String returns the state name.
func (s HECFunctionState) String() string {
	switch s {
	case HECNotSupported:
		return "HEC Not Supported"
	case HECInactive:
		return "HEC Inactive"
	case HECActive:
		return "HEC Active"
	case HECActivationField:
		return "HEC Activation Field"
	default:
		return "Unknown"
	}
}
