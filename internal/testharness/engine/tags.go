package engine

import (
	"fmt"
	"sort"
	"strings"
)

// Tag groups areas by the protocol feature they exercise. An area runs only
// when all of its tags are selected.
type Tag uint32

const (
	TagCore Tag = 1 << iota
	TagPowerStatus
	TagSystemInformation
	TagVendorSpecific
	TagDeviceOSDTransfer
	TagOSDDisplay
	TagRCPassthrough
	TagDeviceMenuControl
	TagDeckControl
	TagTunerControl
	TagOneTouchRecord
	TagTimerProgramming
	TagCapDiscovery
	TagRoutingControl
	TagStandbyResume
	TagDynamicAutoLipsync
	TagARCControl
	TagSystemAudioControl
	TagAudioRateControl

	TagAll Tag = 1<<iota - 1
)

var tagNames = map[string]Tag{
	"core":                 TagCore,
	"power-status":         TagPowerStatus,
	"system-information":   TagSystemInformation,
	"vendor-specific":      TagVendorSpecific,
	"device-osd-transfer":  TagDeviceOSDTransfer,
	"osd-display":          TagOSDDisplay,
	"rc-passthrough":       TagRCPassthrough,
	"device-menu-control":  TagDeviceMenuControl,
	"deck-control":         TagDeckControl,
	"tuner-control":        TagTunerControl,
	"one-touch-record":     TagOneTouchRecord,
	"timer-programming":    TagTimerProgramming,
	"cap-discovery":        TagCapDiscovery,
	"dynamic-auto-lipsync": TagDynamicAutoLipsync,
	"arc-control":          TagARCControl,
	"system-audio-control": TagSystemAudioControl,
	"audio-rate-control":   TagAudioRateControl,
	"routing-control":      TagRoutingControl,
	"standby-resume":       TagStandbyResume,
}

// Selects reports whether filter covers every tag in t.
func (t Tag) Selects(filter Tag) bool { return t&filter == t }

// String lists the tag names joined by '|'.
func (t Tag) String() string {
	if t == 0 {
		return "none"
	}
	var names []string
	for n, v := range tagNames {
		if t&v != 0 {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

// TagNames returns all known tag names, sorted.
func TagNames() []string {
	names := make([]string, 0, len(tagNames))
	for n := range tagNames {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ParseTags converts tag names to a filter. "all" selects every tag. The
// core tag is always included.
func ParseTags(names []string) (Tag, error) {
	t := TagCore
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		if n == "all" {
			return TagAll, nil
		}
		v, ok := tagNames[n]
		if !ok {
			return 0, fmt.Errorf("unknown test tag %q", n)
		}
		t |= v
	}
	return t, nil
}
