// Package discovery finds and announces CEC bus bridges with mDNS/DNS-SD.
//
// A bridge server advertises one _cec-bridge._tcp instance. The instance
// name defaults to the adapter OSD name followed by its physical address,
// e.g. "Living Room 1.0.0.0".
//
// TXT records:
//   - pa: physical address of the adapter (required)
//   - la: claimed logical addresses as a hex mask (required)
//   - osd, ver, vid, adapter: optional adapter details
//
// The compliance runner browses for bridges when no address is configured
// and dials the first match with transport.DialBridge.
package discovery
