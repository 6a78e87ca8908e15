package discovery

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cec-protocol/cec-go/pkg/cec"
)

// TXTRecordMap holds decoded TXT entries by key.
type TXTRecordMap map[string]string

// EncodeBridgeTXT creates the TXT records for a bridge advertisement.
func EncodeBridgeTXT(info *BridgeInfo) TXTRecordMap {
	txt := make(TXTRecordMap)

	txt[TXTKeyPhysAddr] = info.PhysAddr.String()
	txt[TXTKeyAddresses] = strconv.FormatUint(uint64(info.Addresses), 16)

	if info.OSDName != "" {
		txt[TXTKeyOSDName] = info.OSDName
	}
	if info.Version != 0 {
		txt[TXTKeyVersion] = strconv.FormatUint(uint64(info.Version), 10)
	}
	if info.VendorID != 0 {
		txt[TXTKeyVendorID] = fmt.Sprintf("%06x", info.VendorID)
	}
	if info.Adapter != "" {
		txt[TXTKeyAdapter] = info.Adapter
	}

	return txt
}

// DecodeBridgeTXT parses the TXT records of a bridge advertisement.
func DecodeBridgeTXT(txt TXTRecordMap) (*BridgeInfo, error) {
	info := &BridgeInfo{}

	paStr, ok := txt[TXTKeyPhysAddr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyPhysAddr)
	}
	pa, err := cec.ParsePhysicalAddress(paStr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTXTRecord, err)
	}
	info.PhysAddr = pa

	laStr, ok := txt[TXTKeyAddresses]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyAddresses)
	}
	la, err := strconv.ParseUint(laStr, 16, 16)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid address mask %q", ErrInvalidTXTRecord, laStr)
	}
	info.Addresses = cec.AddressMask(la)

	if v, ok := txt[TXTKeyVersion]; ok {
		n, err := strconv.ParseUint(v, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid version %q", ErrInvalidTXTRecord, v)
		}
		info.Version = cec.Version(n)
	}
	if v, ok := txt[TXTKeyVendorID]; ok {
		n, err := strconv.ParseUint(v, 16, 24)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid vendor id %q", ErrInvalidTXTRecord, v)
		}
		info.VendorID = uint32(n)
	}

	info.OSDName = txt[TXTKeyOSDName]
	info.Adapter = txt[TXTKeyAdapter]

	return info, nil
}

// TXTRecordsToStrings renders txt as "key=value" entries.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, k+"="+v)
	}
	return result
}

// StringsToTXTRecords splits "key=value" entries. Entries without "=" map
// to an empty value.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, found := strings.Cut(s, "=")
		if !found && k == "" {
			continue
		}
		txt[k] = v
	}
	return txt
}

// TXTSize returns the wire size of the records, one length byte per entry.
func TXTSize(txt TXTRecordMap) int {
	n := 0
	for k, v := range txt {
		n += 1 + len(k) + 1 + len(v)
	}
	return n
}

// ValidateInstanceName rejects names that cannot be a DNS-SD instance label.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}

// DefaultInstanceName derives an instance name from the adapter's OSD name
// and physical address.
func DefaultInstanceName(info *BridgeInfo) string {
	base := info.OSDName
	if base == "" {
		base = "cec-bridge"
	}
	name := fmt.Sprintf("%s %s", base, info.PhysAddr)
	if len(name) > MaxInstanceNameLen {
		name = name[:MaxInstanceNameLen]
	}
	return name
}
