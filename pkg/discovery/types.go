package discovery

import (
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/cec-protocol/cec-go/pkg/cec"
)

// Service type constants for mDNS.
const (
	// ServiceType is advertised by every bus bridge.
	ServiceType = "_cec-bridge._tcp"

	// Domain is the mDNS domain.
	Domain = "local"

	// DefaultPort matches transport.DefaultPort.
	DefaultPort = 9526
)

// TXT record keys.
const (
	TXTKeyPhysAddr  = "pa"      // Adapter physical address (a.b.c.d)
	TXTKeyAddresses = "la"      // Claimed logical addresses (hex mask)
	TXTKeyOSDName   = "osd"     // Adapter OSD name
	TXTKeyVersion   = "ver"     // CEC version operand
	TXTKeyVendorID  = "vid"     // IEEE OUI (hex)
	TXTKeyAdapter   = "adapter" // Adapter kind, e.g. "mock"
)

// Timing constants.
const (
	// BrowseTimeout is the default timeout for mDNS browsing.
	BrowseTimeout = 5 * time.Second
)

// Limits.
const (
	// MaxInstanceNameLen is the DNS label limit.
	MaxInstanceNameLen = 63

	// MaxTXTRecordSize is the maximum total TXT record size.
	MaxTXTRecordSize = 400
)

// Discovery errors.
var (
	ErrInvalidTXTRecord    = errors.New("invalid TXT record format")
	ErrMissingRequired     = errors.New("missing required field")
	ErrInstanceNameTooLong = errors.New("instance name exceeds 63 characters")
	ErrNotFound            = errors.New("service not found")
	ErrNotAdvertising      = errors.New("not advertising")
)

// BridgeInfo describes a bridge as it advertises itself.
type BridgeInfo struct {
	// InstanceName is the DNS-SD instance label.
	InstanceName string

	// Port is the bridge TCP port. Zero means DefaultPort.
	Port uint16

	// PhysAddr is the adapter's physical address.
	PhysAddr cec.PhysicalAddress

	// Addresses are the logical addresses claimed by the adapter.
	Addresses cec.AddressMask

	// OSDName is optional.
	OSDName string

	// Version is the CEC version the adapter speaks, zero if unknown.
	Version cec.Version

	// VendorID is optional.
	VendorID uint32

	// Adapter names the backing adapter.
	Adapter string
}

// BridgeService is a bridge found while browsing.
type BridgeService struct {
	InstanceName string
	Host         string
	Port         uint16
	Addresses    []string
	Info         BridgeInfo
}

func (s *BridgeService) clone() *BridgeService {
	c := *s
	c.Addresses = append([]string(nil), s.Addresses...)
	return &c
}

// Endpoint returns a host:port suitable for transport.DialBridge, using the
// first resolved address and falling back to the host name.
func (s *BridgeService) Endpoint() string {
	host := s.Host
	if len(s.Addresses) > 0 {
		host = s.Addresses[0]
	}
	return net.JoinHostPort(host, strconv.Itoa(int(s.Port)))
}
