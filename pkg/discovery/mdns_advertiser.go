package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/enbility/zeroconf/v3"
)

// ErrUnknownInterface is returned when the configured network interface
// does not exist.
var ErrUnknownInterface = errors.New("unknown network interface")

// lookupInterface resolves a configured interface name. An empty name
// selects every multicast interface and yields nil.
func lookupInterface(name string) ([]net.Interface, error) {
	if name == "" {
		return nil, nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrUnknownInterface, name, err)
	}
	return []net.Interface{*iface}, nil
}

// MDNSAdvertiser publishes one bridge through zeroconf.
type MDNSAdvertiser struct {
	config AdvertiserConfig

	mu     sync.Mutex
	server *zeroconf.Server
	info   BridgeInfo
}

func NewMDNSAdvertiser(config AdvertiserConfig) *MDNSAdvertiser {
	return &MDNSAdvertiser{config: config}
}

// Advertise registers info, withdrawing any earlier advertisement first.
// The instance name defaults to DefaultInstanceName and the port to
// DefaultPort.
func (a *MDNSAdvertiser) Advertise(ctx context.Context, info *BridgeInfo) error {
	rec := *info
	if rec.InstanceName == "" {
		rec.InstanceName = DefaultInstanceName(info)
	}
	if rec.Port == 0 {
		rec.Port = DefaultPort
	}
	if err := ValidateInstanceName(rec.InstanceName); err != nil {
		return err
	}
	txt, err := bridgeText(&rec)
	if err != nil {
		return err
	}
	ifaces, err := lookupInterface(a.config.Interface)
	if err != nil {
		return err
	}

	var opts []zeroconf.ServerOption
	if secs := uint32(a.config.TTL.Seconds()); secs > 0 {
		opts = append(opts, zeroconf.TTL(secs))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.shutdownLocked()

	server, err := zeroconf.Register(rec.InstanceName, ServiceType, Domain, int(rec.Port), txt, ifaces, opts...)
	if err != nil {
		return fmt.Errorf("register %q: %w", rec.InstanceName, err)
	}
	a.server, a.info = server, rec
	return nil
}

// Update republishes the TXT records. Name and port stay as advertised.
func (a *MDNSAdvertiser) Update(info *BridgeInfo) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server == nil {
		return ErrNotAdvertising
	}
	rec := *info
	rec.InstanceName, rec.Port = a.info.InstanceName, a.info.Port
	txt, err := bridgeText(&rec)
	if err != nil {
		return err
	}
	a.server.SetText(txt)
	a.info = rec
	return nil
}

// Advertised returns the record being published, if any.
func (a *MDNSAdvertiser) Advertised() (BridgeInfo, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.info, a.server != nil
}

// Stop withdraws the advertisement. It is idempotent.
func (a *MDNSAdvertiser) Stop() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.shutdownLocked()
	return nil
}

func (a *MDNSAdvertiser) shutdownLocked() {
	if a.server == nil {
		return
	}
	a.server.Shutdown()
	a.server = nil
	a.info = BridgeInfo{}
}

// bridgeText encodes info and enforces the TXT size limit.
func bridgeText(info *BridgeInfo) ([]string, error) {
	txt := EncodeBridgeTXT(info)
	if n := TXTSize(txt); n > MaxTXTRecordSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidTXTRecord, n)
	}
	return TXTRecordsToStrings(txt), nil
}

var _ Advertiser = (*MDNSAdvertiser)(nil)
