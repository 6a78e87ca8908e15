package discovery

import (
	"context"
	"time"
)

// Browser finds bridges on the local network.
type Browser interface {
	// Browse streams bridges as they are found. The channel is closed when
	// the context ends.
	Browse(ctx context.Context) (<-chan *BridgeService, error)

	// FindFirst returns the first bridge that matches, or ErrNotFound once
	// the browse window ends.
	FindFirst(ctx context.Context, filter FilterFunc) (*BridgeService, error)

	// Stop cancels every browse still running.
	Stop()
}

// BrowserConfig bounds how long FindFirst waits when its context has no
// deadline, and optionally pins browsing to one interface.
type BrowserConfig struct {
	BrowseTimeout time.Duration
	Interface     string
}

func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{BrowseTimeout: BrowseTimeout}
}

// ServiceEntry is a resolved DNS-SD instance, independent of the mDNS
// library in use.
type ServiceEntry struct {
	Instance string
	Host     string
	Port     uint16
	Text     []string
	Addrs    []string
}

// ToBridgeService converts the entry, failing when its TXT records do not
// describe a bridge.
func (e *ServiceEntry) ToBridgeService() (*BridgeService, error) {
	info, err := DecodeBridgeTXT(StringsToTXTRecords(e.Text))
	if err != nil {
		return nil, err
	}
	info.InstanceName = e.Instance
	info.Port = e.Port

	return &BridgeService{
		InstanceName: e.Instance,
		Host:         e.Host,
		Port:         e.Port,
		Addresses:    append([]string(nil), e.Addrs...),
		Info:         *info,
	}, nil
}

// FilterFunc selects bridges.
type FilterFunc func(*BridgeService) bool

// FilterByInstance matches an exact instance name.
func FilterByInstance(name string) FilterFunc {
	return func(svc *BridgeService) bool {
		return svc.InstanceName == name
	}
}

// FilterByAdapter matches bridges backed by the named adapter kind.
func FilterByAdapter(adapter string) FilterFunc {
	return func(svc *BridgeService) bool {
		return svc.Info.Adapter == adapter
	}
}
