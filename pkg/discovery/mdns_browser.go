package discovery

import (
	"context"
	"sync/atomic"

	"github.com/enbility/zeroconf/v3"
	"github.com/puzpuzpuz/xsync/v3"
)

// entrySource feeds resolved and withdrawn instances until ctx ends.
type entrySource func(ctx context.Context, found, lost chan<- ServiceEntry) error

// MDNSBrowser finds bridges with zeroconf.
type MDNSBrowser struct {
	config BrowserConfig
	source entrySource

	nextID  atomic.Uint64
	cancels *xsync.MapOf[uint64, context.CancelFunc]
}

func NewMDNSBrowser(config BrowserConfig) *MDNSBrowser {
	b := &MDNSBrowser{
		config:  config,
		cancels: xsync.NewMapOf[uint64, context.CancelFunc](),
	}
	b.source = b.zeroconfSource
	return b
}

// Browse streams each bridge instance once, when it is first resolved.
// Addresses resolved on other interfaces are merged into the known
// instance; an instance that loses all its addresses is forgotten and may
// be streamed again.
func (b *MDNSBrowser) Browse(ctx context.Context) (<-chan *BridgeService, error) {
	if _, err := lookupInterface(b.config.Interface); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	id := b.nextID.Add(1)
	b.cancels.Store(id, cancel)

	found := make(chan ServiceEntry)
	lost := make(chan ServiceEntry)
	out := make(chan *BridgeService)

	go func() {
		_ = b.source(ctx, found, lost)
	}()

	go func() {
		defer close(out)
		defer b.cancels.Delete(id)
		defer cancel()

		bridges := bridgeSet{}
		for {
			select {
			case <-ctx.Done():
				return
			case e := <-lost:
				bridges.forget(e.Instance, e.Addrs)
			case e := <-found:
				svc, err := e.ToBridgeService()
				if err != nil || !bridges.observe(svc) {
					continue
				}
				select {
				case out <- svc.clone():
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// FindFirst browses until filter accepts a bridge. Without a context
// deadline the search is bounded by BrowseTimeout.
func (b *MDNSBrowser) FindFirst(ctx context.Context, filter FilterFunc) (*BridgeService, error) {
	if _, ok := ctx.Deadline(); !ok && b.config.BrowseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.config.BrowseTimeout)
		defer cancel()
	}

	// Cancel the browse on return; the channel closes behind us.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	results, err := b.Browse(ctx)
	if err != nil {
		return nil, err
	}
	for svc := range results {
		if filter == nil || filter(svc) {
			return svc, nil
		}
	}
	return nil, ErrNotFound
}

// Stop ends every running Browse.
func (b *MDNSBrowser) Stop() {
	b.cancels.Range(func(id uint64, cancel context.CancelFunc) bool {
		cancel()
		b.cancels.Delete(id)
		return true
	})
}

// zeroconfSource runs a zeroconf browse and converts its entries.
func (b *MDNSBrowser) zeroconfSource(ctx context.Context, found, lost chan<- ServiceEntry) error {
	var opts []zeroconf.ClientOption
	ifaces, err := lookupInterface(b.config.Interface)
	if err != nil {
		return err
	}
	if ifaces != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifaces))
	}

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	go relayEntries(ctx, entries, found)
	go relayEntries(ctx, removed, lost)
	return zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
}

func relayEntries(ctx context.Context, in <-chan *zeroconf.ServiceEntry, out chan<- ServiceEntry) {
	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-in:
			if !ok {
				return
			}
			select {
			case out <- fromZeroconf(entry):
			case <-ctx.Done():
				return
			}
		}
	}
}

func fromZeroconf(entry *zeroconf.ServiceEntry) ServiceEntry {
	e := ServiceEntry{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Port:     uint16(entry.Port),
		Text:     entry.Text,
	}
	for _, ip := range entry.AddrIPv4 {
		e.Addrs = append(e.Addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		e.Addrs = append(e.Addrs, ip.String())
	}
	return e
}

var _ Browser = (*MDNSBrowser)(nil)
