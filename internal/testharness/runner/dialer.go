package runner

import (
	"context"
	"fmt"

	"github.com/cec-protocol/cec-go/pkg/discovery"
	"github.com/cec-protocol/cec-go/pkg/transport"
)

// Dialer abstracts bus adapter connection establishment for testability.
type Dialer interface {
	// Dial connects to the bridge at address (host:port).
	Dial(ctx context.Context, address string) (transport.Transport, error)
}

// bridgeDialer is the production Dialer that connects to bridge servers.
type bridgeDialer struct {
	config transport.BridgeConfig
}

// NewDialer creates a Dialer for TCP bridges.
func NewDialer(config transport.BridgeConfig) Dialer {
	return &bridgeDialer{config: config}
}

func (d *bridgeDialer) Dial(ctx context.Context, address string) (transport.Transport, error) {
	b, err := transport.DialBridge(ctx, address, d.config)
	if err != nil {
		return nil, fmt.Errorf("bridge dial failed: %w", err)
	}
	return b, nil
}

// LocateBridge browses for a bridge and returns its endpoint. An empty
// instance accepts the first bridge found.
func LocateBridge(ctx context.Context, browser discovery.Browser, instance string) (*discovery.BridgeService, error) {
	var filter discovery.FilterFunc
	if instance != "" {
		filter = discovery.FilterByInstance(instance)
	}
	svc, err := browser.FindFirst(ctx, filter)
	if err != nil {
		if instance != "" {
			return nil, fmt.Errorf("browse for bridge %q: %w", instance, err)
		}
		return nil, fmt.Errorf("browse for bridge: %w", err)
	}
	return svc, nil
}

// Connect opens the adapter: directly when an address is configured,
// otherwise through mDNS.
func Connect(ctx context.Context, cfg *Config, dialer Dialer, browser discovery.Browser) (transport.Transport, error) {
	address := cfg.Bridge
	if address == "" {
		if browser == nil {
			return nil, &ConfigError{Field: "bridge", Err: ErrNoBridge}
		}
		svc, err := LocateBridge(ctx, browser, cfg.BridgeInstance)
		if err != nil {
			return nil, Transient(err)
		}
		address = svc.Endpoint()
		cfg.logger().Info("found bridge", "instance", svc.InstanceName, "endpoint", address,
			"adapter", svc.Info.Adapter, "addresses", svc.Info.Addresses.String())
	}

	attempts := cfg.DialAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return dialWithRetry(ctx, attempts, cfg.logger(), func() (transport.Transport, error) {
		return dialer.Dial(ctx, address)
	})
}
