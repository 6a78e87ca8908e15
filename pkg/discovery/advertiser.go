package discovery

import (
	"context"
	"time"
)

// DefaultTTL is the record lifetime announced for a bridge.
const DefaultTTL = 2 * time.Minute

// Advertiser publishes a bridge's endpoint and identity. Advertise replaces
// any earlier advertisement; Update only rewrites the TXT records.
type Advertiser interface {
	Advertise(ctx context.Context, info *BridgeInfo) error
	Update(info *BridgeInfo) error
	Stop() error
}

// AdvertiserConfig selects where and for how long records are announced.
// An empty Interface announces on every interface.
type AdvertiserConfig struct {
	Interface string
	TTL       time.Duration
}

func DefaultAdvertiserConfig() AdvertiserConfig {
	return AdvertiserConfig{TTL: DefaultTTL}
}
