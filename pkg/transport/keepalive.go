package transport

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Keep-alive defaults.
const (
	DefaultPingInterval   = 10 * time.Second
	DefaultPongTimeout    = 3 * time.Second
	DefaultMaxMissedPongs = 3
)

// KeepAliveConfig configures bridge session liveness checks.
type KeepAliveConfig struct {
	PingInterval   time.Duration
	PongTimeout    time.Duration
	MaxMissedPongs int
}

// DefaultKeepAliveConfig returns the default keep-alive configuration.
func DefaultKeepAliveConfig() KeepAliveConfig {
	return KeepAliveConfig{
		PingInterval:   DefaultPingInterval,
		PongTimeout:    DefaultPongTimeout,
		MaxMissedPongs: DefaultMaxMissedPongs,
	}
}

// DetectionDelay is the longest time a dead peer can go unnoticed.
func (c KeepAliveConfig) DetectionDelay() time.Duration {
	return c.PingInterval*time.Duration(c.MaxMissedPongs) + c.PongTimeout
}

func (c KeepAliveConfig) withDefaults() KeepAliveConfig {
	d := DefaultKeepAliveConfig()
	if c.PingInterval == 0 {
		c.PingInterval = d.PingInterval
	}
	if c.PongTimeout == 0 {
		c.PongTimeout = d.PongTimeout
	}
	if c.MaxMissedPongs == 0 {
		c.MaxMissedPongs = d.MaxMissedPongs
	}
	return c
}

// KeepAlive pings the peer every PingInterval. A ping without a matching
// pong after PongTimeout counts as missed; MaxMissedPongs consecutive
// misses call onDead once and end the monitor.
type KeepAlive struct {
	config   KeepAliveConfig
	sendPing func(seq uint32) error
	onDead   func()

	pongs  chan uint32
	missed atomic.Int32
	done   chan struct{}
	once   sync.Once
}

// NewKeepAlive creates a monitor. Zero config fields take the defaults.
func NewKeepAlive(config KeepAliveConfig, sendPing func(seq uint32) error, onDead func()) *KeepAlive {
	return &KeepAlive{
		config:   config.withDefaults(),
		sendPing: sendPing,
		onDead:   onDead,
		pongs:    make(chan uint32, 1),
		done:     make(chan struct{}),
	}
}

func (ka *KeepAlive) Start(ctx context.Context) {
	go ka.run(ctx)
}

// Stop ends the monitor without calling onDead. Repeated calls are no-ops.
func (ka *KeepAlive) Stop() {
	ka.once.Do(func() { close(ka.done) })
}

// PongReceived hands a pong to the monitor. A pong arriving while the
// previous one is still queued is dropped.
func (ka *KeepAlive) PongReceived(seq uint32) {
	select {
	case ka.pongs <- seq:
	default:
	}
}

// Missed is the current run of unanswered pings.
func (ka *KeepAlive) Missed() int {
	return int(ka.missed.Load())
}

// outstanding is the ping awaiting its pong.
type outstanding struct {
	seq    uint32
	sentAt time.Time
	active bool
}

func (ka *KeepAlive) run(ctx context.Context) {
	ticker := time.NewTicker(ka.config.PingInterval)
	defer ticker.Stop()

	var (
		seq     uint32
		pending outstanding
	)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ka.done:
			return
		case got := <-ka.pongs:
			if pending.active && got == pending.seq {
				pending.active = false
				ka.missed.Store(0)
			}
		case now := <-ticker.C:
			if pending.active && now.Sub(pending.sentAt) >= ka.config.PongTimeout {
				pending.active = false
				ka.missed.Add(1)
			}
			if ka.Missed() >= ka.config.MaxMissedPongs {
				if ka.onDead != nil {
					ka.onDead()
				}
				return
			}
			seq++
			pending = outstanding{seq: seq, sentAt: time.Now(), active: true}
			// A failed send shows up as a miss on the next tick.
			_ = ka.sendPing(seq)
		}
	}
}
