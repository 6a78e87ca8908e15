package runner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cec-protocol/cec-go/pkg/transport"
)

// backoff produces doubling delays starting at base, capped at max.
type backoff struct {
	base time.Duration
	max  time.Duration
	cur  time.Duration
}

func (b *backoff) next() time.Duration {
	if b.cur == 0 {
		b.cur = b.base
	} else {
		b.cur *= 2
	}
	if b.max > 0 && b.cur > b.max {
		b.cur = b.max
	}
	return b.cur
}

// dialBackoff paces bridge connection attempts.
var dialBackoff = backoff{base: 100 * time.Millisecond, max: time.Second}

// retry calls op until it succeeds, returns an error that is not
// transient, or has run attempts times. op receives the attempt number
// starting at 1.
func retry(ctx context.Context, attempts int, pace backoff, op func(attempt int) error) error {
	if attempts < 1 {
		return fmt.Errorf("retry: invalid attempt count %d", attempts)
	}
	for n := 1; ; n++ {
		err := op(n)
		if err == nil || KindOf(err) != KindTransient || n == attempts {
			return err
		}
		if err := contextSleep(ctx, pace.next()); err != nil {
			return err
		}
	}
}

// dialWithRetry dials until a bridge answers. Failed attempts are logged
// at Warn.
func dialWithRetry(ctx context.Context, attempts int, logger *slog.Logger, dial func() (transport.Transport, error)) (transport.Transport, error) {
	var t transport.Transport
	err := retry(ctx, attempts, dialBackoff, func(n int) error {
		var err error
		if t, err = dial(); err != nil {
			err = Classify(err)
			logger.Warn("bridge dial failed", "attempt", n, "max", attempts, "kind", KindOf(err).String(), "error", err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// contextSleep pauses for d. It returns ctx.Err() if ctx ends first.
func contextSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
