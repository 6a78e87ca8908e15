package engine

import (
	"context"
	"errors"
	"time"
)

// ErrAwaitTimeout is returned when the condition never held.
var ErrAwaitTimeout = errors.New("condition not met before deadline")

// minAwaitInterval bounds how often a condition is polled.
const minAwaitInterval = time.Millisecond

// AwaitCondition evaluates pred every interval until it returns true, it
// returns an error, or deadline has passed. pred is always evaluated at least
// once. Intervals shorter than a millisecond, zero included, are raised to
// one.
func AwaitCondition(ctx context.Context, pred func(context.Context) (bool, error), interval, deadline time.Duration) error {
	end := time.Now().Add(deadline)
	ticker := time.NewTicker(max(interval, minAwaitInterval))
	defer ticker.Stop()
	for {
		ok, err := pred(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(end) {
			return ErrAwaitTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
