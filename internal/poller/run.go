package poller

import (
	"context"
	"time"
)

// Run waits interval, calls check, and repeats until check reports done or ctx ends.
// Polls never overlap: the next wait starts only after check returns.
func Run(ctx context.Context, clock Clock, interval time.Duration, check func(ctx context.Context, attempt int) (done bool)) error {
	if clock == nil {
		clock = RealClock
	}
	for attempt := 1; ; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-clock.After(interval):
		}
		if check(ctx, attempt) {
			return nil
		}
	}
}
