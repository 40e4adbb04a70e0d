package clock

import (
	"context"
	"time"
)

// Run calls fn with the tick time every interval until ctx is done.
// The underlying ticker is always stopped before Run returns.
func Run(ctx context.Context, interval time.Duration, fn func(now time.Time)) error {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-t.C:
			fn(now)
		}
	}
}
