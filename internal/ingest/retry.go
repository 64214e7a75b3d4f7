package ingest

import (
	"context"
	"time"
)

// maxRetryDelay bounds the backoff so a long outage on the RPC endpoint
// does not stretch the gap between attempts past the scan's usefulness.
const maxRetryDelay = 30 * time.Second

// withRetry runs fn up to maxRetries+1 times with doubling delays,
// giving up early when the context ends. Log queries against public
// endpoints fail transiently often enough that every window scan goes
// through here.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		if delay < maxRetryDelay {
			delay *= 2
			if delay > maxRetryDelay {
				delay = maxRetryDelay
			}
		}
	}
}
