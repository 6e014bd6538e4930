package replay

import (
	"context"
	"time"
)

const maxRetryDelay = 30 * time.Second

// withRetry calls fn until it succeeds or maxRetries further attempts have
// failed. The delay doubles after every failure, capped at maxRetryDelay.
// fn receives the zero-based attempt number.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, fn func(ctx context.Context, attempt int) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx, attempt)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || ctx.Err() != nil {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay = min(delay*2, maxRetryDelay)
	}
}
