package utils

import (
	"context"
	"fmt"
	"time"

	"fuelwatch/internal/logging"
)

// Retry runs fn up to maxAttempts times, doubling the wait between
// attempts starting from delay. It gives up early when ctx is cancelled
// during a wait.
func Retry(ctx context.Context, logger *logging.Logger, maxAttempts int, delay time.Duration, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := fn(); err != nil {
			lastErr = err
			logger.Errorf("Attempt %d/%d failed: %v", attempt, maxAttempts, err)
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return fmt.Errorf("retry aborted after %d attempt(s): %w", attempt, ctx.Err())
				case <-time.After(delay):
					delay *= 2
				}
			}
			continue
		}
		return nil
	}
	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}
