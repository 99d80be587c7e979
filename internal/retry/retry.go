package retry

import (
	"context"
	"errors"
	"fmt"

	"auction-house/internal/biddingerrors"
)

// DefaultAttempts bounds optimistic-concurrency retries when callers pass a non-positive limit
const DefaultAttempts = 5

// OnConflict runs fn until it succeeds, fails with an error other than a lost
// compare-and-swap, or the attempt budget or ctx runs out. Exhaustion surfaces
// as biddingerrors.ErrConcurrentModification so callers can re-read and resubmit.
// A ctx that is done before any conflict yields ctx.Err() unchanged.
func OnConflict(ctx context.Context, maxAttempts int, fn func(attempt int) error) error {
	if maxAttempts <= 0 {
		maxAttempts = DefaultAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return err
			}
			return fmt.Errorf("gave up after %d attempts: %w: %w", attempt-1, biddingerrors.ErrConcurrentModification, err)
		}

		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if !errors.Is(lastErr, biddingerrors.ErrVersionConflict) {
			return lastErr
		}
	}

	return fmt.Errorf("gave up after %d attempts (%v): %w", maxAttempts, lastErr, biddingerrors.ErrConcurrentModification)
}
