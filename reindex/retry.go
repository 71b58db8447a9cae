package reindex

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/storage"
)

// RetryWithBackoff executes an operation with exponential backoff retry logic.
// It attempts the operation up to maxAttempts times, with delays of
// baseDelay * 2^(attempt-1) between attempts.
//
// Validation and invalid-query errors are permanent and returned at once.
// Returns the last error if all attempts fail, or ctx.Err() if the context
// is canceled.
func RetryWithBackoff(ctx context.Context, maxAttempts int, baseDelay time.Duration, operation func(ctx context.Context) error) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = operation(ctx)
		if lastErr == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if permanent(lastErr) {
			return lastErr
		}

		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "err", lastErr)

		// Don't sleep after the last attempt
		if attempt == maxAttempts {
			break
		}

		delay := baseDelay << (attempt - 1)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

func permanent(err error) bool {
	return errors.Is(err, core.ErrValidation) ||
		errors.Is(err, storage.ErrInvalidQuery) ||
		errors.Is(err, storage.ErrDimensionMismatch)
}
