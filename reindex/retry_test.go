package reindex

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/poiesic/candidex/core"
	"github.com/poiesic/candidex/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryWithBackoff_Success(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), 3, 10*time.Millisecond, func(ctx context.Context) error {
		attempts++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetryWithBackoff_EventualSuccess(t *testing.T) {
	attempts := 0
	err := RetryWithBackoff(context.Background(), 5, time.Millisecond, func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestRetryWithBackoff_AllAttemptsFail(t *testing.T) {
	attempts := 0
	expectedErr := errors.New("persistent error")
	err := RetryWithBackoff(context.Background(), 3, time.Millisecond, func(ctx context.Context) error {
		attempts++
		return expectedErr
	})
	assert.Equal(t, expectedErr, err, "should return the last error")
	assert.Equal(t, 3, attempts, "should attempt exactly maxAttempts times")
}

func TestRetryWithBackoff_PermanentErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"validation", fmt.Errorf("%w: name is required", core.ErrValidation)},
		{"invalid query", storage.ErrInvalidQuery},
		{"dimension mismatch", fmt.Errorf("upsert: %w", storage.ErrDimensionMismatch)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			err := RetryWithBackoff(context.Background(), 5, time.Millisecond, func(ctx context.Context) error {
				attempts++
				return tt.err
			})
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, 1, attempts, "permanent errors are not retried")
		})
	}
}

func TestRetryWithBackoff_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := RetryWithBackoff(ctx, 10, 10*time.Millisecond, func(ctx context.Context) error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errors.New("error")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts, "should stop when context is canceled")
}

func TestRetryWithBackoff_ExponentialDelay(t *testing.T) {
	start := time.Now()
	_ = RetryWithBackoff(context.Background(), 3, 20*time.Millisecond, func(ctx context.Context) error {
		return errors.New("error")
	})

	// 20ms + 40ms between three attempts
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestRetryWithBackoff_InvalidMaxAttempts(t *testing.T) {
	err := RetryWithBackoff(context.Background(), 0, time.Millisecond, func(ctx context.Context) error {
		t.Fatal("operation should not run")
		return nil
	})
	assert.Equal(t, ErrInvalidMaxAttempts, err)
}
