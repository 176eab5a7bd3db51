package util

import (
	"context"
	"errors"
	"time"
)

// DefaultRetryAttempts bounds optimistic-concurrency retries when no configuration is given.
const DefaultRetryAttempts = 5

// Retry runs fn up to attempts times while it returns an error matching retryable.
// Any other outcome, including success, is returned immediately.
func Retry(ctx context.Context, attempts int, retryable error, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = fn()
		if err == nil || !errors.Is(err, retryable) {
			return err
		}

		if i < attempts-1 {
			backoff := time.Duration(i+1) * 5 * time.Millisecond
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return err
}
