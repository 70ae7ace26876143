package utils

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig holds the configuration for the retry mechanism
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryConfig provides sensible default values for RetryConfig
var DefaultRetryConfig = RetryConfig{
	MaxRetries: 5,
	BaseDelay:  time.Second,
	MaxDelay:   30 * time.Second,
}

// RetryWithBackoff attempts to execute the given function with exponential backoff.
// Returning a *NonRetryableError from operation stops the retries immediately.
func RetryWithBackoff(ctx context.Context, operation func() error, config RetryConfig) error {
	strategy := backoff.NewExponentialBackOff()
	strategy.InitialInterval = config.BaseDelay
	strategy.MaxInterval = config.MaxDelay
	strategy.MaxElapsedTime = 0

	var policy backoff.BackOff = strategy
	if config.MaxRetries > 0 {
		policy = backoff.WithMaxRetries(strategy, uint64(config.MaxRetries-1))
	}

	attempts := 0
	err := backoff.Retry(func() error {
		attempts++
		err := operation()
		var nonRetryable *NonRetryableError
		if errors.As(err, &nonRetryable) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(policy, ctx))
	if err == nil {
		return nil
	}

	var nonRetryable *NonRetryableError
	if errors.As(err, &nonRetryable) {
		return err
	}
	return fmt.Errorf("operation failed after %d attempts: %w", attempts, err)
}

// NonRetryableError represents an error that should not be retried
type NonRetryableError struct {
	Err error
}

// Error returns the error message for the NonRetryableError
func (e *NonRetryableError) Error() string {
	return fmt.Sprintf("non-retryable error: %v", e.Err)
}

// Unwrap returns the underlying error, allowing error unwrapping
func (e *NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError creates a new NonRetryableError
func NewNonRetryableError(err error) *NonRetryableError {
	return &NonRetryableError{Err: err}
}
