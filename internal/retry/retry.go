// Package retry provides exponential-backoff retry for the Policy
// Poller's repository fetch: plain Go operations that have no
// Kubernetes object identity, so they are not suited to client-go's
// workqueue rate limiters. It wraps github.com/cenkalti/backoff/v5 instead
// of hand-rolling a second backoff primitive next to
// k8s.io/apimachinery/pkg/util/wait.Backoff (used elsewhere for transport
// reconnects).
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	k8serrors "k8s.io/apimachinery/pkg/api/errors"
)

// Config configures retry behavior
type Config struct {
	// MaxAttempts is the maximum number of retry attempts (default: 3)
	MaxAttempts int
	// InitialDelay is the initial delay before first retry (default: 100ms)
	InitialDelay time.Duration
	// MaxDelay is the maximum delay between retries (default: 5s)
	MaxDelay time.Duration
	// Multiplier is the exponential backoff multiplier (default: 2.0)
	Multiplier float64
	// RetryableErrors is a function that determines if an error is retryable
	RetryableErrors func(error) bool
}

// DefaultConfig returns a default retry configuration
func DefaultConfig() Config {
	return Config{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
		RetryableErrors: func(err error) bool {
			if k8serrors.IsServerTimeout(err) || k8serrors.IsTimeout(err) {
				return true
			}
			if k8serrors.IsTooManyRequests(err) {
				return true
			}
			if k8serrors.IsInternalError(err) {
				return true
			}
			if k8serrors.IsConflict(err) {
				return true
			}
			return false
		},
	}
}

func (c Config) normalized() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = 100 * time.Millisecond
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = 5 * time.Second
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.RetryableErrors == nil {
		c.RetryableErrors = DefaultConfig().RetryableErrors
	}
	return c
}

// wrap wraps non-retryable errors in backoff.Permanent so
// backoff.Retry stops immediately instead of exhausting MaxAttempts on an
// error that will never succeed.
func (c Config) wrap(err error) error {
	if err == nil {
		return nil
	}
	if !c.RetryableErrors(err) {
		return backoff.Permanent(err)
	}
	return err
}

// Do executes a function with exponential backoff retry logic
func Do(ctx context.Context, config Config, fn func() error) error {
	config = config.normalized()
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = config.InitialDelay
	bo.MaxInterval = config.MaxDelay
	bo.Multiplier = config.Multiplier

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, config.wrap(fn())
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(config.MaxAttempts)))
	if err != nil {
		return fmt.Errorf("max retry attempts (%d) exceeded: %w", config.MaxAttempts, err)
	}
	return nil
}

// DoWithResult executes a function that returns a result with exponential backoff retry logic
func DoWithResult[T any](ctx context.Context, config Config, fn func() (T, error)) (T, error) {
	config = config.normalized()
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = config.InitialDelay
	bo.MaxInterval = config.MaxDelay
	bo.Multiplier = config.Multiplier

	result, err := backoff.Retry(ctx, func() (T, error) {
		v, err := fn()
		return v, config.wrap(err)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(uint(config.MaxAttempts)))
	if err != nil {
		var zero T
		return zero, fmt.Errorf("max retry attempts (%d) exceeded: %w", config.MaxAttempts, err)
	}
	return result, nil
}

// IsRetryableError checks if an error is retryable using the default retryable error function
func IsRetryableError(err error) bool {
	return DefaultConfig().RetryableErrors(err)
}
