package services

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"tradelens/observability"
)

type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// ShouldRetry decides whether an error is worth another attempt.
	// Defaults to IsRetryable.
	ShouldRetry func(error) bool
	// OnRetry is called before each retry with the 1-based retry number
	OnRetry func(retry int, err error)
}

// RetryConfigFromAttempts builds a RetryConfig from a total attempt count
func RetryConfigFromAttempts(maxAttempts int, initial, max time.Duration) RetryConfig {
	retries := maxAttempts - 1
	if retries < 0 {
		retries = 0
	}
	return RetryConfig{
		MaxRetries:     retries,
		InitialBackoff: initial,
		MaxBackoff:     max,
	}
}

// WithRetry calls fn until it succeeds, returns a non-retryable error, or
// the retry budget runs out. Backoff doubles each attempt up to MaxBackoff
// and is jittered into [backoff/2, backoff].
func WithRetry(ctx context.Context, config RetryConfig, fn func() error) error {
	shouldRetry := config.ShouldRetry
	if shouldRetry == nil {
		shouldRetry = IsRetryable
	}

	var lastErr error
	backoff := config.InitialBackoff

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if attempt > 0 {
			if config.OnRetry != nil {
				config.OnRetry(attempt, lastErr)
			}

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled during retry: %w (last error: %w)", ctx.Err(), lastErr)
			case <-time.After(jitter(backoff)):
			}

			backoff *= 2
			if backoff > config.MaxBackoff {
				backoff = config.MaxBackoff
			}
		}

		err := fn()
		if err == nil {
			return nil
		}

		lastErr = err
		if !shouldRetry(err) {
			return err
		}
		if attempt < config.MaxRetries {
			observability.Debug("retry attempt failed",
				"attempt", attempt+1,
				"max_retries", config.MaxRetries,
				"error", err)
		}
	}

	return fmt.Errorf("failed after %d retries: %w", config.MaxRetries, lastErr)
}

func jitter(d time.Duration) time.Duration {
	if d <= 1 {
		return d
	}
	half := d / 2
	return half + time.Duration(rand.Int64N(int64(d-half)+1))
}
