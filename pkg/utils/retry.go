package utils

import (
	"context"
	"time"
)

// RetryConfig controls the backoff behavior of Retry and RetryWithResult.
type RetryConfig struct {
	MaxAttempts   int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig matches the market data budget: a transient feed
// failure gets a short second chance without stalling the cycle.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2.0,
	}
}

// nextDelay grows the delay by the backoff factor, capped at MaxDelay.
func (c RetryConfig) nextDelay(d time.Duration) time.Duration {
	d = time.Duration(float64(d) * c.BackoffFactor)
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Retry runs fn up to MaxAttempts times with exponential backoff between
// failures. Context cancellation cuts the loop short.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	_, err := RetryWithResult(ctx, cfg, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// RetryWithResult is Retry for functions that return a value. The last
// attempt's error is returned when every attempt fails.
func RetryWithResult[T any](ctx context.Context, cfg RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	delay := cfg.InitialDelay

	for attempt := 0; attempt < cfg.MaxAttempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}

		if attempt < cfg.MaxAttempts-1 {
			time.Sleep(delay)
			delay = cfg.nextDelay(delay)
		}
	}
	return zero, lastErr
}
