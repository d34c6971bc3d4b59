package utils

import (
	"fmt"
	"time"
)

// RetryConfig drives retries for flaky browser operations. Delay doubles
// after each failed attempt and is clamped to MaxDelay when set.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Logger      *Logger
}

// Do runs fn until it succeeds or MaxAttempts is exhausted.
func (r *RetryConfig) Do(operationName string, fn func() error) error {
	var lastErr error

	for attempt := 1; attempt <= r.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if attempt == r.MaxAttempts {
			break
		}

		delay := r.delayFor(attempt)
		r.Logger.Warn("[retry] %s: attempt %d/%d failed: %v, next try in %v",
			operationName, attempt, r.MaxAttempts, lastErr, delay)
		time.Sleep(delay)
	}

	return fmt.Errorf("%s gave up after %d attempts: %w", operationName, r.MaxAttempts, lastErr)
}

// delayFor returns the back-off delay following the given attempt number,
// counting from 1.
func (r *RetryConfig) delayFor(attempt int) time.Duration {
	delay := r.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	if r.MaxDelay > 0 && delay > r.MaxDelay {
		delay = r.MaxDelay
	}
	return delay
}
