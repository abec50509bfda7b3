package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNetwork is returned when the Redis backend cannot be reached. It is
// wrapped, so test for it with errors.Is.
var ErrNetwork = errors.New("cache backend unreachable")

// RetryableError marks a transient backend failure.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// Retryable marks err as transient. Retryable(nil) is nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err, or anything it wraps, was marked with
// Retryable.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Backoff settings for RetryWithBackoff. Tests shorten retryDelay.
var (
	retryAttempts = 3
	retryDelay    = time.Second
)

// RetryWithBackoff calls fn until it succeeds, returns an error that is not
// retryable, or runs out of attempts. The delay doubles after every retry.
// Cancelling ctx stops the wait between attempts.
func RetryWithBackoff(ctx context.Context, fn func() error) error {
	delay := retryDelay
	err := fn()
	for attempt := 1; attempt < retryAttempts && IsRetryable(err); attempt++ {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay *= 2
		err = fn()
	}
	return err
}
