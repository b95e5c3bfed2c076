package httputil

import (
	"context"
	"errors"
	"net/http"
	"time"
)

// DefaultTimeout bounds a single request made by a [NewClient] client.
const DefaultTimeout = 10 * time.Second

// NewClient returns a client whose requests time out after timeout, or
// after [DefaultTimeout] when timeout is not positive.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// RetryableError marks a failure worth another attempt: the connection
// broke, or the server answered 5xx or 429.
type RetryableError struct{ Err error }

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is, or wraps, a [RetryableError].
func IsRetryable(err error) bool {
	var r *RetryableError
	return errors.As(err, &r)
}

// Retry calls fn at most attempts times (at least once), sleeping delay
// before the second call and twice as long before each one after that. It
// stops at the first success or the first error that is not retryable, and
// returns ctx.Err() if ctx ends during a sleep. The error handed back never
// carries the RetryableError marker.
func Retry(ctx context.Context, attempts int, delay time.Duration, fn func() error) error {
	err := fn()
	for left := attempts - 1; left > 0 && IsRetryable(err); left-- {
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		delay *= 2
		err = fn()
	}
	var r *RetryableError
	if errors.As(err, &r) {
		return r.Err
	}
	return err
}
