package reddit

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// ErrNotFound is returned for subreddits that do not exist, are private or
// banned.
var ErrNotFound = errors.New("subreddit not found")

// FetchError describes a Reddit call that failed after its retries.
type FetchError struct {
	Op        string
	Subreddit string
	Attempts  int
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("reddit %s r/%s failed after %d attempt(s): %v", e.Op, e.Subreddit, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// statusError is a non-2xx HTTP response.
type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// retryable reports whether err is worth another attempt.
func retryable(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.Code == 429 || se.Code >= 500
	}
	return true
}

// retry runs fn up to attempts times with exponential backoff base*2^(n-1).
// Errors that retryable rejects end the loop at once.
func retry(ctx context.Context, op, subreddit string, attempts int, base time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = base
	b.Multiplier = 2
	b.RandomizationFactor = 0

	n := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		n++
		err := fn()
		if err != nil && !retryable(err) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, delay time.Duration) {
			log.Printf("[Reddit] %s r/%s attempt %d failed: %v; retrying in %s", op, subreddit, n, err, delay)
		}),
	)
	if err == nil {
		return nil
	}
	return &FetchError{Op: op, Subreddit: subreddit, Attempts: n, Err: err}
}
