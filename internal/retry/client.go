package retry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Default retry configuration
const (
	defaultMaxAttempts = 3
	defaultDelay       = 1 * time.Second
)

// StatusCoder is implemented by errors that carry an HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// StatusError is a bare HTTP status failure.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http status %d", e.StatusCode)
	}
	return fmt.Sprintf("http status %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// StatusOf extracts the HTTP status from err's chain, or 0.
func StatusOf(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.HTTPStatus()
	}
	return 0
}

// RetryableChecker determines if an error should trigger another attempt
type RetryableChecker func(err error) bool

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Retrier runs an operation up to maxAttempts times with a linearly growing
// delay (delay, 2*delay, ...) between attempts.
type Retrier struct {
	maxAttempts      int
	delay            time.Duration
	retryableChecker RetryableChecker
	sleep            SleepFunc
	onRetry          func(attempt int, err error)
}

// Option configures a Retrier
type Option func(*Retrier)

// WithMaxAttempts sets the total number of attempts, first call included
func WithMaxAttempts(n int) Option {
	return func(r *Retrier) {
		if n >= 1 {
			r.maxAttempts = n
		}
	}
}

// WithDelay sets the base delay; attempt n waits n*d
func WithDelay(d time.Duration) Option {
	return func(r *Retrier) {
		if d >= 0 {
			r.delay = d
		}
	}
}

// WithRetryableChecker sets a custom function to determine retryable errors
func WithRetryableChecker(checker RetryableChecker) Option {
	return func(r *Retrier) {
		if checker != nil {
			r.retryableChecker = checker
		}
	}
}

// WithSleep replaces the wait between attempts, mainly for tests
func WithSleep(sleep SleepFunc) Option {
	return func(r *Retrier) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// WithOnRetry registers a hook called before each wait.
func WithOnRetry(fn func(attempt int, err error)) Option {
	return func(r *Retrier) {
		r.onRetry = fn
	}
}

// New creates a Retrier with the given options
func New(opts ...Option) *Retrier {
	r := &Retrier{
		maxAttempts:      defaultMaxAttempts,
		delay:            defaultDelay,
		retryableChecker: DefaultRetryableChecker,
		sleep:            sleepContext,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// DefaultRetryableChecker retries rate-limit responses (403 and 429) only.
// Everything else, network errors included, fails fast.
func DefaultRetryableChecker(err error) bool {
	switch StatusOf(err) {
	case http.StatusForbidden, http.StatusTooManyRequests:
		return true
	}
	return false
}

// Do executes fn until it succeeds, returns a non-retryable error, or the
// attempts run out. The last error is returned unchanged.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == r.maxAttempts || !r.retryableChecker(lastErr) {
			return lastErr
		}

		if r.onRetry != nil {
			r.onRetry(attempt, lastErr)
		}
		if err := r.sleep(ctx, r.delay*time.Duration(attempt)); err != nil {
			return fmt.Errorf("context cancelled after %d attempts: %w", attempt, lastErr)
		}
	}

	return lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// MaxAttempts reports the configured attempt budget.
func (r *Retrier) MaxAttempts() int {
	return r.maxAttempts
}
