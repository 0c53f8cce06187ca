package retry

import (
	"context"
	"time"
)

// DefaultMaxRetries is the retry budget used when none is configured.
const DefaultMaxRetries = 3

// SleepFunc blocks for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Executor holds the retry policy shared by every call site.
type Executor struct {
	// MaxRetries is the number of re-invocations after the first attempt.
	MaxRetries int

	// Backoff computes the wait before each retry.
	Backoff *Backoff

	// IsRetryable classifies errors. Nil means IsRetryable.
	IsRetryable func(error) bool

	// Sleep performs the wait. Nil means a context-aware timer.
	Sleep SleepFunc

	// OnRetry is called before each sleep. May be nil.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// NewExecutor returns an Executor with the default classifier and sleeper.
func NewExecutor(maxRetries int, backoff *Backoff) *Executor {
	if backoff == nil {
		backoff = DefaultBackoff()
	}
	return &Executor{
		MaxRetries: maxRetries,
		Backoff:    backoff,
	}
}

// Do runs op until it succeeds, returns a non-retryable error, or the
// retry budget is spent. The last error is returned unwrapped so callers
// can classify it.
func Do[T any](ctx context.Context, e *Executor, op func(context.Context) (T, error)) (T, error) {
	classify := e.IsRetryable
	if classify == nil {
		classify = IsRetryable
	}
	sleep := e.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	backoff := e.Backoff
	if backoff == nil {
		backoff = DefaultBackoff()
	}

	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		if attempt >= e.MaxRetries || !classify(err) {
			return v, err
		}

		delay := backoff.Delay(attempt)
		if e.OnRetry != nil {
			e.OnRetry(attempt, err, delay)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return v, err
		}
	}
}

// SleepContext waits for d, returning early with ctx.Err() if ctx ends.
func SleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
