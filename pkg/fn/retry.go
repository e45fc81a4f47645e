package fn

import (
	"context"
	"math/rand"
	"time"
)

// RetryOpts configures retry behavior.
type RetryOpts struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Jitter      bool
	// Retryable reports whether a failed attempt may be retried. Nil retries
	// every error.
	Retryable func(error) bool
	// OnRetry, if set, is called before each wait with the attempt number
	// (1-based) that just failed.
	OnRetry func(attempt int, err error)
}

// DefaultRetry provides sensible retry defaults.
var DefaultRetry = RetryOpts{
	MaxAttempts: 3,
	InitialWait: 250 * time.Millisecond,
	MaxWait:     5 * time.Second,
	Jitter:      true,
}

// Retry calls f up to MaxAttempts times with exponential backoff. It stops
// early on success, on a non-retryable error, or when ctx is done.
func Retry[T any](ctx context.Context, opts RetryOpts, f func(context.Context) Result[T]) Result[T] {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	var result Result[T]
	wait := opts.InitialWait

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		result = f(ctx)
		if result.IsOk() || attempt == opts.MaxAttempts {
			return result
		}
		if opts.Retryable != nil && !opts.Retryable(result.err) {
			return result
		}
		if opts.OnRetry != nil {
			opts.OnRetry(attempt, result.err)
		}

		sleepDur := wait
		if opts.Jitter {
			sleepDur = time.Duration(float64(wait) * (0.5 + rand.Float64()))
		}
		if opts.MaxWait > 0 && sleepDur > opts.MaxWait {
			sleepDur = opts.MaxWait
		}

		timer := time.NewTimer(sleepDur)
		select {
		case <-ctx.Done():
			timer.Stop()
			return Err[T](ctx.Err())
		case <-timer.C:
		}

		wait *= 2
		if opts.MaxWait > 0 && wait > opts.MaxWait {
			wait = opts.MaxWait
		}
	}
	return result
}
