package llm

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// exponential retry for rate-limited calls: the k-th retry waits
// BaseDelay*2^(k-1) (plus jitter), capped at MaxDelay. errors that are not
// rate limits are returned immediately
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      float64 // randomization factor in [0,1)

	// called before every wait with the 1-based number of the failed attempt
	OnRetry func(attempt int, delay time.Duration, err error)
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    time.Minute,
	}
}

// runs op until it succeeds, fails with a non-rate-limit error, or the
// attempts are exhausted. the last error is returned unwrapped
func Retry[T any](ctx context.Context, policy RetryPolicy, op func(ctx context.Context) (T, error)) (T, error) {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	maxDelay := policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = time.Minute
	}

	if policy.BaseDelay > maxDelay {
		maxDelay = policy.BaseDelay
	}

	backOff := &backoff.ExponentialBackOff{
		InitialInterval:     policy.BaseDelay,
		RandomizationFactor: policy.Jitter,
		Multiplier:          2,
		MaxInterval:         maxDelay,
	}

	attempt := 0
	operation := func() (T, error) {
		attempt++

		res, err := op(ctx)
		if err != nil && !IsRateLimited(err) {
			return res, backoff.Permanent(err)
		}

		return res, err
	}

	opts := []backoff.RetryOption{
		backoff.WithBackOff(backOff),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithMaxElapsedTime(0),
	}

	if policy.OnRetry != nil {
		opts = append(opts, backoff.WithNotify(func(err error, d time.Duration) {
			policy.OnRetry(attempt, d, err)
		}))
	}

	res, err := backoff.Retry(ctx, operation, opts...)

	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}

	return res, err
}
