package worker

import (
	"context"
	"errors"
	"time"
)

var ErrRetriesExhausted = errors.New("retries exhausted")

// RetryPolicy decides how long to cool down after a failed annotation.
// MaxAttempts of 0 retries forever with the same fixed Delay.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

func FixedRetryPolicy(delay time.Duration, maxAttempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: maxAttempts,
		Delay:       delay,
		Sleep:       SleepContext,
	}
}

// Wait blocks for the cool-down that follows the given failed attempt
// (counted from 1).
func (policy RetryPolicy) Wait(ctx context.Context, attempt int) error {
	if policy.MaxAttempts > 0 && attempt >= policy.MaxAttempts {
		return ErrRetriesExhausted
	}
	sleep := policy.Sleep
	if sleep == nil {
		sleep = SleepContext
	}
	return sleep(ctx, policy.Delay)
}

func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
