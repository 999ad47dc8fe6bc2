// Package retry runs an operation with exponential backoff and jitter.
// Provider calls and database calls share this one implementation.
package retry

import (
	"context"
	"errors"
	"math"
	"time"

	goretry "github.com/sethvargo/go-retry"

	"github.com/wonny/trendscan/pkg/config"
)

// Policy describes how often and how long to retry
type Policy struct {
	MaxAttempts   int // total attempts including the first
	BaseDelay     time.Duration
	MaxDelay      time.Duration
	Multiplier    float64
	JitterPercent int
}

// DefaultPolicy is used when no config is available (tests, one-off tools)
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts:   4,
		BaseDelay:     500 * time.Millisecond,
		MaxDelay:      10 * time.Second,
		Multiplier:    2.0,
		JitterPercent: 25,
	}
}

// FromConfig builds a Policy from the immutable process config
func FromConfig(cfg config.RetryConfig) Policy {
	return Policy{
		MaxAttempts:   cfg.MaxAttempts,
		BaseDelay:     cfg.BaseDelay,
		MaxDelay:      cfg.MaxDelay,
		Multiplier:    cfg.Multiplier,
		JitterPercent: cfg.JitterPercent,
	}
}

// Predicate reports whether an error is worth another attempt
type Predicate func(error) bool

// Delay returns the un-jittered wait before retry n (1-based)
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(n-1))
	if p.MaxDelay > 0 && d > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(d)
}

// backoff builds a fresh go-retry backoff for one Do call.
// Middleware order: base curve -> jitter -> cap -> attempt limit.
func (p Policy) backoff() goretry.Backoff {
	attempt := 0
	var b goretry.Backoff = goretry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return p.Delay(attempt), false
	})

	if p.JitterPercent > 0 {
		b = goretry.WithJitterPercent(uint64(p.JitterPercent), b)
	}
	if p.MaxDelay > 0 {
		b = goretry.WithCappedDuration(p.MaxDelay, b)
	}

	maxRetries := p.MaxAttempts - 1
	if maxRetries < 0 {
		maxRetries = 0
	}
	return goretry.WithMaxRetries(uint64(maxRetries), b)
}

// Do runs op until it succeeds, returns a non-retryable error, exhausts
// the attempt budget, or ctx is done. A nil predicate retries every error.
func Do(ctx context.Context, p Policy, retryable Predicate, op func(ctx context.Context) error) error {
	var last error

	err := goretry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		err := op(ctx)
		if err == nil {
			return nil
		}
		last = err
		if retryable == nil || retryable(err) {
			return goretry.RetryableError(err)
		}
		return err
	})
	if err == nil {
		return nil
	}

	// go-retry reports ctx.Err() when cancelled mid-wait; keep the cause visible
	if last != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) && !errors.Is(last, err) {
		return errors.Join(err, last)
	}
	return err
}

// DoValue is Do for operations that produce a value
func DoValue[T any](ctx context.Context, p Policy, retryable Predicate, op func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := Do(ctx, p, retryable, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
