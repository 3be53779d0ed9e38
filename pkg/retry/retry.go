package retry

import (
	"context"
	"math"
	"time"
)

// Policy retries an operation with exponential backoff. The zero value is not
// usable; construct with New.
type Policy struct {
	maxRetries int
	base       time.Duration
}

// New creates a policy that attempts an operation 1+maxRetries times, waiting
// base*2^attempt between attempts.
func New(maxRetries int, base time.Duration) Policy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if base <= 0 {
		base = time.Second
	}
	return Policy{maxRetries: maxRetries, base: base}
}

// Default mirrors the downloader's policy: 3 retries, 2^attempt seconds.
func Default() Policy {
	return New(3, time.Second)
}

// Do runs fn until it succeeds or the attempt budget is exhausted. The backoff
// delay is interruptible by ctx; cancellation surfaces as ctx.Err().
func (p Policy) Do(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if attempt >= p.maxRetries {
			return err
		}

		delay := time.Duration(math.Pow(2, float64(attempt+1))) * p.base
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, p Policy, fn func() (T, error)) (T, error) {
	var result T
	err := p.Do(ctx, func() error {
		var err error
		result, err = fn()
		return err
	})
	return result, err
}
