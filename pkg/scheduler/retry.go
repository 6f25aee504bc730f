package scheduler

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy bounds Retry.
type RetryPolicy struct {
	// MaxRetries is the number of attempts after the first
	MaxRetries int
	// BaseDelay is the wait before the first retry; it doubles each time
	BaseDelay time.Duration
}

// NewBackOff returns the fixed doubling schedule for p.
func (p RetryPolicy) NewBackOff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     p.BaseDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         p.BaseDelay << 10,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithMaxRetries(b, uint64(retries))
}

// Retry calls fn until it succeeds, returns a backoff.Permanent error, the
// policy is exhausted or ctx is done. notify, if set, sees each failure
// that will be retried. The last error is returned.
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error, notify func(err error, attempt int, wait time.Duration)) error {
	attempt := 0
	op := func() error {
		attempt++
		return fn(ctx)
	}
	var n backoff.Notify
	if notify != nil {
		n = func(err error, wait time.Duration) {
			notify(err, attempt, wait)
		}
	}
	return backoff.RetryNotify(op, backoff.WithContext(p.NewBackOff(), ctx), n)
}
