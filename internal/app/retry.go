package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jpillora/backoff"

	"bandScalper/internal/ports"
)

// retryPolicy runs an operation a bounded number of times, each attempt
// under its own timeout, sleeping with exponential backoff in between.
type retryPolicy struct {
	attempts  int
	timeout   time.Duration
	minDelay  time.Duration
	maxDelay  time.Duration
	retryable func(error) bool
}

func (p retryPolicy) do(ctx context.Context, fn func(ctx context.Context) error) error {
	b := &backoff.Backoff{
		Min:    p.minDelay,
		Max:    p.maxDelay,
		Factor: 2,
		Jitter: true,
	}
	attempts := p.attempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.timeout)
		err := fn(attemptCtx)
		cancel()
		if err == nil {
			return nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", ports.ErrTimeout, err)
		}
		lastErr = err

		if attempt == attempts || (p.retryable != nil && !p.retryable(err)) {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ports.ErrContextCanceled, lastErr)
		case <-time.After(b.Duration()):
		}
	}
	return lastErr
}

// anyError retries everything except cancellation.
func anyError(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, ports.ErrContextCanceled)
}

// rejectedOrder retries only failures where the venue certainly did not
// execute the order. Timeouts are ambiguous and are never retried.
func rejectedOrder(err error) bool {
	return errors.Is(err, ports.ErrRateLimited) || errors.Is(err, ports.ErrExchangeUnavailable)
}
