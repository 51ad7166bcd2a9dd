package gh

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
)

// RetryPolicy bounds how hard the client leans on a flaky remote: a fixed
// attempt cap with exponential backoff, jittered so concurrent runs do not
// retry in lockstep.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 5,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    8 * time.Second,
	}
}

func (p RetryPolicy) backoff(attempt int) time.Duration {
	delay := p.BaseDelay << uint(attempt)
	if delay > p.MaxDelay || delay <= 0 {
		delay = p.MaxDelay
	}
	half := delay / 2
	return half + time.Duration(rand.Int63n(int64(half+1)))
}

// run invokes fn until it succeeds, a permanent error appears, the attempt
// cap is hit, or ctx is done. Each attempt gets its own timeout; the parent
// ctx aborts in-flight waits promptly.
func (p RetryPolicy) run(ctx context.Context, timeout time.Duration, endpoint string, fn func(ctx context.Context) error) error {
	logger := zerolog.Ctx(ctx)

	var lastErr error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		attemptCtx := ctx
		cancel := func() {}
		if timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, timeout)
		}
		err := fn(attemptCtx)
		cancel()

		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			// The caller's deadline wins over any classification.
			return ctx.Err()
		}

		lastErr = classify(endpoint, err)

		var apiErr *APIError
		if !errors.As(lastErr, &apiErr) || !apiErr.Transient {
			return lastErr
		}

		if attempt == p.MaxAttempts-1 {
			break
		}

		delay := p.backoff(attempt)
		logger.Warn().
			Str("endpoint", endpoint).
			Int("attempt", attempt+1).
			Dur("backoff", delay).
			Err(err).
			Msg("transient API error, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return lastErr
}
