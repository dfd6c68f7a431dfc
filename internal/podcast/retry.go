package podcast

import (
	"context"
	"math/rand"
	"time"

	"github.com/doccast/doccast/internal/utils"
)

// RetryPolicy is the single backoff policy applied at every external-call
// site: bounded attempts, exponential delay, jitter.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Factor      float64
	Jitter      float64 // fraction of the delay randomized, 0..1
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		Factor:      2.0,
		Jitter:      0.2,
	}
}

// Delay returns the backoff before the given attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := float64(p.BaseDelay)
	for i := 1; i < attempt; i++ {
		d *= p.Factor
	}
	if p.Jitter > 0 {
		d *= 1 - p.Jitter + 2*p.Jitter*rand.Float64()
	}
	return time.Duration(d)
}

// Do runs fn until it succeeds, fails with a non-retryable error, or exhausts
// the attempt cap. It returns the number of attempts made alongside the last
// error. Cancellation is observed between attempts, never mid-attempt.
func (p RetryPolicy) Do(ctx context.Context, retryable func(error) bool, fn func(ctx context.Context) error) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return attempt - 1, utils.E(utils.CodeCancelled, "retry", "cancelled", err)
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return attempt, nil
		}
		if !retryable(lastErr) || attempt == p.MaxAttempts {
			return attempt, lastErr
		}

		select {
		case <-time.After(p.Delay(attempt)):
		case <-ctx.Done():
			return attempt, utils.E(utils.CodeCancelled, "retry", "cancelled", ctx.Err())
		}
	}
	return p.MaxAttempts, lastErr
}
