package llm

import (
	"context"
	"time"
)

// RetryPolicy controls how transient failures are retried.
type RetryPolicy struct {
	// Attempts is the total number of tries, including the first.
	Attempts  int
	BaseDelay time.Duration
	Factor    float64
	// OnRetry is called before each retry with the attempt that failed.
	OnRetry func(attempt int, err error)
}

// DefaultRetryPolicy returns a policy of 3 attempts with exponential backoff
// starting at 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, BaseDelay: 500 * time.Millisecond, Factor: 2}
}

// WithAttempts returns a copy of p with the given attempt count.
func (p RetryPolicy) WithAttempts(n int) RetryPolicy {
	p.Attempts = n
	return p
}

// Retry calls fn until it succeeds, returns a non-transient error, or the
// policy runs out of attempts. The last error is returned. Waiting between
// attempts stops early when ctx is done.
func Retry(ctx context.Context, p RetryPolicy, fn func(ctx context.Context) error) error {
	attempts := max(p.Attempts, 1)
	delay := p.BaseDelay
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		if attempt == attempts || !IsTransient(err) {
			return err
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		delay = time.Duration(float64(delay) * factor)
	}
	return err
}
