// Package retry re-runs ledger writes that lost an optimistic concurrency race.
package retry

import (
	"context"
	"time"

	"github.com/amirasaad/mileage/pkg/config"
	"github.com/amirasaad/mileage/pkg/domain/mileage"
	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
)

// Policy bounds how often and how fast a conflicting write is retried.
type Policy struct {
	MaxRetries int
	Delay      time.Duration
	MaxDelay   time.Duration
	// OnRetry, when set, is called before every retry with the attempt that failed.
	OnRetry func(attempt int, err error)
}

// FromConfig builds a Policy from the ledger configuration.
func FromConfig(cfg *config.Ledger) Policy {
	return Policy{
		MaxRetries: cfg.RetryMax,
		Delay:      cfg.RetryDelay,
		MaxDelay:   cfg.RetryMaxDelay,
	}
}

// OnConflict runs fn and retries it while it fails with
// mileage.ErrConcurrentModification. Any other error is returned at once.
// After the last retry the final error is returned unwrapped.
func OnConflict[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	builder := retrypolicy.NewBuilder[T]().
		HandleErrors(mileage.ErrConcurrentModification).
		WithMaxRetries(max(p.MaxRetries, 0)).
		ReturnLastFailure()

	switch {
	case p.Delay > 0 && p.MaxDelay > p.Delay:
		builder = builder.WithBackoff(p.Delay, p.MaxDelay).WithJitterFactor(0.1)
	case p.Delay > 0:
		builder = builder.WithDelay(p.Delay)
	}
	if p.OnRetry != nil {
		builder = builder.OnRetry(func(e failsafe.ExecutionEvent[T]) {
			p.OnRetry(e.Attempts(), e.LastError())
		})
	}

	return failsafe.With[T](builder.Build()).
		WithContext(ctx).
		Get(func() (T, error) {
			return fn(ctx)
		})
}
