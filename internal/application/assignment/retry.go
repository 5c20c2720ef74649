package assignment

import (
	"context"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/example/cleaner-scheduler/internal/internaltypes"
	"github.com/google/uuid"
)

// AutoAssigner is satisfied by *Engine.
type AutoAssigner interface {
	AutoAssignCleaner(ctx context.Context, bookingID uuid.UUID) (Outcome, error)
}

// RetryPolicy bounds caller-side retries of AutoAssignCleaner.
type RetryPolicy struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, InitialInterval: 200 * time.Millisecond, MaxInterval: 2 * time.Second}
}

func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	eb.MaxElapsedTime = 0

	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(eb, uint64(attempts-1)), ctx)
}

// RetryAutoAssign re-runs the whole auto-assign operation, candidate
// selection included, while it fails with ErrConflict or ErrTransient.
// Other errors and no-candidate outcomes are returned immediately.
func RetryAutoAssign(ctx context.Context, a AutoAssigner, bookingID uuid.UUID, p RetryPolicy, log *slog.Logger) (Outcome, error) {
	if log == nil {
		log = slog.Default()
	}
	var out Outcome
	op := func() error {
		o, err := a.AutoAssignCleaner(ctx, bookingID)
		out = o
		if err != nil && !internaltypes.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Info("retrying auto-assign", "booking_id", bookingID, "err", err, "wait", wait)
	}
	err := backoff.RetryNotify(op, p.backOff(ctx), notify)
	return out, err
}
