package commands

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/dejobratic/storefront/internal/apperrors"
)

// RetryPolicy bounds how often a transaction that lost a concurrent race is replayed.
type RetryPolicy struct {
	MaxAttempts     uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy is used when a handler is built without an explicit policy.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:     4,
	InitialInterval: 10 * time.Millisecond,
	MaxInterval:     200 * time.Millisecond,
}

// retryOnConflict replays op while it fails with a conflict. Any other error stops
// the loop immediately.
func retryOnConflict[T any](ctx context.Context, policy RetryPolicy, op func() (T, error)) (T, error) {
	if policy.MaxAttempts == 0 {
		policy = DefaultRetryPolicy
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = policy.InitialInterval
	b.MaxInterval = policy.MaxInterval

	return backoff.Retry(ctx, func() (T, error) {
		result, err := op()
		if err != nil && !errors.Is(err, apperrors.ErrConflict) {
			return result, backoff.Permanent(err)
		}
		return result, err
	}, backoff.WithBackOff(b), backoff.WithMaxTries(policy.MaxAttempts))
}

// permanent stops retryOnConflict on a conflict that replaying cannot resolve.
func permanent(err error) error {
	return backoff.Permanent(err)
}
