package service

import (
	"context"
	"errors"
	"time"

	"github.com/librario/lending-api/internal/core/domain"
)

// storeRetryBackoff is the pause before the single retry of a failed store call.
var storeRetryBackoff = 100 * time.Millisecond

// withStoreRetry runs op and, when it fails with domain.ErrStoreUnavailable,
// runs it once more after storeRetryBackoff. Only reads and idempotent writes
// go through here; business-rule failures are returned as is.
func withStoreRetry[T any](ctx context.Context, op func(context.Context) (T, error)) (T, error) {
	v, err := op(ctx)
	if err == nil || !errors.Is(err, domain.ErrStoreUnavailable) {
		return v, err
	}

	timer := time.NewTimer(storeRetryBackoff)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return v, err
	case <-timer.C:
	}
	return op(ctx)
}
