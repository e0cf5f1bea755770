package service

import (
	"context"
	"time"

	"leave-ledger/internal/apperror"
	"leave-ledger/internal/repository"
)

const retryBackoff = 5 * time.Millisecond

// retryOnConflict runs fn until it succeeds, fails with a non-conflict error,
// or attempts are used up. Exhaustion yields ErrReservationConflict.
func retryOnConflict(ctx context.Context, attempts int, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !repository.IsConflict(err) {
			return err
		}
		if attempt == attempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}
	return apperror.Wrap(ErrReservationConflict, err)
}
