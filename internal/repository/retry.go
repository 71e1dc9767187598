package repository

import (
	"context"
	"errors"
	"time"
)

const (
	// MaxCreateAttempts is the first attempt plus three retries with fresh ids.
	MaxCreateAttempts = 4
	RetryDelay        = 50 * time.Millisecond
)

type IDFunc func() string

// CreateWithRetry calls insert with ids from newID until it succeeds, fails with something
// other than ErrConflict, or runs out of attempts.
func CreateWithRetry(ctx context.Context, newID IDFunc, insert func(id string) error) (string, error) {
	var err error
	for attempt := 0; attempt < MaxCreateAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(RetryDelay):
			}
		}

		id := newID()
		err = insert(id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, ErrConflict) {
			return "", err
		}
	}
	return "", err
}
