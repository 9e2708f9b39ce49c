package repository

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	updateMaxTries     = 4
	updateMaxElapsed   = 5 * time.Second
	updateInitialDelay = 100 * time.Millisecond
)

// RetryUpdate runs an idempotent write with bounded exponential backoff.
// Errors wrapped with backoff.Permanent, and the not-found sentinels passed in
// stopOn, are returned immediately.
func RetryUpdate(ctx context.Context, operation string, fn func(ctx context.Context) error, stopOn ...error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = updateInitialDelay

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		err := fn(ctx)
		for _, target := range stopOn {
			if errors.Is(err, target) {
				return struct{}{}, backoff.Permanent(err)
			}
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(updateMaxTries),
		backoff.WithMaxElapsedTime(updateMaxElapsed),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Printf("[Store] %s failed (attempt %d), retrying in %v: %v", operation, attempt, next, err)
		}),
	)
	if err != nil {
		log.Printf("[Store] %s gave up after %d attempts: %v", operation, attempt, err)
	}
	return err
}
