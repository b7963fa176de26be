package provider

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/FACorreiaa/go-trip-planner/internal/types"
)

// MaxAttempts bounds Retry.
const MaxAttempts = 3

var initialRetryInterval = 250 * time.Millisecond

// Retry runs op with exponential backoff, up to MaxAttempts times. Only retryable
// transport errors (no response, 429, 5xx) are repeated; anything else, including
// context cancellation, is returned immediately.
func Retry(ctx context.Context, op func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = initialRetryInterval
	eb.MaxElapsedTime = 0
	b := backoff.WithContext(backoff.WithMaxRetries(eb, MaxAttempts-1), ctx)

	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var te *types.TransportError
	if errors.As(err, &te) {
		return te.Retryable()
	}
	return false
}
