package scenario

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRetryBackoff = 100 * time.Millisecond
	maxRetryBackoff     = 30 * time.Second
)

// retry calls fn until it succeeds, MaxRetries extra attempts are spent, or
// ctx is done. The wait doubles after each failure up to maxRetryBackoff.
func (c RunConfig) retry(ctx context.Context, logger *zap.Logger, what string, fn func(context.Context) error) error {
	retries := c.MaxRetries
	if retries < 0 {
		retries = 0
	}
	delay := c.RetryBackoff
	if delay <= 0 {
		delay = defaultRetryBackoff
	}

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt > retries {
			return err
		}
		logger.Warn(what+" failed, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Duration("backoff", delay),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
		if delay > maxRetryBackoff {
			delay = maxRetryBackoff
		}
	}
}
