package fs

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/retry"
)

// implements retry logic with exponential backoff.
// It is used by copy and rename operations to handle transient filesystem errors.

const (
	maxRetries = 5
	retryBase  = 100 * time.Millisecond
)

var retryClock clock.Clock = clock.WallClock

func withRetry(ctx context.Context, opName string, fn func() error) error {
	err := retry.Call(retry.CallArgs{
		Func:         fn,
		IsFatalError: func(err error) bool { return !isTransient(err) },
		Attempts:     maxRetries,
		Delay:        retryBase,
		BackoffFunc:  retry.DoubleDelay,
		Clock:        retryClock,
		Stop:         ctx.Done(),
	})
	switch {
	case err == nil:
		return nil
	case retry.IsAttemptsExceeded(err):
		return errors.Annotatef(retry.LastError(err), "%s failed after %d retries", opName, maxRetries)
	case retry.IsRetryStopped(err):
		return errors.Trace(ctx.Err())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return errors.Annotatef(err, "%s failed permanently", opName)
	}
}
