package client

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/cenkalti/backoff/v4"

	"github.com/Nao-Mk2/awslogs/internal/logging"
)

// RetryPolicy bounds the exponential backoff applied to throttled calls.
// RequestTimeout limits each single request attempt; zero leaves attempts
// bounded only by the caller's context.
type RetryPolicy struct {
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	RequestTimeout  time.Duration
}

var throttles = retry.IsErrorThrottles(retry.DefaultThrottles)

// IsThrottle reports whether err is a service throttling error.
func IsThrottle(err error) bool {
	return err != nil && throttles.IsErrorThrottle(err).Bool()
}

func (p RetryPolicy) backoff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(p.InitialInterval),
		backoff.WithMaxInterval(p.MaxInterval),
		backoff.WithMaxElapsedTime(0),
	)
	return backoff.WithContext(backoff.WithMaxRetries(b, p.MaxRetries), ctx)
}

func (p RetryPolicy) attempt(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.RequestTimeout)
}

// call runs op, retrying only throttling failures. Other errors and the last
// throttling error after the retries run out are returned as is. Each attempt
// gets its own deadline, so a long page sequence is never cut off as a whole.
func call[T any](ctx context.Context, c *CloudWatchClient, name string, op func(context.Context) (T, error)) (T, error) {
	return backoff.RetryNotifyWithData(func() (T, error) {
		actx, cancel := c.retry.attempt(ctx)
		defer cancel()
		out, err := op(actx)
		if err != nil && !IsThrottle(err) {
			return out, backoff.Permanent(err)
		}
		return out, err
	}, c.retry.backoff(ctx), func(err error, wait time.Duration) {
		c.log.Debug("throttled, backing off",
			logging.String("operation", name),
			logging.Duration("wait", wait),
			logging.Error(err),
		)
	})
}
