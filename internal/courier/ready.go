package courier

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff"
)

const (
	DefaultReadyInterval    = 250 * time.Millisecond
	DefaultReadyMaxInterval = 2 * time.Second
	DefaultReadyMaxElapsed  = 30 * time.Second
)

// ReadyOption tunes WaitReady.
type ReadyOption func(*backoff.ExponentialBackOff)

// WithReadyMaxElapsed bounds the total time spent waiting.
func WithReadyMaxElapsed(d time.Duration) ReadyOption {
	return func(b *backoff.ExponentialBackOff) {
		b.MaxElapsedTime = d
	}
}

// WithReadyInterval sets the first and the largest wait between attempts.
func WithReadyInterval(initial, maxInterval time.Duration) ReadyOption {
	return func(b *backoff.ExponentialBackOff) {
		b.InitialInterval = initial
		b.MaxInterval = maxInterval
	}
}

// WaitReady polls the heartbeat endpoint with exponential backoff until the
// broker answers. A 4xx answer stops the wait at once, since retrying will not
// change it.
func WaitReady(ctx context.Context, c *Client, opts ...ReadyOption) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = DefaultReadyInterval
	bo.MaxInterval = DefaultReadyMaxInterval
	bo.MaxElapsedTime = DefaultReadyMaxElapsed
	for _, opt := range opts {
		opt(bo)
	}
	bo.Reset()

	attempts := 0
	return backoff.Retry(func() error {
		attempts++
		err := c.Heartbeat(ctx)
		if err == nil {
			return nil
		}
		var se *StatusError
		if errors.As(err, &se) && se.Code < 500 {
			return backoff.Permanent(err)
		}
		c.log.WithField("attempt", attempts).WithError(err).Info("broker not ready")
		return err
	}, backoff.WithContext(bo, ctx))
}
