package upsert

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/geokb/geokb/pkg/errors"
)

// retryPolicy bounds retries of transport failures. Validation errors
// and not-found results are permanent: retrying them cannot change the
// outcome.
type retryPolicy struct {
	maxRetries      uint64
	initialInterval time.Duration
	maxInterval     time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		maxRetries:      3,
		initialInterval: 500 * time.Millisecond,
		maxInterval:     10 * time.Second,
	}
}

// retry runs op with bounded exponential backoff. Record failures and
// not-found errors short-circuit as permanent.
func (p retryPolicy) retry(ctx context.Context, op func() error) error {
	wrapped := func() error {
		err := op()
		if err == nil {
			return nil
		}
		if errors.IsRecordFailure(err) || errors.IsNotFound(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = p.initialInterval
	bo.MaxInterval = p.maxInterval

	return backoff.Retry(wrapped, backoff.WithContext(backoff.WithMaxRetries(bo, p.maxRetries), ctx))
}
