package gateway

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lox/aqidash/internal/models"
)

// Reference is the lookup data the filter controls need before the first apply.
type Reference struct {
	States []string
	Bounds models.DateBounds
}

// LoadReference fetches the state list and date bounds, retrying transient
// failures (network errors and 5xx) according to bo.
func (c *Client) LoadReference(ctx context.Context, bo backoff.BackOff) (Reference, error) {
	var ref Reference
	operation := func() error {
		states, err := c.States(ctx)
		if err != nil {
			return retryable(err)
		}
		bounds, err := c.DateRange(ctx)
		if err != nil {
			return retryable(err)
		}
		ref = Reference{States: states, Bounds: bounds}
		return nil
	}

	notify := func(err error, wait time.Duration) {
		log.Printf("gateway: reference load failed, retrying in %s: %v", wait, err)
	}
	if err := backoff.RetryNotify(operation, backoff.WithContext(bo, ctx), notify); err != nil {
		return Reference{}, err
	}
	return ref, nil
}

// retryable marks errors that retrying can't fix as permanent.
func retryable(err error) error {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return err
	}
	var srvErr *ServerError
	if errors.As(err, &srvErr) && srvErr.Status >= http.StatusInternalServerError {
		return err
	}
	return backoff.Permanent(err)
}
