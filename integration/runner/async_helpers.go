package runner

import (
	"context"
	"errors"
	"time"
)

// Condition is a single probe of the page. A non-nil error aborts the wait.
type Condition func(ctx context.Context) (bool, error)

// waitUntil polls cond every interval until it holds or timeout elapses.
// It probes once immediately. met is false on timeout; err is only set when
// cond fails or ctx is cancelled. Each probe is bounded by the remaining
// window so a hung probe cannot outlive its wait.
func waitUntil(ctx context.Context, timeout, interval time.Duration, cond Condition) (met bool, err error) {
	deadline := time.Now().Add(timeout)
	waitCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(waitCtx)
		switch {
		case err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil:
			// the probe ran out of window, which is a timeout
			return false, nil
		case err != nil:
			return false, err
		case ok:
			return true, nil
		}

		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return false, err
			}
			return false, nil
		case <-ticker.C:
		}
	}
}

// tolerant turns probe errors into "not yet", keeping the most recent one
// for the timeout message. Reloads briefly destroy the execution context, so
// readiness and visibility probes must survive transient failures.
func tolerant(probe Condition, lastErr *error) Condition {
	return func(ctx context.Context) (bool, error) {
		ok, err := probe(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return false, ctx.Err()
			}
			*lastErr = err
			return false, nil
		}
		return ok, nil
	}
}
