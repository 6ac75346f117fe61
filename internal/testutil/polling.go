// Package testutil holds helpers shared by the launchman tests.
package testutil

import (
	"context"
	"fmt"
	"time"
)

// Poll calls condition every interval until it returns true, timeout
// elapses, or ctx is done. condition runs on the calling goroutine.
func Poll(ctx context.Context, condition func() bool, timeout, interval time.Duration) error {
	_, err := WaitForState(ctx, condition, func(ok bool) bool { return ok }, timeout, interval)
	return err
}

// WaitForState polls getter until predicate accepts its value, returning
// that value. It fails after timeout, or with ctx.Err() once ctx is done.
func WaitForState[T any](ctx context.Context, getter func() T, predicate func(T) bool, timeout, interval time.Duration) (T, error) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		state := getter()
		if predicate(state) {
			return state, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-deadline.C:
			var zero T
			return zero, fmt.Errorf("condition not met within %v (last value %v)", timeout, state)
		case <-ticker.C:
		}
	}
}
