package extract

import (
	"context"
	"fmt"
	"time"
)

// Observe subscribes to page mutations and re-runs the locators on each
// notification, accumulating across notifications. A parallel ticker with
// the same budget as Poll bounds the wait. The subscription is released on
// every return path.
func Observe[R any](ctx context.Context, page Page, target Target[R], policy Policy) (R, error) {
	policy = policy.normalized()
	a := &attempt[R]{target: target}

	notes, stop, err := page.Subscribe(ctx)
	if err != nil {
		var zero R
		return zero, fmt.Errorf("subscribe to page mutations: %w", err)
	}
	defer stop()

	ticker := time.NewTicker(policy.Interval)
	defer ticker.Stop()

	complete := a.pass(ctx, page)

	for {
		if complete {
			return a.resolve()
		}

		select {
		case <-ctx.Done():
			var zero R
			return zero, ctx.Err()

		case _, ok := <-notes:
			if !ok {
				// The page went away; the ticker still enforces the budget.
				notes = nil
				continue
			}
			complete = a.pass(ctx, page)

		case <-ticker.C:
			a.ticks++
			if a.ticks >= policy.MaxAttempts {
				var zero R
				return zero, a.exhausted()
			}
		}
	}
}
