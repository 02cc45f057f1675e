// Package extract drives the locators against a live page until a record is
// complete or the attempt budget runs out. Two strategies share one result
// contract: Poll re-reads the page on a fixed cadence, Observe additionally
// re-reads it on every DOM mutation notification.
package extract

import (
	"context"
	"fmt"
	"time"

	"datahunter/internal/collector/locate"
	"datahunter/internal/domain"
	"datahunter/pkg/log"
)

// Page is the live host page. Every Snapshot call re-reads the DOM; nothing
// read from a previous snapshot is valid afterwards.
type Page interface {
	Snapshot(ctx context.Context) (*locate.Snapshot, error)

	// Subscribe delivers one notification per observed subtree mutation of the
	// document body (notifications may be coalesced). stop releases the
	// subscription and must be called exactly once.
	Subscribe(ctx context.Context) (notes <-chan struct{}, stop func(), err error)
}

// Policy is the cadence and budget of one attempt.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
}

// Default policies per page type.
var (
	TweetPolicy = Policy{Interval: 500 * time.Millisecond, MaxAttempts: 20}
	ChatPolicy  = Policy{Interval: 300 * time.Millisecond, MaxAttempts: 20}
	ReplyPolicy = Policy{Interval: 500 * time.Millisecond, MaxAttempts: 20}
)

func (p Policy) normalized() Policy {
	if p.Interval <= 0 {
		p.Interval = TweetPolicy.Interval
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = TweetPolicy.MaxAttempts
	}
	return p
}

// Target binds the locators of one page type to the extractors.
type Target[R any] interface {
	// Subject identifies what the snapshot shows. An attempt that sees the
	// subject change starts over.
	Subject(s *locate.Snapshot) domain.ExtractionTarget

	// Locate runs one locator pass. found reports whether any relevant
	// element was observed, even if it yielded no usable field.
	Locate(s *locate.Snapshot) (partial R, found bool)

	// Busy reports a transient page state during which nothing is merged.
	Busy(s *locate.Snapshot) bool

	// Merge folds a partial into the accumulator without clearing fields.
	Merge(acc, partial R) R

	// Complete is the completeness predicate.
	Complete(acc R) bool

	// Finalize validates a complete record before it is returned.
	Finalize(s *locate.Snapshot, acc R) (R, error)
}

// attempt is the state of one extraction: the subject it reads, the
// accumulated partial, the tick count and whether anything relevant was ever
// seen.
type attempt[R any] struct {
	target  Target[R]
	subject domain.ExtractionTarget
	started bool
	acc     R
	ticks   int
	seen    bool
	last    *locate.Snapshot
}

// pass reads the page once and merges what it finds. It reports whether the
// accumulator is now complete.
func (a *attempt[R]) pass(ctx context.Context, page Page) bool {
	snap, err := page.Snapshot(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.GlobalDebugCtx(ctx, "extract snapshot failed", "error", err)
		}
		return false
	}
	a.last = snap

	subject := a.target.Subject(snap)
	switch {
	case !a.started:
		a.subject, a.started = subject, true
	case !a.subject.SameSubject(subject):
		log.GlobalDebugCtx(ctx, "page subject changed, restarting attempt",
			"from", a.subject.ID, "to", subject.ID)
		var zero R
		a.acc, a.seen, a.subject = zero, false, subject
	}

	partial, found := a.target.Locate(snap)
	if found {
		a.seen = true
	}
	if a.target.Busy(snap) {
		return false
	}
	a.acc = a.target.Merge(a.acc, partial)
	return a.target.Complete(a.acc)
}

// resolve finalizes a complete accumulator.
func (a *attempt[R]) resolve() (R, error) {
	return a.target.Finalize(a.last, a.acc)
}

// exhausted returns the rejection for a spent budget.
func (a *attempt[R]) exhausted() error {
	if a.seen {
		return fmt.Errorf("after %d attempts: %w", a.ticks, domain.ErrTimeout)
	}
	return fmt.Errorf("after %d attempts: %w", a.ticks, domain.ErrMissingContent)
}

// Poll re-runs the target's locators against the current page on every tick
// and resolves the first tick the accumulator is complete. Busy ticks count
// toward the budget without merging. When the budget is spent it rejects with
// ErrMissingContent if nothing relevant was ever seen, else ErrTimeout.
func Poll[R any](ctx context.Context, page Page, target Target[R], policy Policy) (R, error) {
	policy = policy.normalized()
	a := &attempt[R]{target: target}

	ticker := time.NewTicker(policy.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			var zero R
			return zero, ctx.Err()
		case <-ticker.C:
		}

		a.ticks++
		if a.pass(ctx, page) {
			return a.resolve()
		}
		if ctx.Err() != nil {
			var zero R
			return zero, ctx.Err()
		}
		if a.ticks >= policy.MaxAttempts {
			var zero R
			return zero, a.exhausted()
		}
	}
}

// Strategy selects how an attempt waits for the page.
type Strategy string

const (
	Polling   Strategy = "poll"
	Observing Strategy = "observe"
)

// Run extracts with the given strategy. Unknown strategies poll.
func Run[R any](ctx context.Context, strategy Strategy, page Page, target Target[R], policy Policy) (R, error) {
	if strategy == Observing {
		return Observe(ctx, page, target, policy)
	}
	return Poll(ctx, page, target, policy)
}
