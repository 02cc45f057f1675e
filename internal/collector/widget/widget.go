// Package widget binds one extraction attempt and one submission state machine
// to a page subject. Every mutation of widget state happens under one lock;
// asynchronous work reports back only if its generation is still current.
package widget

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"datahunter/internal/collector/submission"
	"datahunter/internal/domain"
	"datahunter/pkg/log"
)

// Accounts reports whether a data hub account is bound.
type Accounts interface {
	HasAccount() bool
}

// Navigator opens a URL outside the watched page.
type Navigator interface {
	Open(url string)
}

// Links are the external pages a widget can open.
type Links struct {
	Connect string
	Rewards string
}

// Config wires a widget to its page type.
type Config[R any] struct {
	Kind domain.TargetKind

	// Bound is the subject id the widget was mounted for, "" when it follows
	// whatever the page shows.
	Bound string

	// Extract runs one extraction attempt. It must return when ctx is done.
	Extract func(ctx context.Context) (R, error)

	// Complete is the submission contract check applied to resolved records.
	Complete func(R) bool

	// Subject returns the id a record belongs to. When set together with
	// Bound, records for another subject are rejected.
	Subject func(R) string

	// Info describes a held record for the reconciler.
	Info func(R) domain.PageInfo

	// Submit sends a complete record.
	Submit func(ctx context.Context, rec R) (domain.SubmitResult, error)

	Accounts  Accounts
	Navigator Navigator
	Links     Links

	// CollectNeedsAccount keeps the widget idle until an account is bound.
	CollectNeedsAccount bool
}

// Widget is one live on-page widget.
type Widget[R any] struct {
	id  string
	cfg Config[R]

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	state          submission.State[R]
	gen            uint64
	epoch          uint64
	stopAttempt    context.CancelFunc
	pendingRefresh bool
	disposed       bool
	changed        chan struct{}
}

// New creates an idle widget. Nothing runs until Start.
func New[R any](parent context.Context, cfg Config[R]) *Widget[R] {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(log.WithFields(parent, "widget", id, "kind", string(cfg.Kind)))
	return &Widget[R]{
		id:      id,
		cfg:     cfg,
		ctx:     ctx,
		cancel:  cancel,
		state:   submission.State[R]{Kind: submission.Idle},
		changed: make(chan struct{}),
	}
}

// ID returns the widget instance id.
func (w *Widget[R]) ID() string { return w.id }

// Kind returns the page type the widget serves.
func (w *Widget[R]) Kind() domain.TargetKind { return w.cfg.Kind }

// Bound returns the subject id the widget was mounted for.
func (w *Widget[R]) Bound() string { return w.cfg.Bound }

// State returns the current state.
func (w *Widget[R]) State() submission.State[R] {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Held describes the record the widget holds, zero if none.
func (w *Widget[R]) Held() domain.PageInfo {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.state.HasRecord || w.cfg.Info == nil {
		return domain.PageInfo{}
	}
	return w.cfg.Info(w.state.Record)
}

// Start launches the first extraction.
func (w *Widget[R]) Start() {
	w.Refresh()
}

// Refresh re-extracts the current subject. While a submission is running the
// refresh waits for it to settle.
func (w *Widget[R]) Refresh() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dispatch(submission.Event[R]{Kind: submission.Refresh})
}

// Reset discards all state, invalidates outstanding work and re-extracts the
// subject the page shows now.
func (w *Widget[R]) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.disposed {
		return
	}
	w.invalidate()
	w.epoch++
	w.pendingRefresh = false
	w.dispatch(submission.Event[R]{Kind: submission.Reset})
	w.dispatch(submission.Event[R]{Kind: submission.Refresh})
}

// Submit sends the held record. Without an account it opens the connect page
// and leaves the state alone.
func (w *Widget[R]) Submit() error {
	if w.cfg.Accounts != nil && !w.cfg.Accounts.HasAccount() {
		w.open(w.cfg.Links.Connect)
		return domain.ErrNoAccount
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.disposed {
		return domain.ErrDisposed
	}
	switch w.state.Kind {
	case submission.Submitting:
		return domain.ErrBusy
	case submission.Ready:
		w.dispatch(submission.Event[R]{Kind: submission.Submit})
		return nil
	default:
		return domain.ErrNotFound
	}
}

// Retry re-runs whatever failed. It does nothing for a reconnect or limited
// error.
func (w *Widget[R]) Retry() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dispatch(submission.Event[R]{Kind: submission.Retry})
}

// ViewRecords opens the rewards page after a successful submission.
func (w *Widget[R]) ViewRecords() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.dispatch(submission.Event[R]{Kind: submission.ViewRecords})
}

// AccountChanged reacts to the credential store. A bound account clears a
// reconnect error and starts collection for widgets that waited for it.
func (w *Widget[R]) AccountChanged(hasAccount bool) {
	if !hasAccount {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.state.Kind == submission.Error {
		w.dispatch(submission.Event[R]{Kind: submission.Reauthenticated})
		return
	}
	if w.cfg.CollectNeedsAccount && w.state.Kind == submission.Idle && w.stopAttempt == nil {
		w.dispatch(submission.Event[R]{Kind: submission.Refresh})
	}
}

// Await blocks until pred holds for the current state or ctx is done.
func (w *Widget[R]) Await(ctx context.Context, pred func(submission.State[R]) bool) (submission.State[R], error) {
	for {
		w.mu.Lock()
		s, ch, disposed := w.state, w.changed, w.disposed
		w.mu.Unlock()

		if pred(s) {
			return s, nil
		}
		if disposed {
			return s, domain.ErrDisposed
		}
		select {
		case <-ctx.Done():
			return s, ctx.Err()
		case <-ch:
		}
	}
}

// Dispose cancels all outstanding work and waits for it to return. No state
// changes happen afterwards.
func (w *Widget[R]) Dispose() {
	w.mu.Lock()
	if w.disposed {
		w.mu.Unlock()
		return
	}
	w.disposed = true
	w.gen++
	w.epoch++
	w.stopAttempt = nil
	w.cancel()
	w.notify()
	w.mu.Unlock()

	w.wg.Wait()
	log.GlobalDebugCtx(w.ctx, "widget disposed")
}

// dispatch applies ev and performs its effect. Callers hold w.mu.
func (w *Widget[R]) dispatch(ev submission.Event[R]) {
	if w.disposed {
		return
	}

	next, effect := submission.Transition(w.state, ev)
	w.set(next)

	switch effect {
	case submission.Extract:
		w.extract()
	case submission.Send:
		w.send()
	case submission.OpenRewards:
		w.open(w.cfg.Links.Rewards)
	case submission.Defer:
		w.pendingRefresh = true
	}
}

func (w *Widget[R]) set(s submission.State[R]) {
	if s.Kind != w.state.Kind || s.Reason != w.state.Reason {
		log.GlobalDebugCtx(w.ctx, "widget state changed", "from", string(w.state.Kind), "to", string(s.Kind), "reason", string(s.Reason))
	}
	w.state = s
	w.notify()
}

func (w *Widget[R]) notify() {
	close(w.changed)
	w.changed = make(chan struct{})
}

// invalidate cancels the outstanding attempt and makes its result stale.
func (w *Widget[R]) invalidate() {
	w.gen++
	if w.stopAttempt != nil {
		w.stopAttempt()
		w.stopAttempt = nil
	}
}

// extract launches a new attempt, superseding the previous one.
func (w *Widget[R]) extract() {
	if w.cfg.CollectNeedsAccount && w.cfg.Accounts != nil && !w.cfg.Accounts.HasAccount() {
		return
	}

	w.invalidate()
	gen := w.gen
	ctx, stop := context.WithCancel(w.ctx)
	w.stopAttempt = stop

	next, _ := submission.Transition(w.state, submission.Event[R]{Kind: submission.Started})
	w.set(next)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer stop()

		rec, err := w.cfg.Extract(ctx)
		if err == nil && w.cfg.Bound != "" && w.cfg.Subject != nil {
			if got := w.cfg.Subject(rec); got != w.cfg.Bound {
				err = fmt.Errorf("record for %q, widget bound to %q: %w", got, w.cfg.Bound, domain.ErrSubjectChanged)
			}
		}

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.disposed || gen != w.gen {
			log.GlobalTraceCtx(w.ctx, "stale extraction discarded", "generation", gen)
			return
		}
		w.stopAttempt = nil
		if err != nil {
			log.GlobalInfoCtx(w.ctx, "extraction failed", "error", err, "kind", string(domain.Classify(err)))
			w.dispatch(submission.Event[R]{Kind: submission.Rejected, Err: err})
			return
		}
		w.dispatch(submission.Event[R]{Kind: submission.Resolved, Record: rec, Complete: w.complete(rec)})
	}()
}

func (w *Widget[R]) complete(rec R) bool {
	if w.cfg.Complete == nil {
		return true
	}
	return w.cfg.Complete(rec)
}

// send submits the held record in the background.
func (w *Widget[R]) send() {
	epoch := w.epoch
	rec := w.state.Record

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		result, err := w.cfg.Submit(w.ctx, rec)

		w.mu.Lock()
		defer w.mu.Unlock()
		if w.disposed || epoch != w.epoch {
			return
		}
		if err != nil {
			log.GlobalWarnCtx(w.ctx, "submission failed", "error", err)
			w.dispatch(submission.Event[R]{Kind: submission.Failed, Err: err})
		} else {
			log.GlobalInfoCtx(w.ctx, "submission accepted", "dataset_id", result.DatasetID, "reward", result.Reward)
			w.dispatch(submission.Event[R]{Kind: submission.Accepted, Result: result})
		}

		if w.pendingRefresh {
			w.pendingRefresh = false
			w.dispatch(submission.Event[R]{Kind: submission.Refresh})
		}
	}()
}

func (w *Widget[R]) open(url string) {
	if w.cfg.Navigator == nil || url == "" {
		return
	}
	w.cfg.Navigator.Open(url)
}
