// Package reconcile decides, on every observed page mutation, whether a
// widget's subject is unchanged, growing, replaced or gone.
package reconcile

import (
	"sync"

	"datahunter/internal/domain"
)

// Decision is what the owning widget must do after a page mutation.
type Decision int

const (
	// Keep leaves the widget alone.
	Keep Decision = iota
	// ReExtract re-runs extraction for the same subject.
	ReExtract
	// SubjectChanged discards all widget state and re-homes it to the page.
	SubjectChanged
	// Unmount tears the widget down.
	Unmount
)

func (d Decision) String() string {
	switch d {
	case ReExtract:
		return "re_extract"
	case SubjectChanged:
		return "subject_changed"
	case Unmount:
		return "unmount"
	default:
		return "keep"
	}
}

// Decide compares the page against the subject a widget holds.
//
// bound is the id the widget was mounted for ("" for an unbound widget),
// held describes the record it currently holds (zero when it holds none),
// last is the page state that triggered the previous decision and page is the
// state observed now.
func Decide(bound string, held, last, page domain.PageInfo) Decision {
	if bound != "" && page.ID != "" && page.ID != bound {
		return Unmount
	}
	if held.ID != "" && page.ID != "" && held.ID != page.ID {
		return SubjectChanged
	}
	if page.Count < last.Count {
		return SubjectChanged
	}
	if page == last {
		return Keep
	}
	if last.Busy && !page.Busy && page.Count > 0 {
		return ReExtract
	}
	if page.Count > 0 && page.Count != held.Count {
		return ReExtract
	}
	if page.Title != held.Title {
		return ReExtract
	}
	return Keep
}

// Reconciler remembers the page state behind its previous decision so a burst
// of notifications for one page state yields a single non-Keep decision.
type Reconciler struct {
	mu    sync.Mutex
	bound string
	last  domain.PageInfo
}

// New returns a reconciler for a widget bound to id ("" for unbound).
func New(bound string) *Reconciler {
	return &Reconciler{bound: bound}
}

// Observe decides for the current page state and records it.
func (r *Reconciler) Observe(held, page domain.PageInfo) Decision {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := Decide(r.bound, held, r.last, page)
	r.last = page
	return d
}

// Forget clears the remembered page state, typically after a reset.
func (r *Reconciler) Forget() {
	r.mu.Lock()
	r.last = domain.PageInfo{}
	r.mu.Unlock()
}
