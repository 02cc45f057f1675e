package widget

import (
	"context"

	"datahunter/internal/collector/submission"
	"datahunter/internal/domain"
)

// View is the render model of a widget.
type View struct {
	ID      string               `json:"id"`
	Kind    domain.TargetKind    `json:"kind"`
	Bound   string               `json:"bound,omitempty"`
	State   submission.Kind      `json:"state"`
	Reason  submission.Reason    `json:"reason,omitempty"`
	Message string               `json:"message,omitempty"`
	Record  any                  `json:"record,omitempty"`
	Result  *domain.SubmitResult `json:"result,omitempty"`
}

// Controller is a widget with its record type erased, as seen by the session
// and the control API.
type Controller interface {
	ID() string
	Kind() domain.TargetKind
	Bound() string
	View() View
	Held() domain.PageInfo
	Start()
	Refresh()
	Reset()
	Submit() error
	Retry()
	ViewRecords()
	AccountChanged(hasAccount bool)
	Settle(ctx context.Context) (View, error)
	Dispose()
}

var (
	_ Controller = (*Widget[domain.TweetRecord])(nil)
	_ Controller = (*Widget[domain.ChatRecord])(nil)
	_ Controller = (*Widget[domain.ReplyContext])(nil)
)

// View renders the current state.
func (w *Widget[R]) View() View {
	return w.view(w.State())
}

func (w *Widget[R]) view(s submission.State[R]) View {
	v := View{
		ID:      w.id,
		Kind:    w.cfg.Kind,
		Bound:   w.cfg.Bound,
		State:   s.Kind,
		Reason:  s.Reason,
		Message: s.Message,
	}
	if s.HasRecord {
		v.Record = s.Record
	}
	if s.Kind == submission.Success {
		result := s.Result
		v.Result = &result
	}
	return v
}

// Settle waits until the widget leaves Collecting and Submitting.
func (w *Widget[R]) Settle(ctx context.Context) (View, error) {
	s, err := w.Await(ctx, func(s submission.State[R]) bool {
		switch s.Kind {
		case submission.Collecting, submission.Submitting:
			return false
		case submission.Idle:
			w.mu.Lock()
			running := w.stopAttempt != nil
			w.mu.Unlock()
			return !running
		}
		return true
	})
	return w.view(s), err
}
