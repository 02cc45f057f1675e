// Package submission holds the state machine a widget renders: it moves a
// record from extraction through submission to a result or an error.
package submission

import (
	"errors"

	"datahunter/internal/domain"
)

// Kind is the coarse state of a widget.
type Kind string

const (
	Idle       Kind = "idle"
	Collecting Kind = "collecting"
	Ready      Kind = "ready"
	Submitting Kind = "submitting"
	Success    Kind = "success"
	Error      Kind = "error"
)

// Reason qualifies an Error state.
type Reason string

const (
	// ReasonNotFound means extraction found no usable subject. Retry re-extracts.
	ReasonNotFound Reason = "not_found"
	// ReasonReconnect means the data hub rejected the credentials. Only a
	// re-authentication clears it.
	ReasonReconnect Reason = "reconnect_required"
	// ReasonLimited means the data hub refused the subject. It stays until the
	// page changes.
	ReasonLimited Reason = "limited"
	// ReasonMessage is every other failure, carried as a short label.
	ReasonMessage Reason = "message"
)

// State is the current value of the machine. Record is meaningful when
// HasRecord is set.
type State[R any] struct {
	Kind      Kind
	Record    R
	HasRecord bool
	Result    domain.SubmitResult
	Reason    Reason
	Message   string
}

// Sticky reports an error that neither retry nor re-extraction clears.
func (s State[R]) Sticky() bool {
	return s.Kind == Error && (s.Reason == ReasonReconnect || s.Reason == ReasonLimited)
}

// EventKind names what happened to the widget.
type EventKind int

const (
	// Refresh asks for a new extraction of the current subject.
	Refresh EventKind = iota
	// Started marks an extraction as launched.
	Started
	Resolved
	Rejected
	Submit
	Accepted
	Failed
	Retry
	ViewRecords
	Reauthenticated
	Reset
)

// Event is an input to Transition. Record and Complete go with Resolved,
// Result with Accepted, Err with Rejected and Failed.
type Event[R any] struct {
	Kind     EventKind
	Record   R
	Complete bool
	Result   domain.SubmitResult
	Err      error
}

// Effect is the side effect the caller must perform after a transition.
type Effect int

const (
	None Effect = iota
	// Extract launches a new extraction attempt.
	Extract
	// Send submits the held record.
	Send
	// OpenRewards opens the rewards page.
	OpenRewards
	// Defer postpones a refresh until the running submission settles.
	Defer
)

// Transition is total: a pair it does not name leaves the state unchanged
// with no effect.
func Transition[R any](s State[R], ev Event[R]) (State[R], Effect) {
	if ev.Kind == Reset {
		return State[R]{Kind: Idle}, None
	}

	switch s.Kind {
	case Idle, Collecting:
		switch ev.Kind {
		case Refresh:
			return s, Extract
		case Started:
			s.Kind = Collecting
			return s, None
		case Resolved:
			if !ev.Complete {
				return errorState[R](ReasonNotFound, domain.ShortenError(domain.ErrNotFound)), None
			}
			return State[R]{Kind: Ready, Record: ev.Record, HasRecord: true}, None
		case Rejected:
			return rejected[R](ev.Err), None
		}

	case Ready:
		switch ev.Kind {
		case Refresh:
			return s, Extract
		case Started:
			s.Kind = Collecting
			return s, None
		case Submit:
			s.Kind = Submitting
			return s, Send
		}

	case Submitting:
		switch ev.Kind {
		case Refresh:
			return s, Defer
		case Accepted:
			s.Kind = Success
			s.Result = ev.Result
			return s, None
		case Failed:
			next := rejected[R](ev.Err)
			next.Record, next.HasRecord = s.Record, s.HasRecord
			return next, None
		}

	case Success:
		switch ev.Kind {
		case ViewRecords:
			return s, OpenRewards
		case Refresh:
			return s, Extract
		case Started:
			return State[R]{Kind: Collecting, Record: s.Record, HasRecord: s.HasRecord}, None
		}

	case Error:
		switch ev.Kind {
		case Reauthenticated:
			if s.Reason == ReasonReconnect {
				return State[R]{Kind: Idle}, Extract
			}
		case Retry:
			switch {
			case s.Sticky():
				return s, None
			case s.Reason == ReasonNotFound || !s.HasRecord:
				return State[R]{Kind: Idle}, Extract
			default:
				s.Kind, s.Reason, s.Message = Submitting, "", ""
				return s, Send
			}
		case Refresh:
			if !s.Sticky() {
				return s, Extract
			}
		case Started:
			if !s.Sticky() {
				return State[R]{Kind: Collecting}, None
			}
		}
	}

	return s, None
}

func errorState[R any](reason Reason, msg string) State[R] {
	return State[R]{Kind: Error, Reason: reason, Message: msg}
}

// rejected maps a failure to an error state.
func rejected[R any](err error) State[R] {
	var limited *domain.LimitedError
	switch {
	case domain.IsAuthFailure(err):
		return errorState[R](ReasonReconnect, string(domain.KindReconnectRequired))
	case errors.As(err, &limited):
		return errorState[R](ReasonLimited, domain.Truncate(limited.Msg, 15))
	case domain.Classify(err) == domain.KindMissingContent:
		return errorState[R](ReasonNotFound, domain.ShortenError(err))
	case errors.Is(err, domain.ErrSubjectChanged):
		return errorState[R](ReasonNotFound, string(domain.KindSubjectChanged))
	default:
		return errorState[R](ReasonMessage, domain.ShortenError(err))
	}
}
