package submission

import (
	"errors"
	"fmt"
	"testing"

	"datahunter/internal/domain"
)

type rec = domain.TweetRecord

var alice = rec{ID: "123", ScreenName: "alice", Avatar: "a.jpg", Content: "hello"}

func same(a, b State[rec]) bool {
	return a.Kind == b.Kind && a.Reason == b.Reason && a.Message == b.Message &&
		a.HasRecord == b.HasRecord && a.Record.ID == b.Record.ID
}

func ready() State[rec] {
	return State[rec]{Kind: Ready, Record: alice, HasRecord: true}
}

func TestTransition_ExtractionOutcomes(t *testing.T) {
	tests := []struct {
		name       string
		from       State[rec]
		ev         Event[rec]
		wantKind   Kind
		wantReason Reason
	}{
		{"complete record", State[rec]{Kind: Collecting}, Event[rec]{Kind: Resolved, Record: alice, Complete: true}, Ready, ""},
		{"resolve while idle", State[rec]{Kind: Idle}, Event[rec]{Kind: Resolved, Record: alice, Complete: true}, Ready, ""},
		{"incomplete record", State[rec]{Kind: Collecting}, Event[rec]{Kind: Resolved, Record: rec{ScreenName: "alice"}}, Error, ReasonNotFound},
		{"missing content", State[rec]{Kind: Collecting}, Event[rec]{Kind: Rejected, Err: fmt.Errorf("after 20 attempts: %w", domain.ErrMissingContent)}, Error, ReasonNotFound},
		{"timeout", State[rec]{Kind: Collecting}, Event[rec]{Kind: Rejected, Err: domain.ErrTimeout}, Error, ReasonMessage},
		{"auth failure", State[rec]{Kind: Collecting}, Event[rec]{Kind: Rejected, Err: &domain.AuthError{Code: 401}}, Error, ReasonReconnect},
		{"limited", State[rec]{Kind: Collecting}, Event[rec]{Kind: Rejected, Err: &domain.LimitedError{Msg: "daily reply quota reached"}}, Error, ReasonLimited},
		{"subject changed", State[rec]{Kind: Collecting}, Event[rec]{Kind: Rejected, Err: fmt.Errorf("record 456: %w", domain.ErrSubjectChanged)}, Error, ReasonNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, eff := Transition(tt.from, tt.ev)

			if got.Kind != tt.wantKind || got.Reason != tt.wantReason {
				t.Errorf("state = %s/%s, want %s/%s", got.Kind, got.Reason, tt.wantKind, tt.wantReason)
			}
			if eff != None {
				t.Errorf("effect = %d, want None", eff)
			}
		})
	}
}

func TestTransition_ErrorMessages(t *testing.T) {
	timeout, _ := Transition(State[rec]{Kind: Collecting}, Event[rec]{Kind: Rejected, Err: domain.ErrTimeout})
	limited, _ := Transition(State[rec]{Kind: Collecting}, Event[rec]{Kind: Rejected, Err: &domain.LimitedError{Msg: "daily reply quota reached"}})

	if timeout.Message != "Timeout" {
		t.Errorf("timeout message = %q", timeout.Message)
	}
	if limited.Message != "daily reply quo" {
		t.Errorf("limited message = %q", limited.Message)
	}

	reconnect, _ := Transition(State[rec]{Kind: Collecting}, Event[rec]{Kind: Rejected, Err: &domain.AuthError{Code: 401}})
	if reconnect.Message != string(domain.KindReconnectRequired) {
		t.Errorf("reconnect message = %q, want %q", reconnect.Message, domain.KindReconnectRequired)
	}
	changed, _ := Transition(State[rec]{Kind: Collecting}, Event[rec]{Kind: Rejected, Err: domain.ErrSubjectChanged})
	if changed.Message != string(domain.KindSubjectChanged) {
		t.Errorf("subject changed message = %q", changed.Message)
	}
}

func TestTransition_SubmitFlow(t *testing.T) {
	// Arrange
	s := ready()

	// Act
	s, eff := Transition(s, Event[rec]{Kind: Submit})
	if s.Kind != Submitting || eff != Send {
		t.Fatalf("submit: state %s effect %d", s.Kind, eff)
	}
	s, _ = Transition(s, Event[rec]{Kind: Accepted, Result: domain.SubmitResult{DatasetID: "ds-1"}})

	// Assert
	if s.Kind != Success || s.Result.DatasetID != "ds-1" || s.Record.ID != "123" {
		t.Errorf("state = %+v", s)
	}
	again, eff := Transition(s, Event[rec]{Kind: ViewRecords})
	if again.Kind != Success || eff != OpenRewards {
		t.Errorf("view records: state %s effect %d", again.Kind, eff)
	}
}

func TestTransition_AuthFailureNeedsReauthentication(t *testing.T) {
	// Arrange
	s := State[rec]{Kind: Submitting, Record: alice, HasRecord: true}

	// Act
	s, _ = Transition(s, Event[rec]{Kind: Failed, Err: fmt.Errorf("submit tweet: %w", &domain.AuthError{Code: 401})})
	retried, retryEffect := Transition(s, Event[rec]{Kind: Retry})
	refreshed, refreshEffect := Transition(s, Event[rec]{Kind: Refresh})
	reauthed, reauthEffect := Transition(s, Event[rec]{Kind: Reauthenticated})

	// Assert
	if s.Kind != Error || s.Reason != ReasonReconnect {
		t.Fatalf("state = %s/%s, want error/reconnect_required", s.Kind, s.Reason)
	}
	if !same(retried, s) || retryEffect != None {
		t.Errorf("retry changed state: %+v effect %d", retried, retryEffect)
	}
	if refreshed.Kind != Error || refreshEffect != None {
		t.Errorf("refresh changed state: %+v effect %d", refreshed, refreshEffect)
	}
	if reauthed.Kind != Idle || reauthEffect != Extract {
		t.Errorf("reauthenticated: state %s effect %d", reauthed.Kind, reauthEffect)
	}
}

func TestTransition_Retry(t *testing.T) {
	t.Run("not found re-extracts", func(t *testing.T) {
		s := State[rec]{Kind: Error, Reason: ReasonNotFound}

		got, eff := Transition(s, Event[rec]{Kind: Retry})

		if got.Kind != Idle || eff != Extract {
			t.Errorf("state %s effect %d", got.Kind, eff)
		}
	})

	t.Run("submission failure resubmits the held record", func(t *testing.T) {
		s, _ := Transition(State[rec]{Kind: Submitting, Record: alice, HasRecord: true},
			Event[rec]{Kind: Failed, Err: &domain.NetworkError{Err: errors.New("connection refused")}})

		got, eff := Transition(s, Event[rec]{Kind: Retry})

		if got.Kind != Submitting || eff != Send || got.Record.ID != "123" {
			t.Errorf("state %+v effect %d", got, eff)
		}
	})

	t.Run("extraction failure without a record re-extracts", func(t *testing.T) {
		s := State[rec]{Kind: Error, Reason: ReasonMessage, Message: "Timeout"}

		got, eff := Transition(s, Event[rec]{Kind: Retry})

		if got.Kind != Idle || eff != Extract {
			t.Errorf("state %s effect %d", got.Kind, eff)
		}
	})

	t.Run("limited stays", func(t *testing.T) {
		s := State[rec]{Kind: Error, Reason: ReasonLimited, Message: "quota"}

		got, eff := Transition(s, Event[rec]{Kind: Retry})

		if !same(got, s) || eff != None {
			t.Errorf("state %+v effect %d", got, eff)
		}
	})
}

func TestTransition_RefreshDuringSubmissionIsDeferred(t *testing.T) {
	s := State[rec]{Kind: Submitting, Record: alice, HasRecord: true}

	got, eff := Transition(s, Event[rec]{Kind: Refresh})

	if !same(got, s) || eff != Defer {
		t.Errorf("state %+v effect %d", got, eff)
	}
}

func TestTransition_ResetFromAnyState(t *testing.T) {
	states := []State[rec]{
		{Kind: Idle},
		{Kind: Collecting},
		ready(),
		{Kind: Submitting, Record: alice, HasRecord: true},
		{Kind: Success, Record: alice, HasRecord: true},
		{Kind: Error, Reason: ReasonReconnect},
	}

	for _, s := range states {
		got, eff := Transition(s, Event[rec]{Kind: Reset})

		if got.Kind != Idle || got.HasRecord || eff != None {
			t.Errorf("reset from %s = %+v effect %d", s.Kind, got, eff)
		}
	}
}

func TestTransition_UnknownPairsAreNoops(t *testing.T) {
	tests := []struct {
		from State[rec]
		ev   EventKind
	}{
		{State[rec]{Kind: Idle}, Submit},
		{State[rec]{Kind: Idle}, ViewRecords},
		{ready(), Accepted},
		{State[rec]{Kind: Submitting, Record: alice, HasRecord: true}, Submit},
		{State[rec]{Kind: Success, Record: alice, HasRecord: true}, Retry},
		{State[rec]{Kind: Error, Reason: ReasonNotFound}, Reauthenticated},
	}

	for _, tt := range tests {
		got, eff := Transition(tt.from, Event[rec]{Kind: tt.ev})

		if got.Kind != tt.from.Kind || eff != None {
			t.Errorf("%s + %d = %s effect %d", tt.from.Kind, tt.ev, got.Kind, eff)
		}
	}
}
