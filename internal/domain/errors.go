package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingContent is returned when no relevant element was observed
	// during the whole attempt budget.
	ErrMissingContent = errors.New("this page does not contain text information")

	// ErrTimeout is returned when the subject appeared but never became
	// complete within the attempt budget.
	ErrTimeout = errors.New("extraction timeout")

	// ErrAbnormalEnvironment is returned when a required interactive element,
	// such as the reply box, is absent.
	ErrAbnormalEnvironment = errors.New("abnormal environment")

	// ErrNotFound is returned when the extracted record misses a field the
	// submission contract requires.
	ErrNotFound = errors.New("record not found")

	// ErrSubjectChanged is returned when an attempt resolved a record for
	// another subject than the one its widget is bound to.
	ErrSubjectChanged = errors.New("page subject changed")

	// ErrNoAccount is returned when an action needs a bound account.
	ErrNoAccount = errors.New("permission denied: no account connected")

	// ErrDisposed is returned by widgets after Dispose.
	ErrDisposed = errors.New("widget disposed")

	// ErrBusy is returned when a submission is already in flight.
	ErrBusy = errors.New("submission in progress")
)

// AuthError is returned when the data hub refuses the stored credential.
type AuthError struct {
	Code int
	Msg  string
}

func (e *AuthError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("permission denied (code %d)", e.Code)
	}
	return fmt.Sprintf("permission denied (code %d): %s", e.Code, e.Msg)
}

// ServerError is a non-200 application code returned by the data hub.
type ServerError struct {
	Code int
	Msg  string
}

func (e *ServerError) Error() string {
	return e.Msg
}

// NetworkError wraps a transport failure.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "failed to fetch: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// LimitedError is returned when the data hub refuses a reply for the tweet.
type LimitedError struct {
	Msg string
}

func (e *LimitedError) Error() string {
	return e.Msg
}

// Kind is the failure taxonomy used to pick the widget error state.
type Kind string

const (
	KindUnknown           Kind = ""
	KindMissingContent    Kind = "MissingContent"
	KindTimeout           Kind = "Timeout"
	KindEnv               Kind = "EnvError"
	KindAuthFailure       Kind = "AuthFailed"
	KindNetwork           Kind = "NetworkErr"
	KindServerRejected    Kind = "ServerRejected"
	KindNotFound          Kind = "NotFound"
	KindSyntax            Kind = "SyntaxErr"
	KindBadInput          Kind = "BadInput"
	KindLimited           Kind = "Limited"
	KindSubjectChanged    Kind = "SubjectChanged"
	// KindReconnectRequired labels the error state an auth failure leaves a
	// widget in.
	KindReconnectRequired Kind = "ReconnectRequired"
)

// labels is checked in order, the first contained key wins.
var labels = []struct {
	key  string
	kind Kind
}{
	{"abnormal environment", KindEnv},
	{"does not contain text information", KindMissingContent},
	{"unexpected token", KindSyntax},
	{"failed to fetch", KindNetwork},
	{"permission denied", KindAuthFailure},
	{"timeout", KindTimeout},
	{"invalid argument", KindBadInput},
	{"not found", KindNotFound},
}

// IsAuthFailure reports whether err carries an authentication failure.
func IsAuthFailure(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// Classify maps an error to its kind. Typed errors take precedence over the
// message table.
func Classify(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var (
		authErr    *AuthError
		netErr     *NetworkError
		serverErr  *ServerError
		limitedErr *LimitedError
	)
	switch {
	case errors.As(err, &authErr):
		return KindAuthFailure
	case errors.As(err, &limitedErr):
		return KindLimited
	case errors.As(err, &netErr):
		return KindNetwork
	case errors.As(err, &serverErr):
		return KindServerRejected
	case errors.Is(err, ErrMissingContent):
		return KindMissingContent
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrAbnormalEnvironment):
		return KindEnv
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrSubjectChanged):
		return KindSubjectChanged
	}

	return classifyMessage(err.Error())
}

func classifyMessage(msg string) Kind {
	lower := strings.ToLower(msg)
	for _, l := range labels {
		if strings.Contains(lower, l.key) {
			return l.kind
		}
	}
	return KindUnknown
}

// maxLabel is the rune budget of a fallback label.
const maxLabel = 15

// ShortenError returns a short label fit for a widget button. Known messages
// map to their kind, anything else is cut to the text before the first colon
// and capped.
func ShortenError(err error) string {
	if err == nil {
		return ""
	}
	return ShortenMessage(err.Error())
}

// ShortenMessage is ShortenError for a raw message.
func ShortenMessage(msg string) string {
	if kind := classifyMessage(msg); kind != KindUnknown {
		return string(kind)
	}
	head, _, _ := strings.Cut(msg, ":")
	return Truncate(head, maxLabel) + "..."
}

// Truncate caps s at n runes.
func Truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
