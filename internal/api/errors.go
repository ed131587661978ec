package api

import (
	"errors"
	"fmt"
)

// Kind classifies a failed API exchange. Callers branch on the kind, not on
// status codes or error strings — the backend's HTTP details stay inside
// this package.
type Kind string

const (
	// KindUnauthenticated means the backend does not recognize a session.
	// For current-user lookups this is a normal outcome, not a failure.
	KindUnauthenticated Kind = "unauthenticated"

	// KindInputInvalid means the request was rejected as malformed or
	// failing validation (bad email, missing field).
	KindInputInvalid Kind = "input_invalid"

	// KindAuthFailed means the credentials themselves were rejected
	// (wrong or expired sign-in code).
	KindAuthFailed Kind = "auth_failed"

	// KindServer means the backend failed internally (5xx).
	KindServer Kind = "server"

	// KindNetwork means the request never completed: connection failure,
	// timeout, or context cancellation.
	KindNetwork Kind = "network"

	// KindDecode means the response arrived but could not be interpreted:
	// invalid JSON, an unsuccessful envelope, or a payload that does not
	// match the expected shape.
	KindDecode Kind = "decode"
)

// Error is the typed failure returned by every Client call. It preserves the
// classification assigned at the transport boundary so callers can branch
// without string matching.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, 0 when the request never completed
	Message string // backend-provided message when available
	err     error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s: %s", e.Kind, e.Message)
	}
	if e.err != nil {
		return fmt.Sprintf("api: %s: %v", e.Kind, e.err)
	}
	return fmt.Sprintf("api: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.err }

// newError wraps cause with a classification.
func newError(kind Kind, status int, message string, cause error) *Error {
	return &Error{Kind: kind, Status: status, Message: message, err: cause}
}

// KindOf returns the classification carried by err, or "" if err is not an
// API error (including nil).
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return ""
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
