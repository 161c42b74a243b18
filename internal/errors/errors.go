// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages. The completion layer uses the kinds to decide whether a
// failure is retried, repaired, or surfaced to the caller as-is.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// BackendBusy indicates the backend kept rejecting work for capacity reasons
	// after every retry was spent.
	BackendBusy Kind = "backend_busy"
	// EmptyResponse indicates the completion call succeeded but produced no text.
	EmptyResponse Kind = "empty_response"
	// ParseFailure indicates no structured payload could be recovered from the text.
	ParseFailure Kind = "parse_failure"
	// TokenLimit indicates the prompt or response exceeded the model's token budget.
	TokenLimit Kind = "token_limit"
	// SessionFailed indicates a backend session could not be opened.
	SessionFailed Kind = "session_failed"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

// Is reports whether target is an *E of the same kind, so errors.Is(err, New(kind, ""))
// matches any error of that kind regardless of message.
func (e *E) Is(target error) bool {
	t, ok := target.(*E)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the first *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return stderrors.Is(err, &E{Kind: kind})
}
