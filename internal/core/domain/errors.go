package domain

import (
	"errors"
	"fmt"
)

// ErrorKind is a stable machine-readable failure class. Handlers map kinds
// to HTTP statuses; usecases decide which kinds abort a run and which
// degrade to local estimates.
type ErrorKind string

const (
	KindInvalid     ErrorKind = "invalid_request"
	KindNotFound    ErrorKind = "not_found"
	KindUnreachable ErrorKind = "unreachable"
	KindUpstream    ErrorKind = "upstream_unavailable"
)

// Error carries a kind alongside a human-readable message and an optional
// wrapped cause.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a new domain error.
func E(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// WrapE wraps a cause with a kind and message.
func WrapE(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the kind from err, walking the wrap chain.
// Unclassified errors report KindUpstream's sibling default: empty string.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
