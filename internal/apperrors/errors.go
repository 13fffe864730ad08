// Package apperrors defines the error taxonomy for the reconciliation
// engine. Reconciliation is financial data: errors are typed so callers
// can tell a bad request from a state conflict from a flaky upstream,
// and nothing is ever swallowed silently.
package apperrors

import (
	"fmt"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies an error for retry and HTTP-mapping decisions.
type Kind string

const (
	// KindValidation rejects bad input synchronously; never retried.
	KindValidation Kind = "validation"
	// KindNotFound covers unknown batch/item/candidate ids.
	KindNotFound Kind = "not_found"
	// KindConflict covers state-machine violations and double-applies.
	// The caller must re-fetch current state before retrying.
	KindConflict Kind = "conflict"
	// KindUpstream covers candidate-repository and bank-feed failures.
	KindUpstream Kind = "upstream"
	// KindInternal covers invariant violations, e.g. an applied item
	// with no candidate. Fatal to the operation, always surfaced.
	KindInternal Kind = "internal"
)

// Error is the application error type. Cause, when set, carries the
// wrapped underlying error with its stack.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New builds an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause (with stack) to an error of the given kind.
func Wrap(cause error, kind Kind, format string, args ...interface{}) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   errors.WithStack(cause),
	}
}

func Validationf(format string, args ...interface{}) *Error {
	return New(KindValidation, format, args...)
}

func NotFoundf(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

func Conflictf(format string, args ...interface{}) *Error {
	return New(KindConflict, format, args...)
}

func Upstreamf(cause error, format string, args ...interface{}) *Error {
	return Wrap(cause, KindUpstream, format, args...)
}

func Internalf(format string, args ...interface{}) *Error {
	return New(KindInternal, format, args...)
}

// KindOf extracts the kind from an error chain; unknown errors are
// treated as internal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err is an application error of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps an error to the status code handlers should return.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
