// Package domainerrors provides coded errors that travel from services to the
// transport layer. Stores and infrastructure return sentinel errors
// (pkg/platform/sentinel); services wrap them with a code here so handlers can
// translate to HTTP without inspecting implementation details.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies an error for transport translation and metrics.
type Code string

const (
	// CodeValidation marks input that failed semantic validation
	// (e.g. a query name that is empty after normalization).
	CodeValidation Code = "validation_error"

	// CodeInvalidInput marks input that failed structural parsing
	// (malformed IDs, unknown enum values).
	CodeInvalidInput Code = "invalid_input"

	// CodeBadRequest marks a request that is malformed as a whole
	// (e.g. a batch submission with zero items).
	CodeBadRequest Code = "bad_request"

	// CodeNotFound marks a missing resource (unknown batch handle).
	CodeNotFound Code = "not_found"

	// CodeConflict marks an operation invalid for the resource's state
	// (e.g. reading results from a still-running batch).
	CodeConflict Code = "conflict"

	// CodeUnavailable marks a dependency outage surfaced to the caller.
	CodeUnavailable Code = "unavailable"

	// CodeInternal marks unexpected failures. Descriptions are not
	// exposed over HTTP for this code.
	CodeInternal Code = "internal_error"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a coded error with a message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying error.
// Wrapping nil returns nil so call sites can wrap unconditionally.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// CodeOf extracts the code from an error chain. Unknown errors are internal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// HasCode reports whether the error chain carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// MessageOf returns the message of a coded error, or "" for unknown errors.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return ""
}

// HTTPStatus maps a code to an HTTP status for the transport layer.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidation, CodeInvalidInput, CodeBadRequest:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
