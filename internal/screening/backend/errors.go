package backend

import (
	"errors"
	"fmt"
)

// ErrorCategory normalizes backend failures into a small taxonomy so the
// orchestrator can decide on retry and fallback without inspecting transport
// details.
type ErrorCategory string

const (
	// ErrorTimeout indicates the backend exceeded the per-call deadline.
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorTransport indicates a network-level failure or non-2xx reply.
	ErrorTransport ErrorCategory = "transport"

	// ErrorRateLimited indicates the backend rejected the call (HTTP 429).
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorBadData indicates the response body could not be decoded into
	// candidates. Treated as zero candidates for the call, never fatal.
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorInternal indicates an unexpected adapter failure.
	ErrorInternal ErrorCategory = "internal"
)

// CallError wraps backend failures with normalized categorization.
type CallError struct {
	Category   ErrorCategory
	Operation  string // "match" or "search"
	Message    string
	Underlying error
	Retryable  bool
}

func (e *CallError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("backend %s [%s]: %s: %v", e.Operation, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("backend %s [%s]: %s", e.Operation, e.Category, e.Message)
}

func (e *CallError) Unwrap() error { return e.Underlying }

// NewCallError creates a categorized backend error. Timeouts, transport
// failures, and rate limiting are worth one retry; decode failures are not.
func NewCallError(category ErrorCategory, operation, message string, underlying error) *CallError {
	retryable := category == ErrorTimeout ||
		category == ErrorTransport ||
		category == ErrorRateLimited

	return &CallError{
		Category:   category,
		Operation:  operation,
		Message:    message,
		Underlying: underlying,
		Retryable:  retryable,
	}
}

// IsRetryable reports whether an error is worth retrying.
func IsRetryable(err error) bool {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Retryable
	}
	return false
}

// CategoryOf extracts the category from an error chain.
func CategoryOf(err error) ErrorCategory {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return ErrorInternal
}
