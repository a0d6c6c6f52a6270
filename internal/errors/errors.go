// Package errors defines the structured error taxonomy returned by the
// submission pipeline. Every error carries a machine-checkable reason code
// that maps onto the JSON envelope; raw causes are wrapped, never leaked
// as stack traces.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a failure class on the wire.
type Code string

const (
	CodeResolutionFailed     Code = "resolution_failed"
	CodeAuthRequired         Code = "auth_required"
	CodeFetchFailed          Code = "fetch_failed"
	CodeExtractionIncomplete Code = "extraction_incomplete"
	CodeValidationFailed     Code = "validation_failed"
	CodeNotRegistered        Code = "not_registered"
	CodeDuplicateActivity    Code = "duplicate_activity"
	CodeQuotaExceeded        Code = "quota_exceeded"
	CodeLedgerUnavailable    Code = "ledger_unavailable"
	CodePersistenceFailed    Code = "persistence_failed"
	CodeInternal             Code = "internal_error"
)

// Error is the structured error type used across the pipeline.
type Error struct {
	Code    Code
	Message string
	// UpstreamStatus holds the remote HTTP status for fetch failures.
	UpstreamStatus int
	// Diagnostics carries the extraction diagnostics payload when the
	// failure class warrants surfacing it to the caller.
	Diagnostics interface{}
	// Issues lists the individual missing/invalid fields, in the order
	// they were checked.
	Issues []string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches errors by code so callers can use errors.Is with sentinels
// built by New.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// New creates a structured error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf creates a structured error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a cause to a structured error.
func Wrap(cause error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WithDiagnostics attaches an extraction diagnostics payload.
func (e *Error) WithDiagnostics(d interface{}) *Error {
	e.Diagnostics = d
	return e
}

// WithIssues attaches the ordered issue list.
func (e *Error) WithIssues(issues ...string) *Error {
	e.Issues = append(e.Issues, issues...)
	return e
}

// WithUpstreamStatus records the remote status code for fetch failures.
func (e *Error) WithUpstreamStatus(status int) *Error {
	e.UpstreamStatus = status
	return e
}

// CodeOf extracts the reason code from any error, defaulting to
// internal_error for unstructured failures.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// AsError extracts the structured error, or wraps err as internal_error.
func AsError(err error) *Error {
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, CodeInternal, "unexpected error")
}

// HTTPStatus maps a reason code to the response status used by the API.
func HTTPStatus(code Code) int {
	switch code {
	case CodeValidationFailed, CodeResolutionFailed:
		return http.StatusBadRequest
	case CodeAuthRequired:
		return http.StatusUnauthorized
	case CodeNotRegistered:
		return http.StatusForbidden
	case CodeDuplicateActivity, CodeQuotaExceeded:
		return http.StatusConflict
	case CodeExtractionIncomplete:
		return http.StatusUnprocessableEntity
	case CodeFetchFailed:
		return http.StatusBadGateway
	case CodeLedgerUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the user-facing guidance for an error. Structured
// messages pass through; anything else degrades to a generic line.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		switch e.Code {
		case CodeResolutionFailed:
			return "The activity link could not be resolved. Submit a strava.com activity link or a strava.app.link short link."
		case CodeAuthRequired:
			return "The activity page requires a login. The session credentials look expired; refresh them and try again."
		case CodeExtractionIncomplete:
			return "Distance and time could not be read from the activity page. Make sure the activity is public and try again."
		default:
			return e.Message
		}
	}
	return "An unexpected error occurred. Please try again."
}
