// Package dErrors provides coded domain errors.
//
// Services return these instead of raw errors so that callers (handlers,
// other services) can branch on the code without string matching, and the
// HTTP edge can translate codes to status responses in one place.
package dErrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error.
type Code string

const (
	CodeValidation         Code = "validation_error"
	CodeInvalidInput       Code = "invalid_input"
	CodeBadRequest         Code = "bad_request"
	CodeUnauthorized       Code = "unauthorized"
	CodeForbidden          Code = "forbidden"
	CodeNotFound           Code = "not_found"
	CodeConflict           Code = "conflict"
	CodeInvariantViolation Code = "invariant_violation"
	CodeTimeout            Code = "timeout"
	CodeInternal           Code = "internal_error"

	// Workflow-specific codes. Kept alongside the generic set so the
	// HTTP edge translates every domain failure the same way.
	CodeTerminalState     Code = "terminal_state"
	CodeInvalidUpdate     Code = "invalid_update"
	CodeInvalidTransition Code = "invalid_transition"
	CodeNotesRequired     Code = "notes_required"
)

// DomainError is an error with a classification code and a safe,
// user-facing message. Wrapped causes stay internal.
type DomainError struct {
	Code    Code
	Message string
	cause   error
	meta    map[string]string
}

func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *DomainError) Unwrap() error { return e.cause }

// Meta returns the metadata value for key, if set via WithMeta.
func (e *DomainError) Meta(key string) (string, bool) {
	v, ok := e.meta[key]
	return v, ok
}

// New creates a domain error with a code and user-facing message.
func New(code Code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap annotates err with a code and message. Returns nil if err is nil.
func Wrap(err error, code Code, message string) *DomainError {
	if err == nil {
		return nil
	}
	return &DomainError{Code: code, Message: message, cause: err}
}

// WithMeta attaches a key/value detail to the error, for edges that
// render structured fields (e.g. the allowed transition set).
func (e *DomainError) WithMeta(key, value string) *DomainError {
	if e.meta == nil {
		e.meta = make(map[string]string, 1)
	}
	e.meta[key] = value
	return e
}

// HasCode reports whether err is (or wraps) a DomainError with the code.
func HasCode(err error, code Code) bool {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// Is allows errors.Is comparisons against a template DomainError by code.
func (e *DomainError) Is(target error) bool {
	var de *DomainError
	if errors.As(target, &de) {
		return e.Code == de.Code
	}
	return false
}

// ToHTTPStatus maps a domain error code to an HTTP status.
// Unknown errors map to 500.
func ToHTTPStatus(err error) int {
	var de *DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	switch de.Code {
	case CodeValidation, CodeInvalidInput, CodeInvalidTransition, CodeNotesRequired:
		return http.StatusUnprocessableEntity
	case CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict, CodeInvariantViolation, CodeTerminalState, CodeInvalidUpdate:
		return http.StatusConflict
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// GetCode returns the code of err, or CodeInternal for non-domain errors.
func GetCode(err error) Code {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
