// Package domainerrors defines the closed error taxonomy for the service.
//
// Every component returns a coded error rather than throwing ad hoc ones across
// package boundaries. Handlers translate codes into HTTP statuses exactly once,
// at the transport edge, so the mapping lives in one place.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure. The set is closed: callers switch on
// codes, so adding one means auditing every switch.
type Code string

const (
	// Generic codes shared by all features.
	CodeBadRequest Code = "bad_request"
	CodeNotFound   Code = "not_found"
	CodeConflict   Code = "conflict"
	CodeInternal   Code = "internal_error"

	// Identity-provider call outcomes. BreakerOpen means the shared downstream
	// endpoint is unhealthy and the caller should advise retry-later;
	// FetchFailed is a single failed call. Monitoring needs to tell the two
	// apart, so they are distinct codes rather than one with metadata.
	CodeBreakerOpen Code = "breaker_open"
	CodeFetchFailed Code = "fetch_failed"

	// Relay-state and session codes. A bad relay state is always a client
	// problem; a missing or consumed access-token cookie is an authentication
	// failure, never a server error.
	CodeBadRelayState      Code = "bad_relay_state"
	CodeMissingAccessToken Code = "missing_access_token"
	CodeCookieState        Code = "cookie_state"

	// Verification codes. MissingHash is surfaced as 410 so clients know to
	// restart the identity flow instead of retrying the same submission.
	CodeHashingFailed Code = "hashing_failed"
	CodeMissingHash   Code = "missing_hash"
	CodeHashMismatch  Code = "hash_mismatch"

	// Response-to-field matching or logic evaluation failed.
	CodeProcessingFailed Code = "processing_failed"

	// The submitter is not on the form's encrypted whitelist.
	CodeNotWhitelisted Code = "not_whitelisted"
)

// Error carries a code plus an operator-facing message. The message must never
// contain PII or raw hash values; it is written to logs and, for client-class
// codes, returned in the error envelope.
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

// New creates a coded error with no underlying cause.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error, preserving the
// chain for errors.Is/As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, cause: err}
}

// CodeOf extracts the code from an error chain, defaulting to CodeInternal for
// anything uncoded so unknown failures never leak detail.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// Is reports whether the error chain carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// ToHTTPStatus maps a code to its HTTP status. Verification-specific statuses
// follow the submission protocol: 410 tells the client the prefill hash is
// gone, 401 rejects tampered or unauthenticated submissions, 503 marks
// transient hashing or downstream capacity problems.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeBadRequest, CodeBadRelayState:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeMissingAccessToken, CodeCookieState, CodeHashMismatch:
		return http.StatusUnauthorized
	case CodeNotWhitelisted:
		return http.StatusForbidden
	case CodeMissingHash:
		return http.StatusGone
	case CodeProcessingFailed:
		return http.StatusUnprocessableEntity
	case CodeFetchFailed:
		return http.StatusBadGateway
	case CodeBreakerOpen, CodeHashingFailed:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
