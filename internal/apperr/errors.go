package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is the uniform API error surfaced to clients. Message is the only
// field exposed in responses; internal causes stay in the wrapped chain.
type Error struct {
	Code    string
	Message string
	Status  int
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// WithCause attaches an internal cause without changing the client view.
func (e *Error) WithCause(err error) *Error {
	clone := *e
	clone.cause = err
	return &clone
}

func newError(code, message string, status int) *Error {
	return &Error{Code: code, Message: message, Status: status}
}

// BadRequest signals malformed caller input.
func BadRequest(message string) *Error {
	return newError("bad_request", message, http.StatusBadRequest)
}

// Unauthorized signals a missing, invalid, expired, or revoked credential.
func Unauthorized(message string) *Error {
	if message == "" {
		message = "Authentication required."
	}
	return newError("unauthorized", message, http.StatusUnauthorized)
}

// Forbidden signals an authenticated caller without permission, or a
// resource state that disallows the action.
func Forbidden(message string) *Error {
	if message == "" {
		message = "You are not allowed to perform this action."
	}
	return newError("forbidden", message, http.StatusForbidden)
}

// Conflict signals duplicate creation attempts.
func Conflict(message string) *Error {
	return newError("conflict", message, http.StatusConflict)
}

// Unprocessable signals a well-formed request the server cannot act on.
func Unprocessable(message string) *Error {
	return newError("unprocessable", message, http.StatusUnprocessableEntity)
}

// Upstream signals a remote provider call that failed or timed out.
func Upstream(message string) *Error {
	return newError("upstream_failure", message, http.StatusBadGateway)
}

// Internal signals an unexpected server-side failure.
func Internal(message string) *Error {
	if message == "" {
		message = "Something went wrong. Please try again later."
	}
	return newError("internal_error", message, http.StatusInternalServerError)
}

// From extracts an *Error from err, falling back to a generic Internal so
// handlers never leak raw error text.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("").WithCause(err)
}
