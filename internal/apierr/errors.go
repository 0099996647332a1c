// Package apierr provides the API error taxonomy. Every failure a route can
// surface maps to exactly one of these, which the response layer translates
// to an HTTP status and a single-line error message.
package apierr

import (
	"errors"
	"net/http"
)

// Error is an API-visible error with an HTTP status.
type Error struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string { return e.Message }

// Validation reports malformed or missing input (400).
func Validation(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "validation_error", Message: msg}
}

// Auth reports a missing/invalid session or bad credentials (401).
func Auth(msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: "auth_error", Message: msg}
}

// Forbidden reports an authenticated caller acting on a resource it does
// not own (403).
func Forbidden(msg string) *Error {
	return &Error{Status: http.StatusForbidden, Code: "forbidden", Message: msg}
}

// NotFound reports an absent entity (404).
func NotFound(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Code: "not_found", Message: msg}
}

// Conflict reports a duplicate unique key (409).
func Conflict(msg string) *Error {
	return &Error{Status: http.StatusConflict, Code: "conflict", Message: msg}
}

// Standard errors without per-call messages.
var (
	ErrRateLimited = &Error{Status: http.StatusTooManyRequests, Code: "rate_limited", Message: "Too many requests, please try again later"}
	ErrInternal    = &Error{Status: http.StatusInternalServerError, Code: "internal_error", Message: "Internal server error"}
)

// From extracts the API error from err, or returns ErrInternal for
// unexpected failures so their detail is withheld from clients.
func From(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternal
}
