// Package apperr defines the typed error taxonomy shared by every service.
// The request pipeline is the only place these are mapped to HTTP responses;
// services raise them and never touch status codes directly.
package apperr

import (
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Kind classifies an error for response mapping.
type Kind int

const (
	KindServer Kind = iota
	KindUser
	KindNotFound
	KindPermissionDenied
	KindAccessDenied
	KindNotAuthorized
	KindUnprocessable
	KindRateLimit
)

// Default user-facing messages per kind.
const (
	msgServer           = "Something went wrong. Please try again later."
	msgUser             = "Bad request"
	msgNotFound         = "Resource not found"
	msgPermissionDenied = "You do not have permission to perform this action"
	msgAccessDenied     = "Access denied"
	msgNotAuthorized    = "Authentication credentials were not provided or are invalid"
	msgUnprocessable    = "Request could not be processed"
	msgRateLimit        = "Too many requests. Please try again later."
)

// Error is a classified application error. Fields carries optional
// field-level validation detail for UserError responses.
type Error struct {
	Kind    Kind
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return msgServer
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, message, fallback string) *Error {
	if message == "" {
		message = fallback
	}
	return &Error{Kind: kind, Message: message}
}

// User signals a caller-correctable input or business-rule violation (400).
func User(message string) *Error { return newError(KindUser, message, msgUser) }

// Validation is a UserError carrying field-level detail.
func Validation(fields map[string]string) *Error {
	e := newError(KindUser, "Validation failed", msgUser)
	e.Fields = fields
	return e
}

// NotFound signals a missing entity (404).
func NotFound(message string) *Error { return newError(KindNotFound, message, msgNotFound) }

// PermissionDenied signals a missing permission or role-hierarchy right (403).
func PermissionDenied(message string) *Error {
	return newError(KindPermissionDenied, message, msgPermissionDenied)
}

// AccessDenied signals an account-state denial such as a deactivated account
// or too many login attempts (403).
func AccessDenied(message string) *Error { return newError(KindAccessDenied, message, msgAccessDenied) }

// NotAuthorized signals a missing or invalid credential (401).
func NotAuthorized(message string) *Error {
	return newError(KindNotAuthorized, message, msgNotAuthorized)
}

// Unprocessable signals a structurally valid but semantically incomplete
// request (422).
func Unprocessable(message string) *Error {
	return newError(KindUnprocessable, message, msgUnprocessable)
}

// RateLimited signals throttling (429).
func RateLimited(message string) *Error { return newError(KindRateLimit, message, msgRateLimit) }

// Server wraps an unexpected failure. The cause is logged with a position tag
// and never leaks to the caller.
func Server(err error, position string) *Error {
	if err != nil {
		logrus.WithField("position", position).Error(err)
	}
	return &Error{Kind: KindServer, Message: msgServer, Err: err}
}

// StatusCode maps an error to its HTTP status. Untyped errors are treated as
// internal failures.
func StatusCode(err error) int {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Kind {
	case KindUser:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindPermissionDenied, KindAccessDenied:
		return http.StatusForbidden
	case KindNotAuthorized:
		return http.StatusUnauthorized
	case KindUnprocessable:
		return http.StatusUnprocessableEntity
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message for an error, hiding internals for
// anything unclassified.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	return msgServer
}

// FieldErrors returns field-level detail when present.
func FieldErrors(err error) map[string]string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return false
	}
	return appErr.Kind == kind
}
