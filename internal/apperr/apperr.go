// Package apperr carries user-facing failure messages from services to the HTTP edge.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an Error.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindInternal     Kind = "internal"
)

// Error is a failure whose Message may be shown to the caller.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation is a 400 with msg.
func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

// NotFound is a 404 with msg.
func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

// Conflict is a 409 with msg.
func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

// Unauthorized is a 401 with msg.
func Unauthorized(msg string) *Error {
	return &Error{Kind: KindUnauthorized, Message: msg}
}

// Forbidden is a 403 with msg.
func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

// Internal is a 500 whose msg is still safe to show; cause is only logged.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: cause}
}

// Wrap attaches cause to a copy of e so the original sentinel stays unchanged.
func (e *Error) Wrap(cause error) *Error {
	out := *e
	out.Err = cause
	return &out
}

// Is matches another *Error with the same kind and message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == e.Message
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HTTPStatus maps err to a response status and a safe message. Errors that are
// not *Error become a generic 500.
func HTTPStatus(err error) (int, string) {
	appErr, ok := As(err)
	if !ok {
		return http.StatusInternalServerError, "Internal server error"
	}
	switch appErr.Kind {
	case KindValidation:
		return http.StatusBadRequest, appErr.Message
	case KindNotFound:
		return http.StatusNotFound, appErr.Message
	case KindConflict:
		return http.StatusConflict, appErr.Message
	case KindUnauthorized:
		return http.StatusUnauthorized, appErr.Message
	case KindForbidden:
		return http.StatusForbidden, appErr.Message
	default:
		return http.StatusInternalServerError, appErr.Message
	}
}
