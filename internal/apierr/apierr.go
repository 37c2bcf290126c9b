package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error carries the HTTP status a failure should surface as, plus the
// client-facing message. Err holds the underlying cause for server logs.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" && e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, message string, err error) *Error {
	return &Error{Status: status, Message: message, Err: err}
}

func Unauthorized(message string) *Error {
	return New(http.StatusUnauthorized, message, nil)
}

func Forbidden(message string) *Error {
	return New(http.StatusForbidden, message, nil)
}

func NotFound(message string) *Error {
	return New(http.StatusNotFound, message, nil)
}

func Validation(message string) *Error {
	return New(http.StatusBadRequest, message, nil)
}

func Conflict(message string) *Error {
	return New(http.StatusConflict, message, nil)
}

// Upstream wraps a provider or storage failure. The message shown to clients
// is always generic.
func Upstream(err error) *Error {
	return New(http.StatusInternalServerError, "", err)
}

// As extracts an *Error from err's chain.
func As(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
