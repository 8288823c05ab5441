package common

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError is a failure the transport layer knows how to present: it carries
// an HTTP-style status code and a message that is safe to show to the caller.
// The wrapped Err is kept for errors.Is and for logging.
type AppError struct {
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func newAppError(status int, err error, format string, args ...any) *AppError {
	return &AppError{Status: status, Message: fmt.Sprintf(format, args...), Err: err}
}

// BadRequest reports missing or malformed input (400).
func BadRequest(format string, args ...any) *AppError {
	return newAppError(http.StatusBadRequest, ErrorValidation, format, args...)
}

// Unauthenticated reports bad credentials or a missing/invalid token (401).
func Unauthenticated(format string, args ...any) *AppError {
	return newAppError(http.StatusUnauthorized, ErrorUnauthorized, format, args...)
}

// Forbidden reports an authenticated caller without the required role (403).
func Forbidden(format string, args ...any) *AppError {
	return newAppError(http.StatusForbidden, ErrorForbidden, format, args...)
}

// NotFound reports a missing entity (404).
func NotFound(format string, args ...any) *AppError {
	return newAppError(http.StatusNotFound, ErrorNotFound, format, args...)
}

// Conflict reports a duplicate entity (409).
func Conflict(err error, format string, args ...any) *AppError {
	if err == nil {
		err = ErrAlreadyExists
	}
	return newAppError(http.StatusConflict, err, format, args...)
}

// Wrap attaches a status and a public message to an underlying error.
func Wrap(status int, err error, message string) *AppError {
	return &AppError{Status: status, Message: message, Err: err}
}

// StatusOf returns the HTTP status for err: the status of the first AppError
// in its chain, or 500 for anything unrecognised.
func StatusOf(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
