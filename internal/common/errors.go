package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired      = errors.New("token expired")
	ErrResetTokenInvalid = errors.New("reset token is invalid or has expired")

	// Playlist errors.
	ErrPlaylistDuplicate = errors.New("item already exists")

	// Collaborator errors that must not fail the surrounding operation.
	ErrEmailDelivery = errors.New("email delivery failed")
)
