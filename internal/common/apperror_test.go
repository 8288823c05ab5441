package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Constructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		status int
		is     error
	}{
		{"bad request", BadRequest("Please enter all fields"), http.StatusBadRequest, ErrorValidation},
		{"unauthenticated", Unauthenticated("Please login first"), http.StatusUnauthorized, ErrorUnauthorized},
		{"forbidden", Forbidden("role %s is not allowed", RoleUser), http.StatusForbidden, ErrorForbidden},
		{"not found", NotFound("User not found"), http.StatusNotFound, ErrorNotFound},
		{"conflict default", Conflict(nil, "User already exists"), http.StatusConflict, ErrAlreadyExists},
		{"conflict playlist", Conflict(ErrPlaylistDuplicate, "Item already exists"), http.StatusConflict, ErrPlaylistDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.status, tt.err.Status)
			assert.ErrorIs(t, tt.err, tt.is)
			assert.Equal(t, tt.status, StatusOf(fmt.Errorf("wrapped: %w", tt.err)))
		})
	}
}

func TestAppError_MessageFormatting(t *testing.T) {
	err := Forbidden("role %s is not allowed to access this resource", RoleUser)
	assert.Equal(t, "role user is not allowed to access this resource", err.Message)
	assert.Contains(t, err.Error(), "forbidden")
}

func TestStatusOf_Unknown(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("db down")))
}

func TestWrap_KeepsCause(t *testing.T) {
	cause := errors.New("smtp: connection refused")
	err := Wrap(http.StatusBadGateway, cause, "mail relay unavailable")

	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "mail relay unavailable", appErr.Message)
	assert.ErrorIs(t, err, cause)
}
