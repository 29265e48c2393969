package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	err := NewAppError(ErrCodeInvalidInput, "Please enter all fields", http.StatusBadRequest)
	assert.Equal(t, "INVALID_INPUT: Please enter all fields", err.Error())
}

func TestAppError_WithCause(t *testing.T) {
	cause := errors.New("upload failed")
	err := WrapError(cause, ErrCodeInternal, "Internal Server Error", http.StatusInternalServerError)

	assert.Same(t, cause, err.Cause)
	assert.Contains(t, err.Error(), "upload failed")
	assert.True(t, errors.Is(err, cause))
}

func TestAppError_WithContext(t *testing.T) {
	err := NewNotFoundError("Course not found").
		WithContext("course_id", "c1").
		WithContext("attempt", 2)

	assert.Equal(t, "c1", err.Context["course_id"])
	assert.Equal(t, 2, err.Context["attempt"])
}

func TestConstructorsMapToStatus(t *testing.T) {
	tests := []struct {
		err    *AppError
		code   ErrorCode
		status int
	}{
		{NewInvalidInputError("x"), ErrCodeInvalidInput, http.StatusBadRequest},
		{NewUnauthenticatedError("x"), ErrCodeUnauthenticated, http.StatusUnauthorized},
		{NewUnauthorizedError("x"), ErrCodeUnauthorized, http.StatusUnauthorized},
		{NewForbiddenError("x"), ErrCodeForbidden, http.StatusForbidden},
		{NewNotFoundError("x"), ErrCodeNotFound, http.StatusNotFound},
		{NewConflictError("x"), ErrCodeConflict, http.StatusConflict},
		{NewRateLimitError(), ErrCodeRateLimit, http.StatusTooManyRequests},
		{NewInternalError("x"), ErrCodeInternal, http.StatusInternalServerError},
		{NewServiceUnavailableError("x"), ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}
}

func TestGetAppError_UnwrapsChain(t *testing.T) {
	appErr := NewConflictError("User already exists")
	wrapped := fmt.Errorf("register: %w", appErr)

	got := GetAppError(wrapped)
	require.NotNil(t, got)
	assert.Same(t, appErr, got)
	assert.True(t, IsAppError(wrapped))
	assert.True(t, HasCode(wrapped, ErrCodeConflict))
	assert.False(t, HasCode(wrapped, ErrCodeNotFound))
}

func TestGetAppError_PlainError(t *testing.T) {
	assert.Nil(t, GetAppError(errors.New("boom")))
	assert.Nil(t, GetAppError(nil))
	assert.False(t, IsAppError(errors.New("boom")))
}
