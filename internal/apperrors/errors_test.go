package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
		code     string
	}{
		{"authentication", NewAuthentication("missing token", nil), http.StatusUnauthorized, CodeUnauthenticated},
		{"authorization", NewAuthorization("insufficient role"), http.StatusForbidden, CodeForbidden},
		{"not found", NewNotFound("Job with ID %s not found", "x"), http.StatusNotFound, CodeNotFound},
		{"validation", NewValidation("title", "Title is required"), http.StatusBadRequest, CodeValidation},
		{"conflict", &ConflictError{Message: "email already registered"}, http.StatusConflict, CodeConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, CodeUnknown},
		{"wrapped not found", fmt.Errorf("service: %w", NewNotFound("gone")), http.StatusNotFound, CodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
			assert.Equal(t, tt.code, Code(tt.err))
		})
	}
}

func TestAuthenticationError_Unwrap(t *testing.T) {
	cause := errors.New("token expired")
	err := NewAuthentication("invalid token", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "token expired")
}

func TestPublicMessage_HidesUnknownErrors(t *testing.T) {
	err := fmt.Errorf("failed to query documents: %w", errors.New("connection refused on 10.0.0.5:27017"))

	msg := PublicMessage(err)

	assert.Equal(t, "Internal server error", msg)
	assert.NotContains(t, msg, "10.0.0.5")
}

func TestPublicMessage_KnownKinds(t *testing.T) {
	assert.Equal(t, "Job with ID abc not found", PublicMessage(NewNotFound("Job with ID %s not found", "abc")))
	assert.Equal(t, "Unauthorized: missing token", PublicMessage(NewAuthentication("missing token", errors.New("x"))))
	assert.Equal(t, "Forbidden: insufficient role", PublicMessage(NewAuthorization("insufficient role")))
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Fields: []FieldError{
		{Field: "title", Message: "Title is required"},
		{Field: "url", Message: "Invalid URL format"},
	}}

	assert.Equal(t, "validation error: Title is required, Invalid URL format", err.Error())
	assert.Equal(t, "validation error: invalid request", (&ValidationError{}).Error())
}
