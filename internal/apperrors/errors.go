// Package apperrors defines the error kinds surfaced by the API and their HTTP mapping.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error codes returned in the envelope's code field.
const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeForbidden       = "FORBIDDEN"
	CodeNotFound        = "NOT_FOUND"
	CodeValidation      = "VALIDATION_ERROR"
	CodeConflict        = "CONFLICT"
	CodeUnknown         = "UNKNOWN_ERROR"
)

// AuthenticationError indicates a missing or invalid credential.
type AuthenticationError struct {
	Message string
	Cause   error
}

func (e *AuthenticationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("authentication failed: %s: %v", e.Message, e.Cause)
	}
	return "authentication failed: " + e.Message
}

func (e *AuthenticationError) Unwrap() error {
	return e.Cause
}

// AuthorizationError indicates the caller's role or ownership does not permit the request.
type AuthorizationError struct {
	Message string
}

func (e *AuthorizationError) Error() string {
	return "authorization failed: " + e.Message
}

// NotFoundError indicates the requested entity does not exist.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError indicates that request input violated its schema.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation error: invalid request"
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return "validation error: " + strings.Join(msgs, ", ")
}

// ConflictError indicates the request collides with existing state, e.g. a registered email.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

// NewAuthentication returns an AuthenticationError with an optional cause.
func NewAuthentication(message string, cause error) error {
	return &AuthenticationError{Message: message, Cause: cause}
}

// NewAuthorization returns an AuthorizationError.
func NewAuthorization(message string) error {
	return &AuthorizationError{Message: message}
}

// NewNotFound returns a NotFoundError with a formatted message.
func NewNotFound(format string, args ...any) error {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// NewValidation returns a ValidationError for a single field.
func NewValidation(field, message string) error {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// HTTPStatus returns the HTTP status code for an error kind.
// Anything outside the taxonomy maps to 500.
func HTTPStatus(err error) int {
	var (
		authnErr    *AuthenticationError
		authzErr    *AuthorizationError
		notFound    *NotFoundError
		validErr    *ValidationError
		conflictErr *ConflictError
	)
	switch {
	case errors.As(err, &authnErr):
		return http.StatusUnauthorized
	case errors.As(err, &authzErr):
		return http.StatusForbidden
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &validErr):
		return http.StatusBadRequest
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the envelope error code for an error kind.
func Code(err error) string {
	switch HTTPStatus(err) {
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusForbidden:
		return CodeForbidden
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusBadRequest:
		return CodeValidation
	case http.StatusConflict:
		return CodeConflict
	default:
		return CodeUnknown
	}
}

// PublicMessage returns the client-safe message for an error.
// Errors outside the taxonomy never expose their text.
func PublicMessage(err error) string {
	var (
		authnErr    *AuthenticationError
		authzErr    *AuthorizationError
		notFound    *NotFoundError
		validErr    *ValidationError
		conflictErr *ConflictError
	)
	switch {
	case errors.As(err, &authnErr):
		return "Unauthorized: " + authnErr.Message
	case errors.As(err, &authzErr):
		return "Forbidden: " + authzErr.Message
	case errors.As(err, &notFound):
		return notFound.Message
	case errors.As(err, &validErr):
		return validErr.Error()
	case errors.As(err, &conflictErr):
		return conflictErr.Message
	default:
		return "Internal server error"
	}
}
