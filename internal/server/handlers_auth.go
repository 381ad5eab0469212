package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/jonathan/job-tracker/internal/apperrors"
	"github.com/jonathan/job-tracker/internal/identity"
	"github.com/jonathan/job-tracker/internal/server/response"
	"github.com/jonathan/job-tracker/internal/types"
)

// passwordAuthenticator is implemented by identity providers that check
// passwords themselves.
type passwordAuthenticator interface {
	Authenticate(ctx context.Context, email, password string) (*types.User, error)
}

// authHandler serves registration and login.
type authHandler struct {
	provider  identity.Provider
	passwords passwordAuthenticator
}

// register handles POST /api/v1/auth/register.
func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := decodeAuthRequest(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, validationError(err))
		return
	}

	user, err := h.provider.CreateUser(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	log.Printf("[auth] Registered user %s", user.ID)
	response.Write(w, http.StatusCreated, response.Success(user, "User registered", nil))
}

// login handles POST /api/v1/auth/login.
func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := decodeAuthRequest(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, validationError(err))
		return
	}

	user, err := h.passwords.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, err := h.provider.IssueToken(r.Context(), user.ID)
	if err != nil {
		writeError(w, r, fmt.Errorf("failed to issue token: %w", err))
		return
	}
	response.Write(w, http.StatusOK, response.Success(types.TokenResponse{Token: token}, "User logged in", nil))
}

func decodeAuthRequest(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperrors.NewValidation("(root)", "Invalid request body")
	}
	return nil
}

// validationError converts validator failures into a ValidationError with one
// entry per field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewValidation("(root)", "Invalid request body")
	}

	out := &apperrors.ValidationError{}
	for _, fe := range verrs {
		field := strings.ToLower(fe.Field())
		var msg string
		switch fe.Tag() {
		case "required":
			msg = fe.Field() + " is required"
		case "email":
			msg = "Invalid email format"
		case "min":
			msg = fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
		case "max":
			msg = fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		default:
			msg = fmt.Sprintf("%s is invalid (%s)", fe.Field(), fe.Tag())
		}
		out.Fields = append(out.Fields, apperrors.FieldError{Field: field, Message: msg})
	}
	return out
}
