// Package middleware provides HTTP middleware for authentication and authorization.
package middleware

import (
	"context"
	"net/http"
	"slices"
	"strings"

	"github.com/jonathan/job-tracker/internal/apperrors"
)

// ContextKey is a typed key for context values to avoid collisions.
type ContextKey string

// identityKey is the context key for storing the authenticated identity.
const identityKey ContextKey = "identity"

// Identity is the caller established by Authenticate.
type Identity struct {
	SubjectID string
	Role      string
}

// CredentialVerifier validates a bearer credential and returns the caller it
// belongs to. Implementations are provided by the identity package.
type CredentialVerifier interface {
	VerifyCredential(ctx context.Context, token string) (Identity, error)
}

// ErrorHandler writes the response for a failed authentication or authorization.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom extracts the authenticated identity from ctx.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// bearerToken extracts the token from an "Authorization: Bearer <token>" header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], parts[1] != ""
}

// Authenticate creates middleware that verifies the bearer token and stores the
// resulting identity on the request context. The verifier is called at most once
// per request and never when the header is missing or malformed.
func Authenticate(verifier CredentialVerifier, onError ErrorHandler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				onError(w, r, apperrors.NewAuthentication("missing token", nil))
				return
			}

			id, err := verifier.VerifyCredential(r.Context(), token)
			if err != nil {
				onError(w, r, apperrors.NewAuthentication("invalid token", err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// AuthorizeOptions configures Authorize.
type AuthorizeOptions struct {
	// HasRole lists the roles allowed through.
	HasRole []string
	// AllowSameUser lets the caller through when their subject id equals the
	// owner id taken from the route, regardless of role.
	AllowSameUser bool
	// OwnerParam names the path value holding the owner id. Defaults to "id".
	OwnerParam string
}

// Decide evaluates the authorization rules for id against ownerID.
func Decide(id Identity, ownerID string, opts AuthorizeOptions) error {
	if opts.AllowSameUser && ownerID != "" && id.SubjectID == ownerID {
		return nil
	}
	if id.Role == "" {
		return apperrors.NewAuthorization("no role assigned")
	}
	if !slices.Contains(opts.HasRole, id.Role) {
		return apperrors.NewAuthorization("insufficient role")
	}
	return nil
}

// Authorize creates middleware that admits the request only when Decide allows
// the identity stored by Authenticate. A request without an identity is treated
// as unauthenticated.
func Authorize(opts AuthorizeOptions, onError ErrorHandler) func(http.Handler) http.Handler {
	param := opts.OwnerParam
	if param == "" {
		param = "id"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				onError(w, r, apperrors.NewAuthentication("missing token", nil))
				return
			}

			if err := Decide(id, r.PathValue(param), opts); err != nil {
				onError(w, r, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Chain applies middlewares so the first one listed runs first.
func Chain(h http.Handler, mws ...func(http.Handler) http.Handler) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
