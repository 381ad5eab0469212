package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonathan/job-tracker/internal/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingVerifier is a CredentialVerifier that records every call.
type recordingVerifier struct {
	valid map[string]Identity
	err   error
	calls []string
}

func (v *recordingVerifier) VerifyCredential(_ context.Context, token string) (Identity, error) {
	v.calls = append(v.calls, token)
	if v.err != nil {
		return Identity{}, v.err
	}
	id, ok := v.valid[token]
	if !ok {
		return Identity{}, errors.New("token signature is invalid")
	}
	return id, nil
}

// errorRecorder captures errors passed to the ErrorHandler.
type errorRecorder struct {
	errs []error
}

func (e *errorRecorder) handle(w http.ResponseWriter, _ *http.Request, err error) {
	e.errs = append(e.errs, err)
	w.WriteHeader(apperrors.HTTPStatus(err))
}

func TestAuthenticate_ValidToken(t *testing.T) {
	verifier := &recordingVerifier{valid: map[string]Identity{
		"good-token": {SubjectID: "user-1", Role: "user"},
	}}
	rec := &errorRecorder{}

	var got Identity
	handler := Authenticate(verifier, rec.handle)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		require.True(t, ok)
		got = id
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, Identity{SubjectID: "user-1", Role: "user"}, got)
	assert.Equal(t, []string{"good-token"}, verifier.calls)
	assert.Empty(t, rec.errs)
}

func TestAuthenticate_MissingCredential(t *testing.T) {
	headers := map[string]string{
		"no header":     "",
		"basic scheme":  "Basic dXNlcjpwYXNz",
		"bearer only":   "Bearer",
		"bearer blank":  "Bearer    ",
		"extra parts":   "Bearer a b",
		"token no type": "good-token",
	}

	for name, header := range headers {
		t.Run(name, func(t *testing.T) {
			verifier := &recordingVerifier{}
			rec := &errorRecorder{}
			nextCalled := false
			handler := Authenticate(verifier, rec.handle)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
				nextCalled = true
			}))

			req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.False(t, nextCalled)
			assert.Empty(t, verifier.calls, "verifier must not be called without a credential")

			require.Len(t, rec.errs, 1)
			var authErr *apperrors.AuthenticationError
			require.ErrorAs(t, rec.errs[0], &authErr)
			assert.Equal(t, "missing token", authErr.Message)
		})
	}
}

func TestAuthenticate_CaseInsensitiveScheme(t *testing.T) {
	verifier := &recordingVerifier{valid: map[string]Identity{"t": {SubjectID: "u", Role: "user"}}}
	rec := &errorRecorder{}
	handler := Authenticate(verifier, rec.handle)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("Authorization", "bearer t")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuthenticate_VerifierFailureWrapsCause(t *testing.T) {
	cause := errors.New("provider unavailable")
	verifier := &recordingVerifier{err: cause}
	rec := &errorRecorder{}
	nextCalled := false
	handler := Authenticate(verifier, rec.handle)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		nextCalled = true
	}))

	req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
	req.Header.Set("Authorization", "Bearer expired")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, nextCalled)
	assert.Len(t, verifier.calls, 1, "verification is attempted exactly once")

	require.Len(t, rec.errs, 1)
	assert.ErrorIs(t, rec.errs[0], cause)
	var authErr *apperrors.AuthenticationError
	require.ErrorAs(t, rec.errs[0], &authErr)
	assert.Equal(t, "invalid token", authErr.Message)
}

func TestDecide(t *testing.T) {
	tests := []struct {
		name    string
		id      Identity
		owner   string
		opts    AuthorizeOptions
		allowed bool
	}{
		{
			name:    "role in set",
			id:      Identity{SubjectID: "u1", Role: "user"},
			opts:    AuthorizeOptions{HasRole: []string{"user"}},
			allowed: true,
		},
		{
			name:    "role in set ignores same user flag",
			id:      Identity{SubjectID: "u1", Role: "user"},
			owner:   "someone-else",
			opts:    AuthorizeOptions{HasRole: []string{"user"}, AllowSameUser: true},
			allowed: true,
		},
		{
			name:    "same user bypasses role",
			id:      Identity{SubjectID: "u1", Role: "guest"},
			owner:   "u1",
			opts:    AuthorizeOptions{HasRole: []string{"admin"}, AllowSameUser: true},
			allowed: true,
		},
		{
			name:    "same user bypasses missing role",
			id:      Identity{SubjectID: "u1"},
			owner:   "u1",
			opts:    AuthorizeOptions{HasRole: []string{"admin"}, AllowSameUser: true},
			allowed: true,
		},
		{
			name:  "same user flag off",
			id:    Identity{SubjectID: "u1", Role: "guest"},
			owner: "u1",
			opts:  AuthorizeOptions{HasRole: []string{"admin"}},
		},
		{
			name:  "owner mismatch",
			id:    Identity{SubjectID: "u1", Role: "guest"},
			owner: "u2",
			opts:  AuthorizeOptions{HasRole: []string{"admin"}, AllowSameUser: true},
		},
		{
			name: "missing role",
			id:   Identity{SubjectID: "u1"},
			opts: AuthorizeOptions{HasRole: []string{"user"}},
		},
		{
			name: "empty subject never matches empty owner",
			id:   Identity{},
			opts: AuthorizeOptions{HasRole: []string{"user"}, AllowSameUser: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Decide(tt.id, tt.owner, tt.opts)
			if tt.allowed {
				assert.NoError(t, err)
				return
			}
			var authzErr *apperrors.AuthorizationError
			assert.ErrorAs(t, err, &authzErr)
		})
	}
}

func TestDecide_Messages(t *testing.T) {
	err := Decide(Identity{SubjectID: "u1", Role: "guest"}, "", AuthorizeOptions{HasRole: []string{"user"}})
	assert.EqualError(t, err, "authorization failed: insufficient role")

	err = Decide(Identity{SubjectID: "u1"}, "", AuthorizeOptions{HasRole: []string{"user"}})
	assert.EqualError(t, err, "authorization failed: no role assigned")
}

func TestAuthorize_UsesRouteOwner(t *testing.T) {
	rec := &errorRecorder{}
	opts := AuthorizeOptions{HasRole: []string{"admin"}, AllowSameUser: true}

	mux := http.NewServeMux()
	mux.Handle("GET /users/{id}", Authorize(opts, rec.handle)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	serve := func(path string, id Identity) int {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req = req.WithContext(WithIdentity(req.Context(), id))
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, serve("/users/u1", Identity{SubjectID: "u1", Role: "user"}))
	assert.Equal(t, http.StatusForbidden, serve("/users/u2", Identity{SubjectID: "u1", Role: "user"}))
	assert.Equal(t, http.StatusOK, serve("/users/u2", Identity{SubjectID: "u1", Role: "admin"}))
}

func TestAuthorize_EvaluatedPerRequest(t *testing.T) {
	rec := &errorRecorder{}
	handler := Authorize(AuthorizeOptions{HasRole: []string{"user"}}, rec.handle)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, tc := range []struct {
		role string
		want int
	}{
		{"user", http.StatusOK},
		{"guest", http.StatusForbidden},
		{"user", http.StatusOK},
	} {
		req := httptest.NewRequest(http.MethodGet, "/jobs", nil)
		req = req.WithContext(WithIdentity(req.Context(), Identity{SubjectID: "u1", Role: tc.role}))
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		assert.Equal(t, tc.want, w.Code)
	}
}

func TestAuthorize_WithoutIdentity(t *testing.T) {
	rec := &errorRecorder{}
	handler := Authorize(AuthorizeOptions{HasRole: []string{"user"}}, rec.handle)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/jobs", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("first"), mw("second"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"first", "second", "handler"}, order)
}
