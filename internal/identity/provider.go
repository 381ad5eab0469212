// Package identity verifies bearer credentials and manages user accounts.
//
// A Provider is the single binding to an identity backend. The HTTP layer only
// sees it through middleware.CredentialVerifier, so backends can be swapped
// without touching authentication or authorization logic.
package identity

import (
	"context"
	"errors"

	"github.com/jonathan/job-tracker/internal/server/middleware"
	"github.com/jonathan/job-tracker/internal/types"
)

// Provider names accepted by the configuration.
const (
	ProviderJWT    = "jwt"
	ProviderGoogle = "google"
)

// ErrUnsupported is returned by providers that delegate an operation to an
// external backend.
var ErrUnsupported = errors.New("operation not supported by identity provider")

// Claims are the verified facts carried by a credential.
type Claims struct {
	SubjectID string
	Role      string
	Email     string
}

// Provider is the capability set of an identity backend.
type Provider interface {
	// VerifyCredential validates token and returns its claims.
	VerifyCredential(ctx context.Context, token string) (*Claims, error)
	// CreateUser registers a new account.
	CreateUser(ctx context.Context, email, password string) (*types.User, error)
	// IssueToken mints a bearer token for subjectID.
	IssueToken(ctx context.Context, subjectID string) (string, error)
}

// Verifier adapts p to the middleware's CredentialVerifier.
func Verifier(p Provider) middleware.CredentialVerifier {
	return &providerVerifier{provider: p}
}

type providerVerifier struct {
	provider Provider
}

func (v *providerVerifier) VerifyCredential(ctx context.Context, token string) (middleware.Identity, error) {
	claims, err := v.provider.VerifyCredential(ctx, token)
	if err != nil {
		return middleware.Identity{}, err
	}
	return middleware.Identity{SubjectID: claims.SubjectID, Role: claims.Role}, nil
}
