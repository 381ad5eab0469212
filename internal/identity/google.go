package identity

import (
	"context"
	"fmt"

	"github.com/jonathan/job-tracker/internal/types"
	"google.golang.org/api/idtoken"
)

// TokenValidator validates Google-signed ID tokens. *idtoken.Validator
// satisfies it.
type TokenValidator interface {
	Validate(ctx context.Context, idToken string, audience string) (*idtoken.Payload, error)
}

// GoogleProvider verifies ID tokens issued by Google for a configured audience.
// Accounts and tokens are managed by Google, so CreateUser and IssueToken are
// unsupported.
type GoogleProvider struct {
	validator TokenValidator
	audience  string
	roleClaim string
}

// NewGoogleProvider creates a GoogleProvider backed by idtoken.NewValidator.
func NewGoogleProvider(ctx context.Context, audience, roleClaim string) (*GoogleProvider, error) {
	v, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create id token validator: %w", err)
	}
	return NewGoogleProviderWithValidator(v, audience, roleClaim), nil
}

// NewGoogleProviderWithValidator creates a GoogleProvider with a custom validator.
func NewGoogleProviderWithValidator(v TokenValidator, audience, roleClaim string) *GoogleProvider {
	if roleClaim == "" {
		roleClaim = "role"
	}
	return &GoogleProvider{validator: v, audience: audience, roleClaim: roleClaim}
}

// VerifyCredential validates token and reads the role from the configured claim.
// A token without the claim yields claims with an empty role.
func (p *GoogleProvider) VerifyCredential(ctx context.Context, token string) (*Claims, error) {
	payload, err := p.validator.Validate(ctx, token, p.audience)
	if err != nil {
		return nil, fmt.Errorf("failed to validate id token: %w", err)
	}

	claims := &Claims{SubjectID: payload.Subject}
	claims.Role, _ = payload.Claims[p.roleClaim].(string)
	claims.Email, _ = payload.Claims["email"].(string)
	return claims, nil
}

// CreateUser is not supported; accounts are created in Google.
func (p *GoogleProvider) CreateUser(context.Context, string, string) (*types.User, error) {
	return nil, ErrUnsupported
}

// IssueToken is not supported; Google issues the tokens.
func (p *GoogleProvider) IssueToken(context.Context, string) (string, error) {
	return "", ErrUnsupported
}
