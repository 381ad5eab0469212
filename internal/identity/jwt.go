package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonathan/job-tracker/internal/apperrors"
	"github.com/jonathan/job-tracker/internal/config"
	"github.com/jonathan/job-tracker/internal/db"
	"github.com/jonathan/job-tracker/internal/types"
)

// UsersCollection is the document store collection holding accounts.
const UsersCollection = "users"

// Stored user document field names.
const (
	fieldEmail        = "email"
	fieldPasswordHash = "passwordHash"
	fieldRole         = "role"
	fieldCreatedAt    = "createdAt"
)

// userNamespace scopes the name-based UUIDs used as account ids.
var userNamespace = uuid.MustParse("5b0c1a9e-4f37-4d7e-9a61-2f8f0c7d3e21")

// userID derives the account id from the normalized email, so the store's
// primary key rejects a second account for the same email.
func userID(email string) string {
	return uuid.NewSHA1(userNamespace, []byte(email)).String()
}

// tokenClaims are the JWT claims issued by JWTProvider.
type tokenClaims struct {
	Role  string `json:"role,omitempty"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// JWTProvider issues and verifies HS256 tokens for accounts kept in the
// document store.
type JWTProvider struct {
	store     db.DocumentStore
	jwt       *config.JWTConfig
	passwords *config.PasswordConfig
	now       func() time.Time
}

// NewJWTProvider creates a JWTProvider.
func NewJWTProvider(store db.DocumentStore, jwtCfg *config.JWTConfig, passwords *config.PasswordConfig) *JWTProvider {
	return &JWTProvider{
		store:     store,
		jwt:       jwtCfg,
		passwords: passwords,
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser registers an account with role "user". A second registration for
// the same email returns a ConflictError.
func (p *JWTProvider) CreateUser(ctx context.Context, email, password string) (*types.User, error) {
	return p.createUser(ctx, email, password, types.RoleUser)
}

// CreateUserWithRole registers an account with an explicit role.
func (p *JWTProvider) CreateUserWithRole(ctx context.Context, email, password, role string) (*types.User, error) {
	return p.createUser(ctx, email, password, role)
}

func (p *JWTProvider) createUser(ctx context.Context, email, password, role string) (*types.User, error) {
	email = normalizeEmail(email)

	existing, err := p.store.FindOne(ctx, UsersCollection, fieldEmail, email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email existence: %w", err)
	}
	if existing != nil {
		return nil, &apperrors.ConflictError{Message: "Email already registered"}
	}

	hash, err := p.passwords.HashPassword(password)
	if err != nil {
		if errors.Is(err, config.ErrPasswordTooLong) {
			return nil, apperrors.NewValidation("password",
				fmt.Sprintf("Password must be at most %d bytes", p.passwords.MaxPasswordLength()))
		}
		return nil, err
	}

	createdAt := p.now().UTC()
	id, err := p.store.Create(ctx, UsersCollection, map[string]any{
		"id":              userID(email),
		fieldEmail:        email,
		fieldPasswordHash: hash,
		fieldRole:         role,
		fieldCreatedAt:    createdAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		// A concurrent registration for the same email won the insert.
		if errors.Is(err, db.ErrConflict) {
			return nil, &apperrors.ConflictError{Message: "Email already registered"}
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &types.User{ID: id, Email: email, Role: role, CreatedAt: createdAt}, nil
}

// Authenticate checks an email and password pair. Unknown emails and wrong
// passwords produce the same error.
func (p *JWTProvider) Authenticate(ctx context.Context, email, password string) (*types.User, error) {
	doc, err := p.store.FindOne(ctx, UsersCollection, fieldEmail, normalizeEmail(email))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if doc == nil {
		return nil, apperrors.NewAuthentication("invalid email or password", nil)
	}

	hash, _ := doc.Fields[fieldPasswordHash].(string)
	if hash == "" || !p.passwords.VerifyPassword(password, hash) {
		return nil, apperrors.NewAuthentication("invalid email or password", nil)
	}

	return userFromDocument(doc), nil
}

// IssueToken signs a token for an existing account, embedding its role.
func (p *JWTProvider) IssueToken(ctx context.Context, subjectID string) (string, error) {
	doc, err := p.store.GetByID(ctx, UsersCollection, subjectID)
	if err != nil {
		return "", fmt.Errorf("failed to get user: %w", err)
	}
	if doc == nil {
		return "", apperrors.NewNotFound("User with ID %s not found", subjectID)
	}
	user := userFromDocument(doc)

	now := p.now()
	claims := &tokenClaims{
		Role:  user.Role,
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    p.jwt.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.jwt.TTL())),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(p.jwt.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// VerifyCredential validates the signature, lifetime and issuer of token.
func (p *JWTProvider) VerifyCredential(_ context.Context, token string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("token string is empty")
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(p.now),
	}
	if p.jwt.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.jwt.Issuer))
	}

	claims := &tokenClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(p.jwt.Secret), nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("token expired: %w", err)
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, fmt.Errorf("invalid token signature: %w", err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("malformed token: %w", err)
		default:
			return nil, fmt.Errorf("failed to parse token: %w", err)
		}
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, fmt.Errorf("token is not valid")
	}

	return &Claims{SubjectID: claims.Subject, Role: claims.Role, Email: claims.Email}, nil
}

// userFromDocument builds the API view of a stored account, leaving out the hash.
func userFromDocument(doc *db.Document) *types.User {
	user := &types.User{ID: doc.ID}
	user.Email, _ = doc.Fields[fieldEmail].(string)
	user.Role, _ = doc.Fields[fieldRole].(string)
	if s, ok := doc.Fields[fieldCreatedAt].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			user.CreatedAt = t
		}
	}
	return user
}
