//nolint:revive // types is a standard Go package name pattern
package types

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		request RegisterRequest
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid request",
			request: RegisterRequest{Email: "john@example.com", Password: "password123"},
			wantErr: false,
		},
		{
			name:    "missing email",
			request: RegisterRequest{Password: "password123"},
			wantErr: true,
			errMsg:  "required",
		},
		{
			name:    "invalid email",
			request: RegisterRequest{Email: "not-an-email", Password: "password123"},
			wantErr: true,
			errMsg:  "email",
		},
		{
			name:    "short password",
			request: RegisterRequest{Email: "john@example.com", Password: "short"},
			wantErr: true,
			errMsg:  "min",
		},
		{
			name:    "password over bcrypt limit",
			request: RegisterRequest{Email: "john@example.com", Password: strings.Repeat("a", 73)},
			wantErr: true,
			errMsg:  "max",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoginRequest_Validation(t *testing.T) {
	assert.NoError(t, (&LoginRequest{Email: "john@example.com", Password: "x"}).Validate())
	assert.Error(t, (&LoginRequest{Email: "john@example.com"}).Validate())
	assert.Error(t, (&LoginRequest{Password: "x"}).Validate())
}

func TestUser_JSONExcludesSecrets(t *testing.T) {
	user := User{
		ID:        "u1",
		Email:     "john@example.com",
		Role:      RoleUser,
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	raw, err := json.Marshal(user)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "user", out["role"])
	assert.NotContains(t, string(raw), "password")
}
