package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/crypto/bcrypt"
)

// Accepted bcrypt work factors.
const (
	MinBcryptCost     = 10
	MaxBcryptCost     = 14
	DefaultBcryptCost = 12
)

// MaxPasswordBytes is the longest input bcrypt hashes, pepper included.
const MaxPasswordBytes = 72

// minPasswordRoom is the password length a pepper must leave available.
const minPasswordRoom = 8

// ErrPasswordTooLong is returned by HashPassword when the peppered password
// exceeds MaxPasswordBytes.
var ErrPasswordTooLong = errors.New("password too long")

// PasswordConfig hashes and verifies user passwords.
type PasswordConfig struct {
	BcryptCost int
	Pepper     string // appended to the password before hashing when set
}

// NewPasswordConfig reads BCRYPT_COST (default 12) and PASSWORD_PEPPER.
func NewPasswordConfig() (*PasswordConfig, error) {
	cfg := &PasswordConfig{
		BcryptCost: DefaultBcryptCost,
		Pepper:     os.Getenv("PASSWORD_PEPPER"),
	}

	if v := os.Getenv("BCRYPT_COST"); v != "" {
		cost, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid BCRYPT_COST: %v", err)
		}
		cfg.BcryptCost = cost
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the bcrypt cost range and that the pepper leaves room for a password.
func (c *PasswordConfig) Validate() error {
	if c.BcryptCost < MinBcryptCost || c.BcryptCost > MaxBcryptCost {
		return fmt.Errorf("bcrypt cost out of range: %d (must be %d-%d)", c.BcryptCost, MinBcryptCost, MaxBcryptCost)
	}
	if c.MaxPasswordLength() < minPasswordRoom {
		return fmt.Errorf("PASSWORD_PEPPER too long: %d bytes (max %d)", len(c.Pepper), MaxPasswordBytes-minPasswordRoom)
	}
	return nil
}

func (c *PasswordConfig) peppered(pw string) []byte {
	return []byte(pw + c.Pepper)
}

// MaxPasswordLength returns the longest password in bytes that HashPassword accepts.
func (c *PasswordConfig) MaxPasswordLength() int {
	return MaxPasswordBytes - len(c.Pepper)
}

// HashPassword returns the bcrypt hash of the peppered password.
func (c *PasswordConfig) HashPassword(pw string) (string, error) {
	if len(pw) > c.MaxPasswordLength() {
		return "", fmt.Errorf("%w: %d bytes (max %d)", ErrPasswordTooLong, len(pw), c.MaxPasswordLength())
	}
	hash, err := bcrypt.GenerateFromPassword(c.peppered(pw), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether pw matches storedHash.
func (c *PasswordConfig) VerifyPassword(pw, storedHash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(storedHash), c.peppered(pw)) == nil
}
