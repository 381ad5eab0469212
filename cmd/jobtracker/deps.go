package main

import (
	"context"
	"fmt"

	"github.com/jonathan/job-tracker/internal/config"
	"github.com/jonathan/job-tracker/internal/db"
	"github.com/jonathan/job-tracker/internal/identity"
)

// loadConfig reads and validates the configuration named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore(ctx context.Context, cfg *config.Config) (db.DocumentStore, error) {
	store, err := db.Open(ctx, db.Options{
		Driver:      cfg.Store.Driver,
		MongoURL:    cfg.Store.MongoURL,
		MongoDB:     cfg.Store.MongoDatabase,
		DatabaseURL: cfg.Store.DatabaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", cfg.Store.Driver, err)
	}
	return store, nil
}

// newJWTProvider builds the local account provider from the JWT_* and
// BCRYPT_*/PASSWORD_PEPPER environment.
func newJWTProvider(store db.DocumentStore) (*identity.JWTProvider, error) {
	jwtCfg, err := config.NewJWTConfig()
	if err != nil {
		return nil, err
	}
	passwords, err := config.NewPasswordConfig()
	if err != nil {
		return nil, err
	}
	return identity.NewJWTProvider(store, jwtCfg, passwords), nil
}

// newIdentityProvider returns the provider selected by cfg.Auth.Provider.
func newIdentityProvider(ctx context.Context, cfg *config.Config, store db.DocumentStore) (identity.Provider, error) {
	switch cfg.Auth.Provider {
	case identity.ProviderJWT:
		p, err := newJWTProvider(store)
		if err != nil {
			return nil, err
		}
		return p, nil
	case identity.ProviderGoogle:
		p, err := identity.NewGoogleProvider(ctx, cfg.Auth.GoogleAudience, cfg.Auth.GoogleRoleClaim)
		if err != nil {
			return nil, fmt.Errorf("failed to create google identity provider: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown identity provider: %q", cfg.Auth.Provider)
	}
}
