// Package config provides configuration loading and validation for the job tracker.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the server configuration. Values come from an optional YAML or JSON
// file and are then overridden by environment variables.
type Config struct {
	Port               int         `yaml:"port" validate:"min=1,max=65535"`
	Store              StoreConfig `yaml:"store"`
	Auth               AuthConfig  `yaml:"auth"`
	Docs               DocsConfig  `yaml:"docs"`
	CORSAllowedOrigins []string    `yaml:"cors_allowed_origins"`
}

// StoreConfig selects and configures the document store backend.
type StoreConfig struct {
	Driver        string `yaml:"driver" validate:"oneof=mongo postgres memory"`
	MongoURL      string `yaml:"mongo_url" validate:"required_if=Driver mongo"`
	MongoDatabase string `yaml:"mongo_database" validate:"required_if=Driver mongo"`
	DatabaseURL   string `yaml:"database_url" validate:"required_if=Driver postgres"`
}

// AuthConfig selects the identity provider.
type AuthConfig struct {
	Provider        string `yaml:"provider" validate:"oneof=jwt google"`
	GoogleAudience  string `yaml:"google_audience" validate:"required_if=Provider google"`
	GoogleRoleClaim string `yaml:"google_role_claim"`
}

// DocsConfig holds the values rendered into the OpenAPI document.
type DocsConfig struct {
	Title       string `yaml:"title" validate:"required"`
	Version     string `yaml:"version" validate:"required"`
	Description string `yaml:"description"`
	ServerURL   string `yaml:"server_url" validate:"omitempty,url"`
}

// Default returns the configuration used when nothing else is set.
func Default() Config {
	return Config{
		Port: 8080,
		Store: StoreConfig{
			Driver:        "memory",
			MongoDatabase: "job_tracker",
		},
		Auth: AuthConfig{
			Provider:        "jwt",
			GoogleRoleClaim: "role",
		},
		Docs: DocsConfig{
			Title:       "Job Tracker API",
			Version:     "1.0.0",
			Description: "Track job applications through their hiring stages",
		},
		CORSAllowedOrigins: []string{"*"},
	}
}

// Load builds the configuration from defaults, the file at path (if non-empty)
// and the environment, in that order of precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		// Resolve path relative to current directory if not absolute
		if !filepath.IsAbs(path) {
			cwd, err := os.Getwd()
			if err != nil {
				return nil, fmt.Errorf("failed to get current directory: %w", err)
			}
			path = filepath.Join(cwd, path)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// JSON documents are valid YAML, so one decoder covers both formats.
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT: %v", err)
		}
		c.Port = port
	}

	setString(&c.Store.Driver, "STORE_DRIVER")
	setString(&c.Store.MongoURL, "MONGO_URL")
	setString(&c.Store.MongoDatabase, "MONGO_DATABASE")
	setString(&c.Store.DatabaseURL, "DATABASE_URL")

	setString(&c.Auth.Provider, "AUTH_PROVIDER")
	setString(&c.Auth.GoogleAudience, "GOOGLE_AUDIENCE")
	setString(&c.Auth.GoogleRoleClaim, "GOOGLE_ROLE_CLAIM")

	setString(&c.Docs.Title, "API_TITLE")
	setString(&c.Docs.Version, "API_VERSION")
	setString(&c.Docs.ServerURL, "SWAGGER_SERVER_URL")

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		c.CORSAllowedOrigins = splitList(v)
	}
	return nil
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	return nil
}

// DocsServerURL returns the server URL advertised in the API docs, falling back
// to localhost on the configured port.
func (c *Config) DocsServerURL() string {
	if c.Docs.ServerURL != "" {
		return c.Docs.ServerURL
	}
	return fmt.Sprintf("http://localhost:%d", c.Port)
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
