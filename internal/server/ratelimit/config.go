package ratelimit

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Backends accepted in RATE_LIMIT_BACKEND.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// EndpointConfig is the limit applied to one path and method.
type EndpointConfig struct {
	Path   string        // exact path, or a prefix when it ends with "/"
	Method string        // HTTP method
	Limit  int           // requests per window; 0 means unlimited
	Window time.Duration // refill window
	Burst  int           // bucket capacity, defaults to Limit
}

// Config holds rate limiting configuration.
type Config struct {
	Enabled         bool
	Backend         string
	RedisURL        string
	DefaultLimit    int
	DefaultWindow   time.Duration
	CleanupInterval time.Duration
	Whitelist       map[string]bool
	Blacklist       map[string]bool
	EndpointConfigs []EndpointConfig
}

// LoadConfig loads rate limiting configuration from environment variables.
func LoadConfig() *Config {
	return &Config{
		Enabled:         getEnvBool("RATE_LIMIT_ENABLED", true),
		Backend:         getEnvString("RATE_LIMIT_BACKEND", BackendMemory),
		RedisURL:        getEnvString("REDIS_URL", "redis://localhost:6379/0"),
		DefaultLimit:    getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", 300),
		DefaultWindow:   getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", time.Minute),
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		Whitelist:       parseIPList(getEnvString("RATE_LIMIT_WHITELIST", "")),
		Blacklist:       parseIPList(getEnvString("RATE_LIMIT_BLACKLIST", "")),
		EndpointConfigs: DefaultEndpointConfigs(),
	}
}

// DefaultEndpointConfigs returns the per-endpoint limits. Reads fall through to
// the default limit and the health check is never limited.
func DefaultEndpointConfigs() []EndpointConfig {
	var configs []EndpointConfig

	// Credential endpoints are the brute-force target, so they get the strictest limits.
	for _, path := range []string{"/api/v1/auth/login", "/api/v1/auth/register"} {
		configs = append(configs, EndpointConfig{Path: path, Method: http.MethodPost, Limit: 10, Window: time.Minute, Burst: 5})
	}

	for _, prefix := range []string{"/api/v1/jobs", "/jobs"} {
		configs = append(configs,
			EndpointConfig{Path: prefix, Method: http.MethodPost, Limit: 60, Window: time.Minute, Burst: 10},
			EndpointConfig{Path: prefix + "/", Method: http.MethodPut, Limit: 60, Window: time.Minute, Burst: 10},
			EndpointConfig{Path: prefix + "/", Method: http.MethodDelete, Limit: 60, Window: time.Minute, Burst: 10},
		)
	}
	return configs
}

func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of IP addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
