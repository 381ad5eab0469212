// Package ratelimit limits requests per client and endpoint.
//
// The Limiter resolves which rule applies to a request and delegates counting
// to a Backend: an in-process token bucket per key, or a fixed window counter
// in Redis shared by every server instance.
package ratelimit

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Info contains information about rate limit status.
type Info struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Backend counts requests for a key against a rule.
type Backend interface {
	Take(ctx context.Context, key string, rule EndpointConfig) (Info, error)
	Close() error
}

// Limiter applies Config to incoming requests.
type Limiter struct {
	config  *Config
	backend Backend
}

// NewLimiter creates a Limiter. A nil config uses LoadConfig defaults with the
// memory backend.
func NewLimiter(config *Config, backend Backend) *Limiter {
	if config == nil {
		config = LoadConfig()
		config.Backend = BackendMemory
	}
	if backend == nil {
		backend = NewMemoryBackend(config.CleanupInterval)
	}
	return &Limiter{config: config, backend: backend}
}

// New builds the Limiter and backend named by config.Backend.
func New(config *Config) (*Limiter, error) {
	switch config.Backend {
	case "", BackendMemory:
		return NewLimiter(config, NewMemoryBackend(config.CleanupInterval)), nil
	case BackendRedis:
		backend, err := NewRedisBackend(config.RedisURL)
		if err != nil {
			return nil, err
		}
		return NewLimiter(config, backend), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend: %q", config.Backend)
	}
}

// Allow reports whether a request from clientID to endpoint is admitted.
// Backend failures admit the request.
func (l *Limiter) Allow(ctx context.Context, clientID string, endpoint string, method string) (bool, Info) {
	if !l.config.Enabled || l.config.Whitelist[clientID] {
		return true, Info{Allowed: true}
	}
	if l.config.Blacklist[clientID] {
		return false, Info{Allowed: false}
	}

	rule := MatchEndpoint(endpoint, method, l.config.EndpointConfigs)
	if rule == nil {
		rule = &EndpointConfig{
			Limit:  l.config.DefaultLimit,
			Window: l.config.DefaultWindow,
			Burst:  l.config.DefaultLimit,
		}
	}
	if rule.Limit <= 0 {
		return true, Info{Allowed: true}
	}

	// Prefix rules share one bucket for every id under the prefix.
	path := endpoint
	if rule.Path != "" {
		path = rule.Path
	}
	key := clientID + ":" + path + ":" + method

	info, err := l.backend.Take(ctx, key, *rule)
	if err != nil {
		log.Printf("[rate-limit] Backend error, allowing request: %v", err)
		return true, Info{Allowed: true}
	}
	return info.Allowed, info
}

// Stop releases the backend.
func (l *Limiter) Stop() {
	if err := l.backend.Close(); err != nil {
		log.Printf("[rate-limit] Failed to close backend: %v", err)
	}
}
