// Package server provides the HTTP REST API for the job tracker.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"syscall"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/jonathan/job-tracker/internal/apperrors"
	"github.com/jonathan/job-tracker/internal/db"
	"github.com/jonathan/job-tracker/internal/identity"
	"github.com/jonathan/job-tracker/internal/jobs"
	"github.com/jonathan/job-tracker/internal/server/middleware"
	"github.com/jonathan/job-tracker/internal/server/ratelimit"
	"github.com/jonathan/job-tracker/internal/server/response"
	"github.com/jonathan/job-tracker/internal/types"
)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	store       db.DocumentStore
	jobs        *jobs.Service
	identity    identity.Provider
	rateLimiter *ratelimit.Limiter
	corsOrigins []string
	openAPI     *OpenAPI
}

// Config holds server configuration
type Config struct {
	Port               int
	CORSAllowedOrigins []string
	Docs               DocsConfig
}

// Deps are the collaborators the server is built from. The server owns them
// after New and closes them on shutdown.
type Deps struct {
	Store       db.DocumentStore
	Identity    identity.Provider
	RateLimiter *ratelimit.Limiter
}

// jobRoles are the roles admitted to the job routes.
var jobRoles = []string{types.RoleUser, types.RoleAdmin}

// New creates a new server instance
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("document store is required")
	}
	if deps.Identity == nil {
		return nil, fmt.Errorf("identity provider is required")
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = ratelimit.NewLimiter(&ratelimit.Config{Enabled: false}, ratelimit.NewMemoryBackend(0))
	}

	s := &Server{
		store:       deps.Store,
		jobs:        jobs.NewService(deps.Store),
		identity:    deps.Identity,
		rateLimiter: deps.RateLimiter,
		corsOrigins: cfg.CORSAllowedOrigins,
		openAPI:     BuildOpenAPI(cfg.Docs),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	// Job routes are served under the versioned prefix and at the root.
	for _, prefix := range []string{"/api/v1/jobs", "/jobs"} {
		mux.Handle("GET "+prefix, s.protect(s.handleListJobs))
		mux.Handle("POST "+prefix, s.protect(s.handleCreateJob))
		mux.Handle("GET "+prefix+"/{id}", s.protect(s.handleGetJob))
		mux.Handle("PUT "+prefix+"/{id}", s.protect(s.handleUpdateJob))
		mux.Handle("DELETE "+prefix+"/{id}", s.protect(s.handleDeleteJob))
	}

	// Password login only exists for providers that keep credentials locally.
	if auth, ok := deps.Identity.(passwordAuthenticator); ok {
		h := &authHandler{provider: deps.Identity, passwords: auth}
		mux.HandleFunc("POST /api/v1/auth/register", h.register)
		mux.HandleFunc("POST /api/v1/auth/login", h.login)
	}

	mux.HandleFunc("GET /api-docs/openapi.json", s.handleOpenAPIJSON)
	mux.HandleFunc("GET /api-docs/openapi.yaml", s.handleOpenAPIYAML)

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, apperrors.NewNotFound("Route %s %s not found", r.Method, r.URL.Path))
	})

	s.handler = s.withRateLimit(s.withLogging(s.withSecurityHeaders(s.withCORS(mux))))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the fully wrapped HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// protect wraps a job handler with authentication and role authorization.
func (s *Server) protect(h http.HandlerFunc) http.Handler {
	return middleware.Chain(h,
		middleware.Authenticate(identity.Verifier(s.identity), writeError),
		middleware.Authorize(middleware.AuthorizeOptions{HasRole: jobRoles}, writeError),
	)
}

// Start begins listening for requests
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		s.close(context.Background())
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.close(ctx)
	log.Println("Server stopped")
	return nil
}

func (s *Server) close(ctx context.Context) {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if err := s.store.Close(ctx); err != nil {
		log.Printf("[store] Failed to close document store: %v", err)
	}
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case len(s.corsOrigins) == 0 || slices.Contains(s.corsOrigins, "*"):
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && slices.Contains(s.corsOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withSecurityHeaders sets conservative browser security headers.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Strict-Transport-Security", "max-age=15552000; includeSubDomains")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

// withLogging writes one access log line per request.
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		log.Printf("[http] %s %s %s %d %dB %v", r.RemoteAddr, r.Method, r.URL.RequestURI(), m.Code, m.Written, m.Duration)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(r.Context(), extractClientID(r), r.URL.Path, r.Method)
		setRateLimitHeaders(w, info)
		if !allowed {
			rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// handleHealth is the unauthenticated liveness check.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Server is healthy"))
}

// extractClientID returns the client IP from RemoteAddr.
func extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 error envelope.
func rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	if info.RetryAfter > 0 {
		// Round up so clients never retry before the bucket refills.
		secs := int((info.RetryAfter + time.Second - 1) / time.Second)
		w.Header().Set("Retry-After", strconv.Itoa(secs))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	response.Write(w, http.StatusTooManyRequests,
		response.Error("Rate limit exceeded. Please try again later.", "RATE_LIMIT_EXCEEDED"))
}
