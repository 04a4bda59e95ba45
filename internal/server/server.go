// Package server provides the HTTP API over a principal's remote store.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/career-atoms/internal/config"
	"github.com/jonathan/career-atoms/internal/importer"
	"github.com/jonathan/career-atoms/internal/migration"
	"github.com/jonathan/career-atoms/internal/server/middleware"
	"github.com/jonathan/career-atoms/internal/server/ratelimit"
	"github.com/jonathan/career-atoms/internal/session"
)

// maxBackupBytes bounds the size of an uploaded backup document.
const maxBackupBytes = 10 << 20

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	provisioner migration.Provisioner
	importer    *importer.Importer
	jwtService  *JWTService
	rateLimiter *ratelimit.Limiter
	logger      *zap.Logger

	mu       sync.Mutex
	sessions map[string]*session.Session
}

// Config holds server configuration
type Config struct {
	Port              int
	Provisioner       migration.Provisioner
	JWT               *config.JWTConfig
	RateLimit         *ratelimit.Config
	ImportConcurrency int
	Logger            *zap.Logger
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	if cfg.Provisioner == nil {
		return nil, fmt.Errorf("server requires a provisioner")
	}
	if cfg.JWT == nil {
		return nil, fmt.Errorf("server requires a JWT configuration")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	rateLimit := cfg.RateLimit
	if rateLimit == nil {
		rateLimit = ratelimit.LoadConfig()
	}

	s := &Server{
		provisioner: cfg.Provisioner,
		importer:    importer.New(logger, importer.WithConcurrency(cfg.ImportConcurrency)),
		jwtService:  NewJWTService(cfg.JWT),
		rateLimiter: ratelimit.NewLimiter(rateLimit),
		logger:      logger,
		sessions:    make(map[string]*session.Session),
	}

	auth := middleware.AuthMiddleware(s.jwtService.AsTokenValidator())
	protected := func(h http.HandlerFunc) http.Handler {
		return auth(s.withRateLimit(h))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /health", s.withRateLimit(http.HandlerFunc(s.handleHealth)))

	// Provisioning
	mux.Handle("GET /v1/store/status", protected(s.handleStoreStatus))
	mux.Handle("POST /v1/store/provision", protected(s.handleProvision))

	// Backup documents
	mux.Handle("GET /v1/backup/schema", s.withRateLimit(http.HandlerFunc(s.handleBackupSchema)))
	mux.Handle("GET /v1/backup", protected(s.handleExport))
	mux.Handle("POST /v1/backup", protected(s.handleImport))
	mux.Handle("DELETE /v1/data", protected(s.handleClear))

	// Read endpoints
	mux.Handle("GET /v1/profile", protected(s.handleGetProfile))
	mux.Handle("GET /v1/jobs", protected(s.handleListJobs))
	mux.Handle("GET /v1/jobs/{id}", protected(s.handleGetJob))
	mux.Handle("GET /v1/highlights", protected(s.handleListHighlights))
	mux.Handle("GET /v1/highlights/{id}", protected(s.handleGetHighlight))

	s.handler = s.withLogging(s.withCORS(mux))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start serves until ctx is cancelled or the process receives SIGINT or SIGTERM,
// then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.Close()
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.Close()
	s.logger.Info("server stopped")
	return nil
}

// Close stops the rate limiter and closes every open principal session.
func (s *Server) Close() {
	s.rateLimiter.Stop()

	s.mu.Lock()
	defer s.mu.Unlock()
	for principal, sess := range s.sessions {
		if err := sess.Close(); err != nil {
			s.logger.Warn("failed to close session", zap.String("principal", principal), zap.Error(err))
		}
		delete(s.sessions, principal)
	}
}

// sessionFor returns the principal's session, created on first use. Sessions live
// until the server closes so the remote store handle is reused across requests.
func (s *Server) sessionFor(principal string) *session.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[principal]
	if !ok {
		sess = session.New(principal, nil, s.provisioner, s.logger)
		s.sessions[principal] = sess
	}
	return sess
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withRateLimit limits requests per principal, or per client IP when the request is
// not authenticated.
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		allowed, info := s.rateLimiter.Allow(s.extractClientID(r), r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
			zap.Int("status", rec.status),
			zap.Duration("duration", time.Since(start)))
	})
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Warn("failed to encode JSON response", zap.Error(err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// storeError maps err to a status code and writes it. Server errors are logged and
// their details withheld from the client.
func (s *Server) storeError(w http.ResponseWriter, r *http.Request, err error) {
	status := HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		if status == http.StatusInternalServerError {
			s.errorResponse(w, status, "internal error")
			return
		}
	}
	s.errorResponse(w, status, err.Error())
}

// extractClientID returns the authenticated principal, falling back to the IP
// address from RemoteAddr.
func (s *Server) extractClientID(r *http.Request) string {
	if principal, err := middleware.GetPrincipal(r); err == nil {
		return principal
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(info.ResetTime.Unix(), 10))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Seconds()) + 1
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", strconv.Itoa(seconds))
	}

	s.logger.Warn("rate limit exceeded",
		zap.Int("limit", info.Limit),
		zap.Time("reset_at", info.ResetTime))
	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
