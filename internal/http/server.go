package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"coinwise/internal/core"
	"coinwise/internal/insight"
	"coinwise/internal/ledger"
)

type (
	// LedgerService is the server's port onto the ledger use cases.
	LedgerService interface {
		List(ctx context.Context, req ledger.ListRequest) (ledger.ListResult, error)
		Get(ctx context.Context, userID, id string) (core.EnrichedEntry, error)
		Create(ctx context.Context, userID string, e core.Entry) (core.EnrichedEntry, error)
		Update(ctx context.Context, userID, id string, e core.Entry) (core.EnrichedEntry, error)
		Delete(ctx context.Context, userID, id string) error
		Summary(ctx context.Context, userID string, req core.WindowRequest, categoryID string) (core.Summary, error)
	}

	// TaxonomyStore covers category and group CRUD plus the grouped view.
	TaxonomyStore interface {
		ListCategories(ctx context.Context, userID string) ([]core.Category, error)
		GetCategory(ctx context.Context, userID, id string) (core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) (string, error)
		UpdateCategory(ctx context.Context, userID, id string, c core.Category) error
		DeleteCategory(ctx context.Context, userID, id string) error
		ListGroups(ctx context.Context, userID string) ([]core.CategoryGroup, error)
		GetGroup(ctx context.Context, userID, id string) (core.CategoryGroup, error)
		CreateGroup(ctx context.Context, g core.CategoryGroup) (string, error)
		UpdateGroup(ctx context.Context, userID, id string, g core.CategoryGroup) error
		DeleteGroup(ctx context.Context, userID, id string) error
		GroupsWithCategories(ctx context.Context, userID string) ([]core.CategoryGroup, map[string][]core.Category, error)
	}

	// InsightService runs the generation pipeline for one request.
	InsightService interface {
		Generate(ctx context.Context, req insight.Request) (insight.Result, error)
	}
)

type Server struct {
	http.Server
	ledger   LedgerService
	taxonomy TaxonomyStore
	insights InsightService
	ready    func(ctx context.Context) error
	limiter  *requestLimiter

	shutdownOnce sync.Once
}

// NewServer wires the routes and returns a ready-to-run server. The
// ready func backs /readyz; nil means always ready.
func NewServer(addr string, ls LedgerService, ts TaxonomyStore, is InsightService, ready func(ctx context.Context) error) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ledger:   ls,
		taxonomy: ts,
		insights: is,
		ready:    ready,
		limiter:  newRequestLimiter(),
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /transactions", s.guard(s.handleListTransactions))
	mux.HandleFunc("POST /transactions", s.guard(s.handleCreateTransaction))
	mux.HandleFunc("GET /transactions/summary", s.guard(s.handleSummary))
	mux.HandleFunc("GET /transactions/{id}", s.guard(s.handleGetTransaction))
	mux.HandleFunc("PUT /transactions/{id}", s.guard(s.handleUpdateTransaction))
	mux.HandleFunc("DELETE /transactions/{id}", s.guard(s.handleDeleteTransaction))

	mux.HandleFunc("GET /categories", s.guard(s.handleListCategories))
	mux.HandleFunc("POST /categories", s.guard(s.handleCreateCategory))
	mux.HandleFunc("GET /categories/{id}", s.guard(s.handleGetCategory))
	mux.HandleFunc("PUT /categories/{id}", s.guard(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /categories/{id}", s.guard(s.handleDeleteCategory))

	mux.HandleFunc("GET /category-groups", s.guard(s.handleListGroups))
	mux.HandleFunc("POST /category-groups", s.guard(s.handleCreateGroup))
	mux.HandleFunc("GET /category-groups/{id}", s.guard(s.handleGetGroup))
	mux.HandleFunc("PUT /category-groups/{id}", s.guard(s.handleUpdateGroup))
	mux.HandleFunc("DELETE /category-groups/{id}", s.guard(s.handleDeleteGroup))

	mux.HandleFunc("GET /group-with-category", s.guard(s.handleGroupedTaxonomy))

	mux.HandleFunc("GET /ai-insights", s.guard(s.handleInsights))

	return s
}

// Shutdown stops the request limiter sweep and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// guard is the middleware chain for every domain route: security
// headers, request id, per-client throttle, identity, request logging.
func (s *Server) guard(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		if !s.limiter.allow(clientIP) {
			slog.WarnContext(ctx, "Request rate limit exceeded",
				"client_ip", clientIP, "method", r.Method, "url", r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "Too many requests. Please try again later.")
			return
		}

		// The owner comes from the identity header only, never from a
		// query parameter or a request body.
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			writeError(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}
		ctx = context.WithValue(ctx, userIDKey, userID)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			"method", r.Method,
			"url", r.URL.Path,
			"status", rw.statusCode,
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", clientIP,
			"user_id", userID)
	}
}

type contextKey string

const (
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
)

func userID(r *http.Request) string {
	id, _ := r.Context().Value(userIDKey).(string)
	return id
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "Readiness check failed", "error", err)
			writeError(w, http.StatusServiceUnavailable, "not ready")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
