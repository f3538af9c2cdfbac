// Package http provides the JSON API over the store, analytics, and advisor.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"bilancio/internal/advisor"
	"bilancio/internal/collection"
	"bilancio/internal/feed"
	applog "bilancio/internal/log"
	"bilancio/internal/session"
	"bilancio/internal/store"
	"bilancio/internal/theme"
)

type Server struct {
	http.Server

	store    store.Store
	hub      *collection.Hub
	sessions *session.Manager
	advisor  *advisor.Service
	themes   *theme.Store
	logger   *applog.Logger

	rateLimiter  *rateLimiter
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. Entity reads and mutations go through per-owner synchronized
// collections kept live by the change feed on bus; the store is only hit
// directly for settings, which have no collection semantics.
func NewServer(addr string, st store.Store, bus feed.Bus, sessions *session.Manager, adv *advisor.Service, themes *theme.Store, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		store:       st,
		hub:         collection.NewHub(st, bus),
		sessions:    sessions,
		advisor:     adv,
		themes:      themes,
		logger:      logger.WithComponent(applog.ComponentHTTP),
		rateLimiter: newRateLimiter(),
	}
	s.Server = http.Server{
		Addr:         addr,
		Handler:      s.middleware(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Theme preference is device-local and needs no session.
	mux.HandleFunc("GET /api/theme", s.handleGetTheme)
	mux.HandleFunc("PUT /api/theme", s.handlePutTheme)

	mux.HandleFunc("GET /api/expenses", s.auth(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.auth(s.handleCreateExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.auth(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.auth(s.handleDeleteExpense))
	mux.HandleFunc("GET /api/expenses/export", s.auth(s.handleExportExpenses))

	mux.HandleFunc("GET /api/payments", s.auth(s.handleListPayments))
	mux.HandleFunc("POST /api/payments", s.auth(s.handleCreatePayment))
	mux.HandleFunc("PUT /api/payments/{id}", s.auth(s.handleUpdatePayment))
	mux.HandleFunc("DELETE /api/payments/{id}", s.auth(s.handleDeletePayment))
	mux.HandleFunc("GET /api/payments/calendar", s.auth(s.handleCalendar))

	mux.HandleFunc("GET /api/categories", s.auth(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.auth(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.auth(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.auth(s.handleDeleteCategory))

	mux.HandleFunc("GET /api/settings", s.auth(s.handleGetSettings))
	mux.HandleFunc("PUT /api/settings", s.auth(s.handleUpdateSettings))

	mux.HandleFunc("GET /api/dashboard", s.auth(s.handleDashboard))
	mux.HandleFunc("GET /api/tips", s.auth(s.handleTip))

	return s
}

// middleware applies the cross-cutting chain: request id, logging context,
// security headers, rate limiting.
func (s *Server) middleware(next http.Handler) http.Handler {
	requestID := applog.RequestIDMiddleware(func(*http.Request) string {
		return generateRequestID()
	})
	withLogger := applog.Middleware(s.logger)

	base := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientIP := extractClientIP(r)
		if !s.rateLimiter.allow(clientIP) {
			s.logger.WarnContext(r.Context(), "Rate limit exceeded",
				applog.FieldClientIP, clientIP, applog.FieldPath, r.URL.Path)
			writeError(w, http.StatusTooManyRequests, "too many requests")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		start := time.Now()
		lw := &loggingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(lw, r)

		applog.FromContext(r.Context()).InfoContext(r.Context(), "Request handled",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, lw.status,
			applog.FieldDuration, time.Since(start).Milliseconds())
	})

	return withLogger(requestID(base))
}

// auth resolves the owner scope from the bearer token and hands it to the
// handler. Every store access downstream is keyed by this owner id.
func (s *Server) auth(handler func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		ownerID, err := s.sessions.OwnerID(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid session")
			return
		}
		handler(w, r, ownerID)
	}
}

// collections resolves the owner's synchronized collection set, answering
// the request with a 500 when the first load cannot complete.
func (s *Server) collections(w http.ResponseWriter, r *http.Request, ownerID string) (*collection.Set, bool) {
	set, err := s.hub.For(r.Context(), ownerID)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Collection load failed",
			applog.FieldOwnerID, ownerID, applog.FieldError, err)
		writeError(w, http.StatusInternalServerError, "could not load data")
		return nil, false
	}
	return set, true
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Shutdown closes every owner collection, stops the rate limiter cleanup and
// drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.hub.Close()
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

type loggingWriter struct {
	http.ResponseWriter
	status int
}

func (w *loggingWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
