// Package http serves the folio JSON API and the dashboard page.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"folio/internal/backend"
	flog "folio/internal/log"
	"folio/internal/services"
	appweb "folio/web"
)

const (
	defaultRequestTimeout = 15 * time.Second
	maxBodyBytes          = 1 << 20
)

// StorageDescriber reports where records are stored.
type StorageDescriber interface {
	Describe(ctx context.Context) (backend.Info, error)
}

type Server struct {
	http.Server
	portfolio      *services.Portfolio
	storage        StorageDescriber
	templates      *template.Template
	rateLimiter    *rateLimiter
	logger         *flog.Logger
	requestTimeout time.Duration
	started        time.Time
	suspicious     atomic.Int64
	shutdownOnce   sync.Once
}

type Option func(*Server)

// WithRequestTimeout bounds every store call made by a handler.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) { s.requestTimeout = d }
}

// WithRateLimit sets how many mutating requests a client may send per minute.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) { s.rateLimiter.limit = perMinute }
}

func WithLogger(l *flog.Logger) Option {
	return func(s *Server) { s.logger = l.WithComponent(flog.ComponentHTTP) }
}

// NewServer configures routes and templates, returning a ready-to-run server.
// Amounts are encoded as JSON numbers only when the binary sets
// decimal.MarshalJSONWithoutQuotes.
func NewServer(addr string, portfolio *services.Portfolio, storage StorageDescriber, opts ...Option) *Server {
	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		portfolio:      portfolio,
		storage:        storage,
		rateLimiter:    newRateLimiter(60),
		logger:         flog.New(flog.DefaultConfig()).WithComponent(flog.ComponentHTTP),
		requestTimeout: defaultRequestTimeout,
		started:        time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", flog.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", flog.FieldError, err)
	}

	mux.HandleFunc("GET /{$}", s.handleDashboardPage)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("GET /api/investments/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/investments/accounts", s.handleCreateAccount)
	mux.HandleFunc("PUT /api/investments/accounts/{id}", s.handleUpdateAccount)
	mux.HandleFunc("DELETE /api/investments/accounts/{id}", s.handleDeleteAccount)

	mux.HandleFunc("GET /api/investments/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/investments/transactions", s.handleCreateTransaction)
	mux.HandleFunc("DELETE /api/investments/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/investments/valuations", s.handleListValuations)
	mux.HandleFunc("POST /api/investments/valuations", s.handleCreateValuation)
	mux.HandleFunc("PUT /api/investments/valuations/{id}", s.handleUpdateValuation)

	mux.HandleFunc("GET /api/investments/config", s.handleGetConfig)
	mux.HandleFunc("POST /api/investments/config", s.handleSetConfig)

	mux.HandleFunc("GET /api/investments/types", s.handleAccountTypes)
	mux.HandleFunc("GET /api/investments/platforms", s.handlePlatforms)
	mux.HandleFunc("GET /api/investments/storage", s.handleStorage)
	mux.HandleFunc("POST /api/investments/reset", s.handleReset)

	mux.HandleFunc("GET /api/dashboard/summary", s.handleSummary)
	mux.HandleFunc("GET /api/dashboard/history.png", s.handleHistoryChart)
	mux.HandleFunc("GET /api/dashboard/allocation.png", s.handleAllocationChart)

	s.Handler = s.withSecurityHeaders(mux)
	return s
}

// Shutdown stops the rate limiter cleanup and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// withSecurityHeaders adds security headers, rate limiting of mutating
// requests and request logging.
func (s *Server) withSecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		remote := clientIP(r)
		requestID := generateRequestID()

		logger := s.logger.With(flog.FieldRequestID, requestID)
		ctx := flog.NewContext(r.Context(), logger)
		r = r.WithContext(ctx)
		flog.HTTPStart(ctx, r, remote)

		if isSuspicious(r) {
			s.suspicious.Add(1)
			logger.WarnContext(ctx, "Suspicious request", flog.FieldClientIP, remote, flog.FieldPath, r.URL.Path)
		}

		if isMutating(r.Method) && !s.rateLimiter.allow(remote) {
			logger.WarnContext(ctx, "Rate limit exceeded", flog.FieldClientIP, remote, flog.FieldMethod, r.Method, flog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeJSON(w, http.StatusTooManyRequests, errorBody{Error: "rate limit exceeded, try again later"})
			return
		}

		w.Header().Set("X-Request-ID", requestID)
		setSecurityHeaders(w.Header())

		if r.Body != nil {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		flog.HTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), remote)
	})
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func generateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

// storeContext bounds a handler's store calls.
func (s *Server) storeContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), s.requestTimeout)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that templates are loaded and the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]any{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if _, err := s.portfolio.Config(ctx); err != nil {
		checks["store"] = fmt.Sprintf("failed: %v", err)
		status, code = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["store"] = "ok"
	}

	checks["rate_limiter"] = map[string]any{"active_clients": s.rateLimiter.activeClients()}
	checks["suspicious_requests"] = s.suspicious.Load()

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
