// Package web provides the HTTP server for the lead sync service: health,
// enquiry listing, manual sync and the live outcome feed.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/leadsync/internal/config"
	"github.com/JonMunkholm/leadsync/internal/core"
	custommw "github.com/JonMunkholm/leadsync/internal/web/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const defaultRequestTimeout = 60 * time.Second

// Syncer runs cycles on demand and remembers the last report.
type Syncer interface {
	SyncNow(ctx context.Context) (core.CycleReport, error)
	LastReport() (core.CycleReport, bool)
}

// LeadLister lists stored leads, newest first.
type LeadLister interface {
	ListLeads(ctx context.Context, limit int) ([]core.Lead, error)
}

// Pinger checks the database.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators the server routes to.
type Deps struct {
	Syncer Syncer
	Leads  LeadLister
	DB     Pinger
	Live   http.Handler // websocket outcome feed, optional
	Logger *slog.Logger
}

// Server is the HTTP server for the lead sync service.
type Server struct {
	cfg     *config.Config
	deps    Deps
	logger  *slog.Logger
	router  *chi.Mux
	server  *http.Server
	limiter *rateLimiter
	syncLim *rateLimiter
}

// NewServer creates a new Server instance.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.Syncer == nil || deps.Leads == nil || deps.DB == nil {
		return nil, errors.New("web: syncer, lead lister and db are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	trusted, err := cfg.Security.TrustedNets()
	if err != nil {
		return nil, fmt.Errorf("web: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		router: chi.NewRouter(),
	}
	s.setupMiddleware(trusted)
	s.setupRoutes()
	return s, nil
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(trusted []*net.IPNet) {
	s.router.Use(middleware.RequestID)
	s.router.Use(custommw.TrustedRealIP(trusted))
	s.router.Use(custommw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.Security.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key", "X-Request-Id"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.limiter = newRateLimiter(s.cfg.Rate.RequestsPerMinute, rateWindow)
		s.router.Use(s.limiter.middleware)
		s.syncLim = newRateLimiter(s.cfg.Rate.SyncLimit, rateWindow)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	// The websocket feed is long-lived, so it stays outside the request timeout.
	if s.deps.Live != nil {
		s.router.Handle("/ws", s.deps.Live)
	}

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.requestTimeout()))

		r.Get("/health", s.handleHealth)
		r.Get("/enquiries", s.handleListEnquiries)
		r.Get("/enquiries/view", s.handleEnquiriesView)

		r.Route("/api", func(r chi.Router) {
			r.Get("/sync/last", s.handleLastReport)

			r.Group(func(r chi.Router) {
				r.Use(custommw.APIKeyAuth(&s.cfg.Security))
				if s.syncLim != nil {
					r.Use(s.syncLim.middleware)
				}
				r.Post("/sync", s.handleSync)
			})
		})
	})
}

func (s *Server) requestTimeout() time.Duration {
	if s.cfg.Server.RequestTimeout <= 0 {
		return defaultRequestTimeout
	}
	return s.cfg.Server.RequestTimeout
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	addr := s.cfg.Server.Addr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout, // 0 keeps websockets open
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.logger.Info("starting server", "addr", addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.stop()
	}
	if s.syncLim != nil {
		s.syncLim.stop()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Prevent MIME type sniffing
			w.Header().Set("X-Content-Type-Options", "nosniff")

			// Prevent clickjacking
			w.Header().Set("X-Frame-Options", "DENY")

			if enableCSP {
				// The enquiry view carries its own inline style and feed script.
				w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; connect-src 'self' ws: wss:")
			}

			// Control referrer information
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

// writeError writes a JSON error response with a code-free message.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"error":%q}`, sanitizeErrorMessage(message))
}

// sanitizeErrorMessage keeps only the first line of message so stack
// traces and SQL never reach a client.
func sanitizeErrorMessage(message string) string {
	if i := strings.IndexAny(message, "\r\n"); i >= 0 {
		message = message[:i]
	}
	return strings.TrimSpace(message)
}

// writeJSON encodes v as JSON and writes it to w with the given status.
// Encoding errors are only logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
