// Package web serves the tasks table: full pages, htmx partials, the view
// state endpoint, CSV export and a JSON API.
package web

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"regexp"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/datatable/internal/config"
	"github.com/JonMunkholm/datatable/internal/core"
	"github.com/JonMunkholm/datatable/internal/viewstate"
	mw "github.com/JonMunkholm/datatable/internal/web/middleware"
)

//go:embed static
var staticFiles embed.FS

// htmxAsset is picked up when a build is vendored into static/.
const htmxAsset = "htmx.min.js"

// Server is the HTTP server of the tasks table.
type Server struct {
	service *core.Service
	views   viewstate.Store
	cfg     *config.Config

	metrics  *mw.Metrics
	limiter  *rateLimiter
	exports  *core.ExportLimiter
	split    *regexp.Regexp
	location *time.Location
	scripts  []string
	now      func() time.Time

	router *chi.Mux

	mu     sync.Mutex
	server *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithMetrics uses m instead of a fresh collector set.
func WithMetrics(m *mw.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithClock overrides the clock date presets are computed from.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// NewServer wires routes and middleware for service and views.
func NewServer(service *core.Service, views viewstate.Store, cfg *config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		service:  service,
		views:    views,
		cfg:      cfg,
		location: cfg.Table.Location(),
		exports:  core.NewExportLimiter(cfg.Table.ExportMaxConcurrent, cfg.Table.ExportMaxWait),
		now:      time.Now,
		router:   chi.NewRouter(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if p := cfg.Table.SplitPattern; p != "" && p != "off" {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile split pattern: %w", err)
		}
		s.split = re
	}
	if s.metrics == nil && cfg.Metrics.Enabled {
		s.metrics = mw.NewMetrics()
	}

	s.setupMiddleware()
	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	if s.metrics != nil {
		s.router.Use(s.metrics.Middleware)
	}
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.limiter = newRateLimiter(s.cfg.Rate.RequestsPerMinute, s.cfg.Rate.Burst, s.cfg.Rate.IdleTTL)
		s.limiter.start()
		s.router.Use(s.limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() error {
	staticFS, err := fs.Sub(staticFiles, "static")
	if err != nil {
		return fmt.Errorf("static files: %w", err)
	}
	if _, err := fs.Stat(staticFS, htmxAsset); err == nil {
		s.scripts = []string{"/static/" + htmxAsset}
	}
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.With(mw.BearerToken(s.cfg.Metrics.Token)).Handle(s.cfg.Metrics.Path, s.metrics.Handler())
	}

	s.router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, tasksPath, http.StatusFound)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(s.session)

		r.Get(tasksPath, s.handleTasks)
		r.Post(tasksPath+"/view", s.handleTasksView)
		r.Get(tasksPath+"/export", s.handleTasksExport)

		r.Route("/api", func(r chi.Router) {
			r.Get("/tasks", s.handleAPITasks)
			r.Get("/tasks/facets", s.handleAPIFacets)
		})
	})
	return nil
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}
	s.mu.Lock()
	s.server = srv
	s.mu.Unlock()

	slog.Info("starting server", "addr", addr)
	return srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.limiter != nil {
		s.limiter.close()
	}
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	return s.exports.Drain(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Metrics returns the server's collectors, nil when metrics are disabled.
func (s *Server) Metrics() *mw.Metrics { return s.metrics }

func (s *Server) stateChange(kind, op string) {
	if s.metrics != nil {
		s.metrics.StateChange(kind, op)
	}
}

// securityHeaders adds security headers to all responses.
func securityHeaders(csp bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if csp {
				h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'")
			}
			next.ServeHTTP(w, r)
		})
	}
}
