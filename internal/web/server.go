// Package web provides the HTTP server for document conversion.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/JonMunkholm/docconvert/internal/config"
	"github.com/JonMunkholm/docconvert/internal/core"
	mw "github.com/JonMunkholm/docconvert/internal/web/middleware"
)

// Deps are the collaborators a Server is built from.
type Deps struct {
	// Registry holds the converters. Required.
	Registry *core.Registry
	// History records finished conversions. Defaults to core.NopHistory.
	History core.HistoryStore
}

// Server is the HTTP server for the conversion service.
type Server struct {
	cfg        *config.Config
	registry   *core.Registry
	dispatcher *core.Dispatcher
	limiter    *core.Limiter
	history    core.HistoryStore

	router *chi.Mux
	server *http.Server

	stopJanitors context.CancelFunc
}

// NewServer creates a Server with middleware and routes configured.
func NewServer(cfg *config.Config, deps Deps) *Server {
	history := deps.History
	if history == nil {
		history = core.NopHistory{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:          cfg,
		registry:     deps.Registry,
		dispatcher:   core.NewDispatcher(deps.Registry),
		limiter:      core.NewLimiter(cfg.Convert.MaxConcurrent, cfg.Convert.MaxWaitTime),
		history:      history,
		router:       chi.NewRouter(),
		stopJanitors: cancel,
	}
	s.setupMiddleware(ctx)
	s.setupRoutes(ctx)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(ctx context.Context) {
	s.router.Use(middleware.RequestID)
	s.router.Use(mw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(mw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if len(s.cfg.Security.AllowedOrigins) > 0 {
		s.router.Use(cors.New(cors.Options{
			AllowedOrigins: s.cfg.Security.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Origin", "Content-Type", "Accept"},
			ExposedHeaders: []string{"Content-Disposition", mw.ConversionIDHeader, "Retry-After"},
			MaxAge:         600,
		}).Handler)
	}

	if s.cfg.Rate.Enabled {
		general := newRateLimiter(s.cfg.Rate.RequestsPerMinute, s.cfg.Rate.Burst)
		go general.run(ctx)
		s.router.Use(general.middleware)
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes(ctx context.Context) {
	s.router.Get("/healthz", s.handleHealth)

	// Conversions stream for as long as they need; CONVERT_TIMEOUT bounds
	// them instead of the request timeout.
	s.router.Group(func(r chi.Router) {
		if s.cfg.Rate.Enabled {
			convert := newRateLimiter(s.cfg.Rate.ConvertLimit, s.cfg.Rate.Burst)
			go convert.run(ctx)
			r.Use(convert.middleware)
		}
		r.Post("/convert/{outputFormat}", s.handleConvert)
		r.Post("/convertToPdf", s.handleConvertToPDF)
	})

	s.router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
		r.Use(middleware.Compress(5))

		r.Get("/", s.handleIndex)
		r.Route("/api", func(r chi.Router) {
			r.Get("/formats", s.handleFormats)
			r.Get("/status", s.handleStatus)
			r.Get("/history", s.handleHistory)
		})
	})
}

// Start listens on the configured address until Shutdown is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.cfg.Server.Addr(),
		Handler:           s.router,
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// WaitForConversions blocks until no conversion is running or ctx is done.
func (s *Server) WaitForConversions(ctx context.Context) error {
	if active := s.limiter.ActiveCount(); active > 0 {
		slog.Info("waiting for conversions to finish", "active", active)
	}
	return s.limiter.WaitForDrain(ctx)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stopJanitors()
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
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			if enableCSP {
				w.Header().Set("Content-Security-Policy",
					"default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "path", r.URL.Path, "error", err)
	}
}
