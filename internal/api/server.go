// Package api exposes the gateway's HTTP surface: flag evaluation routes,
// health, per-provider diagnostics, and static mounts for the on-disk flag
// documents.
package api

import (
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"

	"github.com/flagmux/flagmux/internal/config"
	"github.com/flagmux/flagmux/internal/router"
	"github.com/flagmux/flagmux/internal/telemetry"
)

type Server struct {
	log zerolog.Logger
	cfg *config.Config
	reg *router.Registry
}

func NewServer(cfg *config.Config, reg *router.Registry, log zerolog.Logger) *Server {
	return &Server{log: log, cfg: cfg, reg: reg}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	r.Use(s.requestLogger)
	r.Use(telemetry.Middleware)

	// Dev-grade CORS: a single trusted frontend origin, credentials allowed.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{s.cfg.FrontendOrigin},
		AllowedMethods:   []string{"GET", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(httprate.LimitByIP(s.cfg.RateLimitPerIP, time.Minute))

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", s.handleHealthz)
		r.Get("/flags", s.handleFlags)
		r.Get("/hello", s.handleHello)
		r.Get("/secret", s.handleSecret)

		r.Route("/diag", func(r chi.Router) {
			r.Get("/segment-online", s.handleDiagSegmentOnline)
			r.Get("/targeting-online", s.handleDiagTargetingOnline)
			r.Get("/targeting-file", s.handleDiagTargetingFile)
			r.Get("/targeting-file-hash", s.handleDiagTargetingFileHash)
		})
	})

	// The on-disk documents double as static fixtures for browser SDK demos.
	mountStatic(r, "/static/simple", filepath.Dir(s.cfg.SimpleFlagsFile))
	mountStatic(r, "/static/segment", filepath.Dir(s.cfg.SegmentEnvFile))

	return r
}

func mountStatic(r chi.Router, prefix, dir string) {
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	r.Get(prefix+"/*", fs.ServeHTTP)
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}
