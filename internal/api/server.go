// Package api exposes the detection pipeline and run history over HTTP.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/sells-group/hotspot-cli/internal/config"
	"github.com/sells-group/hotspot-cli/internal/hotspot"
	"github.com/sells-group/hotspot-cli/internal/store"
)

// Server holds the handler dependencies and router configuration.
type Server struct {
	detect  hotspot.Options
	store   store.Store // nil when persistence is not configured
	limiter *rate.Limiter
	origins []string
}

// New creates a Server. The store may be nil, in which case detection
// responses are not persisted and the run endpoints return 503.
func New(cfg config.ServerConfig, detect hotspot.Options, st store.Store) *Server {
	var origins []string
	if cfg.AllowedOrigins != "" {
		for _, o := range strings.Split(cfg.AllowedOrigins, ",") {
			origins = append(origins, strings.TrimSpace(o))
		}
	}
	return &Server{
		detect:  detect,
		store:   st,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		origins: origins,
	}
}

// Router assembles the chi router with CORS, rate limiting, and recovery
// middleware in front of the versioned routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.origins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}
	r.Use(s.rateLimit)

	r.Get("/health", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/detect", s.handleDetect)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{runID}", s.handleGetRun)
		r.Get("/runs/{runID}/results", s.handleGetResults)
	})

	return r
}

// rateLimit rejects requests beyond the configured token bucket with 429.
func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}
