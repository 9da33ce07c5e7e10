package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"example.com/lazywalker/internal/auth"
)

// RouterConfig tunes the middleware stack.
type RouterConfig struct {
	CORSOrigin     string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// NewRouter mounts the handler behind the shared middleware stack. Probes and
// /metrics are public; everything under /v1 requires a bearer token.
func NewRouter(h *Handler, authMW auth.Middleware, cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(corsMiddleware(cfg.CORSOrigin))

	r.Get("/healthz", healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authMW.Wrap)
		h.RegisterRoutes(r)
	})
	return r
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
