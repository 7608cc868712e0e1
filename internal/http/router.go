package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimid "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	Rooms  *RoomHandler
	Users  *UserHandler
	Health *HealthHandler
	Logger *slog.Logger

	// CreateLimit and JoinLimit guard room creation and joining. Nil disables them.
	CreateLimit func(http.Handler) http.Handler
	JoinLimit   func(http.Handler) http.Handler

	EnableMetrics bool
	Middleware    []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimid.RequestID)
	r.Use(chimid.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(chimid.Recoverer)
	if cfg.EnableMetrics {
		r.Use(PrometheusMiddleware)
	}
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	if cfg.Health != nil {
		r.Get("/health", cfg.Health.Get)
	}
	if cfg.EnableMetrics {
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		if cfg.Rooms != nil {
			r.Route("/rooms", func(r chi.Router) {
				r.With(orNoop(cfg.CreateLimit)).Post("/", cfg.Rooms.Create)
				r.Get("/", cfg.Rooms.Get)
				r.Patch("/", cfg.Rooms.Update)
				r.Post("/draw", cfg.Rooms.Draw)
			})
		}
		if cfg.Users != nil {
			r.Route("/users", func(r chi.Router) {
				r.Get("/", cfg.Users.List)
				r.With(orNoop(cfg.JoinLimit)).Post("/", cfg.Users.Join)
				r.Get("/{id}", cfg.Users.Get)
				r.Delete("/{id}", cfg.Users.Delete)
			})
		}
	})

	return r
}

func orNoop(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return noopMiddleware
	}
	return mw
}
