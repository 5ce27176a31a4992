package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/klinikai/internal/appointments"
	"github.com/wolfman30/klinikai/internal/assistant"
	"github.com/wolfman30/klinikai/internal/clinics"
	httpmiddleware "github.com/wolfman30/klinikai/internal/http/middleware"
	"github.com/wolfman30/klinikai/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ClinicsHandler      *clinics.Handler
	AppointmentsHandler *appointments.Handler
	ChatHandler         *assistant.Handler
	// ChatWSHandler is optional; it needs Redis for session history.
	ChatWSHandler      *assistant.WSHandler
	Health             *HealthHandler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
	// DashboardJWTSecret verifies dashboard bearer tokens. When empty every
	// dashboard request is rejected.
	DashboardJWTSecret string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	health := cfg.Health
	if health == nil {
		health = NewHealthHandler(nil)
	}
	r.Get("/health", health.ServeHTTP)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimiter != nil {
			api.Use(httpmiddleware.RateLimit(cfg.RateLimiter))
		}

		if cfg.ChatHandler != nil {
			api.Post("/chat", cfg.ChatHandler.Chat)
		}
		if cfg.ChatWSHandler != nil {
			api.Get("/chat/ws", cfg.ChatWSHandler.Serve)
		}
		if cfg.ClinicsHandler != nil {
			api.Post("/clinic-recommendations", cfg.ClinicsHandler.Recommend)
		}
		if cfg.AppointmentsHandler != nil {
			api.Post("/book-appointment", cfg.AppointmentsHandler.Book)

			api.Route("/dashboard", func(dash chi.Router) {
				dash.Use(httpmiddleware.DashboardJWT(cfg.DashboardJWTSecret))
				dash.Get("/appointments", cfg.AppointmentsHandler.List)
				dash.Get("/export", cfg.AppointmentsHandler.Export)
				dash.Patch("/appointments/{id}/status", cfg.AppointmentsHandler.UpdateStatus)
			})
		}
	})

	return r
}
