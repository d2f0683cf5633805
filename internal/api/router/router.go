package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/wolfman30/smart-schedule/internal/conversation"
	httpmiddleware "github.com/wolfman30/smart-schedule/internal/http/middleware"
	"github.com/wolfman30/smart-schedule/internal/schedule"
	"github.com/wolfman30/smart-schedule/internal/webchat"
	"github.com/wolfman30/smart-schedule/pkg/logging"
)

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// Config holds the router configuration.
type Config struct {
	Logger             *logging.Logger
	ChatHandler        *conversation.Handler
	WebChatHandler     *webchat.Handler
	ScheduleHandler    *schedule.Handler
	MetricsHandler     http.Handler
	HealthChecks       map[string]HealthCheck
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))

		if cfg.ChatHandler != nil {
			api.Post("/chat", cfg.ChatHandler.Chat)
			api.Delete("/chat/sessions/{sessionID}", cfg.ChatHandler.DeleteSession)
		}
		if cfg.WebChatHandler != nil {
			api.Get("/chat/ws", cfg.WebChatHandler.HandleWebSocket)
		}
		if cfg.ScheduleHandler != nil {
			api.Get("/services", cfg.ScheduleHandler.ListServices)
			api.Get("/appointments/{appointmentID}", cfg.ScheduleHandler.GetAppointment)
		}
	})

	return r
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]any{"status": "ok"}
		deps := map[string]string{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				deps[name] = err.Error()
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				continue
			}
			deps[name] = "ok"
		}
		if len(deps) > 0 {
			body["dependencies"] = deps
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
