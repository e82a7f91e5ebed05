package handler

import (
	"context"
	"net/http"

	"github.com/aditya/rideshare/internal/middleware"
	"github.com/aditya/rideshare/pkg/logger"
	"github.com/aditya/rideshare/pkg/utils"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Log           *logger.Logger
	Auth          *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Idempotency   *middleware.IdempotencyMiddleware
	NewRelic      *newrelic.Application
	HealthChecks  map[string]HealthCheck
	Users         *UserHandler
	Rides         *RideHandler
	Drivers       *DriverHandler
	Payments      *PaymentHandler
	Notifications *NotificationHandler
	Chat          *ChatHandler
	Wallet        *WalletHandler
	Promos        *PromoHandler
	SSE           *SSEHandler
	WS            *WSHandler
}

// NewRouter mounts every handler under /v1. Rate limiting and idempotency are
// skipped when their middleware is nil.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.StripSlashes)
	r.Use(middleware.Recovery(cfg.Log))
	r.Use(middleware.Logger(cfg.Log))
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.IdempotencyHeader},
		ExposedHeaders:   []string{"Link", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.NewRelicMiddleware(cfg.NewRelic))

	r.Get("/health", health(cfg.HealthChecks))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Handler)
			}
			cfg.Users.RegisterPublicRoutes(r)
		})

		r.Group(func(r chi.Router) {
			r.Use(cfg.Auth.Authenticate)
			if cfg.RateLimiter != nil {
				r.Use(cfg.RateLimiter.Handler)
			}
			if cfg.Idempotency != nil {
				r.Use(cfg.Idempotency.Handler)
			}

			cfg.Users.RegisterRoutes(r)
			cfg.Rides.RegisterRoutes(r)
			cfg.Drivers.RegisterRoutes(r)
			cfg.Payments.RegisterRoutes(r)
			cfg.Notifications.RegisterRoutes(r)
			cfg.Chat.RegisterRoutes(r)
			cfg.Wallet.RegisterRoutes(r)
			cfg.Promos.RegisterRoutes(r)
			cfg.SSE.RegisterRoutes(r)
			cfg.WS.RegisterRoutes(r)
		})
	})

	return r
}

func health(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		services := make(map[string]string, len(checks))
		status := http.StatusOK
		for name, check := range checks {
			if err := check(r.Context()); err != nil {
				services[name] = "down"
				status = http.StatusServiceUnavailable
				continue
			}
			services[name] = "up"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		utils.JSON(w, status, map[string]interface{}{
			"status":   overall,
			"services": services,
		})
	}
}
