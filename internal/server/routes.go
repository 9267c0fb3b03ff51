package server

import (
	"os"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/stationlink/stationlink/internal/config"
	"github.com/stationlink/stationlink/internal/observability"
	"github.com/stationlink/stationlink/internal/server/handlers"
)

// AdminTokenEnv enables POST /admin/signal when set.
const AdminTokenEnv = config.EnvPrefix + "_ADMIN_TOKEN"

// registerRoutes registers all HTTP routes
func (s *Server) registerRoutes() {
	// Health probes
	s.router.Get("/health", handlers.HealthHandler)
	s.router.Get("/health/live", handlers.LivenessHandler)
	s.router.Get("/health/ready", handlers.ReadinessHandler)
	s.router.Get("/health/startup", handlers.StartupHandler)

	// Version endpoint
	s.router.Get("/version", handlers.VersionHandler)

	// Prometheus exporter output on the API port
	s.router.Get("/metrics", MetricsHandler)

	s.router.Route("/v3", func(r chi.Router) {
		if s.deps.Servers != nil {
			r.Get("/server", handlers.ServerStatusHandler(s.deps.Servers))
		}
		if s.deps.Patrons != nil {
			r.Get("/discord/patrons", handlers.PatronsHandler(s.deps.Patrons))
			r.Get("/discord/patrons/{id}", handlers.PatronHandler(s.deps.Patrons))
		}
		r.Get("/ratelimits", handlers.RateLimitsHandler(s.deps.RateLimits...))
	})

	s.registerAdminEndpoint()
}

// registerAdminEndpoint exposes signal delivery (shutdown, reload) over HTTP
// behind a bearer token.
func (s *Server) registerAdminEndpoint() {
	adminToken := os.Getenv(AdminTokenEnv)
	logger := observability.ServerLogger

	if adminToken == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled (no " + AdminTokenEnv + " set)")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: adminToken,
		RateLimit: 10, // requests per minute
		RateBurst: 5,
		Manager:   nil, // default global manager
	})
	s.router.Post("/admin/signal", handler.ServeHTTP)

	if logger != nil {
		logger.Warn("Admin signal endpoint enabled; do not expose this server publicly",
			zap.String("path", "/admin/signal"))
	}
}
