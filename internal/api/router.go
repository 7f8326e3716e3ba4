package api

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/smartfill/smartfill/internal/api/handlers"
	"github.com/smartfill/smartfill/internal/api/middleware"
	"github.com/smartfill/smartfill/internal/autofill"
	"github.com/smartfill/smartfill/internal/learning"
	"github.com/smartfill/smartfill/internal/messaging"
	"github.com/smartfill/smartfill/internal/observability"
	"github.com/smartfill/smartfill/internal/panel"
	"github.com/smartfill/smartfill/internal/profile"
	"github.com/smartfill/smartfill/internal/resilience"
	"github.com/smartfill/smartfill/pkg/httputil"
)

// HealthCheck reports whether a dependency is usable
type HealthCheck func(ctx context.Context) error

// Router holds the HTTP router and its dependencies
type Router struct {
	chi.Router
	Pages  *handlers.PageHandler
	logger *zap.Logger
}

// RouterConfig contains configuration for the router
type RouterConfig struct {
	Profiles   *profile.Service
	DemoSource profile.Source
	Panel      *panel.Panel
	Filler     *autofill.Filler
	Learner    *learning.Learner
	Dispatcher *messaging.Dispatcher
	// History serves /api/v1/profile/history when set
	History   handlers.HistorySource
	ProfileID string

	// Checks are probed by /ready. Any failure makes the service not ready.
	Checks map[string]HealthCheck
	// Breaker state of the advice client, reported by /ready but never
	// failing it.
	Breaker *resilience.Breaker

	Limiter        middleware.Limiter
	RateLimit      int
	Metrics        *observability.Metrics
	Logger         *zap.Logger
	EnableCORS     bool
	CORSOrigins    []string
	MaxRequestSize int64
	PageTextLimit  int
	RequestTimeout time.Duration
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = messaging.NewDispatcher(cfg.Logger)
	}

	r := chi.NewRouter()

	// Base middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware(cfg.Logger).Handler)
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Handler)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.HTTPMiddleware)
	}
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	// CORS configuration
	if cfg.EnableCORS {
		origins := cfg.CORSOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
			MaxAge:         300,
		}))
	}

	// Rate limiting (if Redis is available)
	if cfg.Limiter != nil && cfg.RateLimit > 0 {
		r.Use(middleware.NewRateLimitMiddleware(cfg.Limiter, cfg.RateLimit, true, cfg.Logger).Handler)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.JSONError(w, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.JSONError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	// Health check endpoints
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(cfg.Checks, cfg.Breaker))
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics.Handler())
	}

	profileHandler := handlers.NewProfileHandler(cfg.Profiles, cfg.DemoSource, cfg.MaxRequestSize, cfg.Logger)
	pageHandler := handlers.NewPageHandler(handlers.PageHandlerConfig{
		Panel:     cfg.Panel,
		Filler:    cfg.Filler,
		Profiles:  cfg.Profiles,
		TextLimit: cfg.PageTextLimit,
		MaxBody:   cfg.MaxRequestSize,
		Metrics:   cfg.Metrics,
		Logger:    cfg.Logger,
	})
	observationHandler := handlers.NewObservationHandler(cfg.Learner, cfg.MaxRequestSize, cfg.Logger)
	messageHandler := handlers.NewMessageHandler(cfg.Dispatcher, cfg.Logger)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/profile", func(r chi.Router) {
			r.Get("/", profileHandler.Get)
			r.Put("/", profileHandler.Update)
			r.Get("/demo", profileHandler.GetDemo)
			r.Post("/demo", profileHandler.ReloadDemo)
			if cfg.History != nil {
				r.Get("/history", handlers.NewHistoryHandler(cfg.History, cfg.ProfileID, cfg.Logger).List)
			}
		})

		r.Route("/pages", func(r chi.Router) {
			r.Post("/analyze", pageHandler.Analyze)
			r.Post("/autofill", pageHandler.Autofill)
		})

		r.Route("/panel", func(r chi.Router) {
			r.Get("/", pageHandler.Panel)
			r.Post("/toggle", pageHandler.TogglePanel)
			r.Post("/answer/toggle", pageHandler.ToggleAnswer)
			r.Get("/why", pageHandler.Why)
		})

		r.Post("/observations", observationHandler.Create)
		r.Post("/messages", messageHandler.Create)
	})

	return &Router{
		Router: r,
		Pages:  pageHandler,
		logger: cfg.Logger,
	}
}

// healthHandler returns basic health status
func healthHandler(w http.ResponseWriter, r *http.Request) {
	httputil.JSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "smartfill-api",
	})
}

// readyHandler checks if all dependencies are ready
func readyHandler(checks map[string]HealthCheck, breaker *resilience.Breaker) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		results := make(map[string]string, len(names)+1)
		allHealthy := true

		for _, name := range names {
			if err := checks[name](ctx); err != nil {
				results[name] = "unhealthy: " + err.Error()
				allHealthy = false
			} else {
				results[name] = "healthy"
			}
		}

		if breaker != nil {
			results["advice"] = "circuit " + breaker.State().String()
		} else {
			results["advice"] = "local"
		}

		status := http.StatusOK
		statusText := "ready"
		if !allHealthy {
			status = http.StatusServiceUnavailable
			statusText = "not ready"
		}

		httputil.JSON(w, status, map[string]any{
			"status": statusText,
			"checks": results,
		})
	}
}
