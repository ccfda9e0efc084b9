package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/sashasoft90/c3po/internal/core/domain"
	"github.com/sashasoft90/c3po/internal/infra/config"
	"github.com/sashasoft90/c3po/internal/transport/http/handlers"
	"github.com/sashasoft90/c3po/internal/transport/http/middleware"
	"github.com/sashasoft90/c3po/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth         *usecase.AuthService
	Users        *usecase.UserService
	Appointments *usecase.AppointmentService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Services    ServiceSet
	Metrics     *middleware.HTTPMetrics
	Database    DatabaseChecker
	Cache       CacheChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.App.AllowedOrigins))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	var healthChecks []handlers.ReadinessCheck
	if deps.Database != nil {
		healthChecks = append(healthChecks, handlers.ReadinessCheck{Name: "postgres", Probe: deps.Database.Ping})
	}
	if deps.Cache != nil {
		healthChecks = append(healthChecks, handlers.ReadinessCheck{Name: "redis", Probe: deps.Cache.HealthCheck})
	}

	healthHandler := handlers.NewHealthHandler(healthChecks...)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.RequireAuth(deps.Services.Auth, deps.Services.Users)
	adminOnly := middleware.RequireRole(domain.RoleAdmin)

	api := r.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(deps.Services.Auth, deps.Services.Users)
		authHandler.RegisterRoutes(api.Group("/auth"), authMiddleware, buildAuthRateLimits(deps))

		userHandler := handlers.NewUserHandler(deps.Services.Users)
		userGroup := api.Group("/users")
		userGroup.Use(authMiddleware)
		userHandler.RegisterRoutes(userGroup, adminOnly)

		appointmentHandler := handlers.NewAppointmentHandler(deps.Services.Appointments)
		appointmentGroup := api.Group("/appointments")
		appointmentGroup.Use(authMiddleware)
		appointmentHandler.RegisterRoutes(appointmentGroup)
	}

	return r
}

// buildAuthRateLimits assembles the per-endpoint fixed-window rules keyed by
// route name. Endpoints with a non-positive limit are left unthrottled.
func buildAuthRateLimits(deps Dependencies) map[string]gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	limits := map[string]int{
		"login":    deps.Config.RateLimit.LoginMaxAttempts,
		"register": deps.Config.RateLimit.RegisterMaxAttempts,
		"refresh":  deps.Config.RateLimit.RefreshMaxAttempts,
	}

	out := make(map[string]gin.HandlerFunc, len(limits))
	for name, limit := range limits {
		if limit <= 0 {
			continue
		}
		out[name] = deps.RateLimiter.RateLimit(middleware.RateLimitRule{
			Name:       "auth_" + name + "_ip",
			Limit:      limit,
			Window:     window,
			Identifier: middleware.ClientIPIdentifier(),
		})
	}

	return out
}
