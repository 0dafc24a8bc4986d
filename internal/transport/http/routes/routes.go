package routes

import (
	"context"
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/floodline/portal-api/internal/infra/config"
	"github.com/floodline/portal-api/internal/infra/security"
	"github.com/floodline/portal-api/internal/transport/http/handlers"
	"github.com/floodline/portal-api/internal/transport/http/middleware"
	"github.com/floodline/portal-api/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth  *usecase.AuthService
	Reset *usecase.ResetService
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	Signer      *security.SessionSigner
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
	Migrations  MigrationChecker
}

// DatabaseChecker exposes readiness behaviour for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behaviour for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// MigrationChecker reports the applied migration version and whether a
// migration failed partway through.
type MigrationChecker interface {
	Version() (uint, bool, error)
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(deps.Config.CORS.AllowedOrigins))
	r.Use(deps.Metrics.Handler())

	requireAuth := middleware.RequireAuth(deps.Signer, false)

	healthOptions := make([]handlers.HealthOption, 0, 3)
	if deps.Database != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("database", deps.Database.Ping))
	}
	if deps.Cache != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("redis", deps.Cache.HealthCheck))
	}
	if deps.Migrations != nil {
		healthOptions = append(healthOptions, handlers.WithReadinessCheck("migrations", migrationCheck(deps.Migrations)))
	}

	healthHandler := handlers.NewHealthHandler(healthOptions...)
	r.GET("/healthz", healthHandler.Status)
	r.GET("/readyz", healthHandler.Readiness)

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Clients address the surface unprefixed (/users/login, /scripts/reset).
	root := r.Group("")
	{
		userHandler := handlers.NewUserHandler(deps.Services.Auth)
		userHandler.RegisterRoutes(root, requireAuth, buildLoginMiddlewares(deps)...)

		scriptsHandler := handlers.NewScriptsHandler(deps.Services.Reset, deps.Config.Seed.ResetSecret, deps.Logger)
		scriptsHandler.RegisterRoutes(root)
	}

	return r
}

// migrationCheck fails readiness while a partially applied migration leaves
// the schema in an unknown state.
func migrationCheck(migrations MigrationChecker) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, dirty, err := migrations.Version()
		if err != nil {
			return err
		}
		if dirty {
			return errors.New("migration state is dirty")
		}
		return nil
	}
}

func buildLoginMiddlewares(deps Dependencies) []gin.HandlerFunc {
	if deps.RateLimiter == nil || deps.Config == nil {
		return nil
	}

	limit := deps.Config.RateLimit.LoginMaxAttempts
	if limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:   "users_login",
		Limit:  limit,
		Window: window,
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
