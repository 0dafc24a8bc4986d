package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/floodline/portal-api/internal/infra/config"
	"github.com/floodline/portal-api/internal/infra/database"
	"github.com/floodline/portal-api/internal/infra/logger"
	redisinfra "github.com/floodline/portal-api/internal/infra/redis"
	"github.com/floodline/portal-api/internal/infra/security"
	postgresrepo "github.com/floodline/portal-api/internal/repository/postgres"
	redisrepo "github.com/floodline/portal-api/internal/repository/redis"
	"github.com/floodline/portal-api/internal/transport/http/middleware"
	"github.com/floodline/portal-api/internal/transport/http/routes"
	"github.com/floodline/portal-api/internal/usecase"
)

// Application owns the wired service graph and the HTTP server lifecycle.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	migrator *database.Migrator
}

// New wires the full service graph: config, logger, postgres, migrations,
// redis, the auth and reset services, and the HTTP routes.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	migrator, err := database.NewMigrator(cfg.Postgres.DSN())
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init migrator: %w", err)
	}

	if err := migrator.Up(); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	hasher := security.NewPasswordHasher(cfg.Auth.HashIterations)

	signer, err := security.NewSessionSigner(cfg.Auth.Secret, cfg.Auth.SessionTTL)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init session signer: %w", err)
	}

	users := postgresrepo.NewUserRepository(pool)
	schema := postgresrepo.NewSchemaManager(pool)

	rateLimitWindow := cfg.RateLimit.WindowDuration
	if rateLimitWindow <= 0 {
		rateLimitWindow = time.Minute
	}
	attempts := redisrepo.NewAttemptStore(redisClient.Client(), "portal:attempts", rateLimitWindow)
	rateLimiter := middleware.NewRateLimiter(attempts, log)

	authService := usecase.NewAuthService(users, hasher, signer, cfg.App.IsDevelopment(), log)
	resetService := usecase.NewResetService(schema, migrator, users, hasher, cfg.Seed, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		Signer:      signer,
		RateLimiter: rateLimiter,
		Metrics:     metrics,
		Database:    pool,
		Cache:       redisClient,
		Migrations:  migrator,
		Services: routes.ServiceSet{
			Auth:  authService,
			Reset: resetService,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		migrator: migrator,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer func() {
		if a.pool != nil {
			a.pool.Close()
		}
	}()
	defer func() {
		if a.redis != nil {
			_ = a.redis.Close()
		}
	}()
	defer func() {
		if a.migrator != nil {
			_ = a.migrator.Close()
		}
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting portal API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}

	return nil
}
