package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/sashasoft90/c3po/internal/core/port"
	"github.com/sashasoft90/c3po/internal/infra/config"
	"github.com/sashasoft90/c3po/internal/infra/database"
	kafkainfra "github.com/sashasoft90/c3po/internal/infra/kafka"
	"github.com/sashasoft90/c3po/internal/infra/logger"
	redisinfra "github.com/sashasoft90/c3po/internal/infra/redis"
	"github.com/sashasoft90/c3po/internal/infra/security"
	postgresrepo "github.com/sashasoft90/c3po/internal/repository/postgres"
	redisrepo "github.com/sashasoft90/c3po/internal/repository/redis"
	"github.com/sashasoft90/c3po/internal/transport/http/middleware"
	"github.com/sashasoft90/c3po/internal/transport/http/routes"
	"github.com/sashasoft90/c3po/internal/usecase"
)

// Application owns the wired dependency graph and the HTTP server lifecycle.
type Application struct {
	cfg    *config.AppConfig
	engine *gin.Engine
	logger *zap.Logger
	pool   *pgxpool.Pool
	redis  *redisinfra.Client
}

// New builds the full dependency graph from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	redisClient, err := redisinfra.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init redis: %w", err)
	}

	repos := postgresrepo.NewRepositories(pool)

	tokenManager, err := security.NewTokenManager(cfg.JWT.SecretKey, cfg.JWT.AccessTokenTTL)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init token manager: %w", err)
	}

	cacheMetrics, err := redisrepo.NewCacheMetrics(prometheus.DefaultRegisterer)
	if err != nil {
		log.Warn("failed to register cache metrics", zap.Error(err))
	}

	userCache := redisrepo.NewCacheService(redisClient.Client(), cfg.Cache.UserPrefix, log).
		WithMetrics(cacheMetrics)
	appointmentCache := redisrepo.NewCacheService(redisClient.Client(), cfg.Cache.AppointmentsPrefix, log).
		WithMetrics(cacheMetrics)

	eventPublisher := buildEventPublisher(cfg, log)

	authService, err := usecase.NewAuthService(
		cfg.JWT,
		repos.Users,
		redisrepo.NewRefreshTokenRepository(redisClient.Client()),
		redisrepo.NewBlacklistRepository(redisClient.Client()),
		tokenManager,
		log,
	)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init auth service: %w", err)
	}

	userService, err := usecase.NewUserService(repos.Users, userCache, eventPublisher, log)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init user service: %w", err)
	}
	userService.WithCacheTTL(cfg.Cache.UserTTL)

	appointmentService, err := usecase.NewAppointmentService(repos.Appointments, appointmentCache, eventPublisher, log)
	if err != nil {
		pool.Close()
		_ = redisClient.Close()
		return nil, fmt.Errorf("init appointment service: %w", err)
	}
	appointmentService.WithListCacheTTL(cfg.Cache.AppointmentsTTL)

	httpMetrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		log.Warn("failed to register http metrics", zap.Error(err))
	}

	rateLimiter := middleware.NewRateLimiter(redisrepo.NewRateLimitRepository(redisClient.Client()), log)

	engine := routes.Register(routes.Dependencies{
		Config:      cfg,
		Logger:      log,
		RateLimiter: rateLimiter,
		Metrics:     httpMetrics,
		Database:    pool,
		Cache:       redisClient,
		Services: routes.ServiceSet{
			Auth:         authService,
			Users:        userService,
			Appointments: appointmentService,
		},
	})

	return &Application{
		cfg:    cfg,
		engine: engine,
		logger: log,
		pool:   pool,
		redis:  redisClient,
	}, nil
}

func buildEventPublisher(cfg *config.AppConfig, log *zap.Logger) port.EventPublisher {
	if len(cfg.Kafka.Brokers) == 0 {
		log.Info("kafka brokers not configured, using stub publisher")
		return kafkainfra.NewStubPublisher(log)
	}

	producer, err := kafkainfra.NewProducer(cfg.Kafka, log)
	if err != nil {
		log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
		return kafkainfra.NewStubPublisher(log)
	}

	log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
	return kafkainfra.NewEventPublisher(producer, cfg.App, log)
}

// Run serves HTTP until the context is cancelled, then shuts down gracefully.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()
	defer a.pool.Close()
	defer func() {
		_ = a.redis.Close()
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	a.logger.Info("starting scheduling API",
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
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown server: %w", err)
		}
		return nil
	case err := <-serverErrCh:
		return err
	}
}
