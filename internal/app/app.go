package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/utafrali/auth-service/internal/auth"
	"github.com/utafrali/auth-service/internal/config"
	"github.com/utafrali/auth-service/internal/event"
	handler "github.com/utafrali/auth-service/internal/handler/http"
	"github.com/utafrali/auth-service/internal/repository"
	"github.com/utafrali/auth-service/internal/repository/postgres"
	redisrepo "github.com/utafrali/auth-service/internal/repository/redis"
	"github.com/utafrali/auth-service/internal/service"
	"github.com/utafrali/auth-service/migrations"
	"github.com/utafrali/auth-service/pkg/database"
	"github.com/utafrali/auth-service/pkg/health"
	pkgkafka "github.com/utafrali/auth-service/pkg/kafka"
)

// App wires together all dependencies and runs the auth service.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	pool       *pgxpool.Pool
	redis      *goredis.Client
	producer   *pkgkafka.Producer
	httpServer *http.Server
}

// NewApp creates a new application instance, initializing all dependencies.
func NewApp(cfg *config.Config, logger *slog.Logger) (*App, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize PostgreSQL connection pool.
	pgCfg := database.DefaultPostgresConfig()
	pgCfg.Host = cfg.PostgresHost
	pgCfg.Port = cfg.PostgresPort
	pgCfg.User = cfg.PostgresUser
	pgCfg.Password = cfg.PostgresPass
	pgCfg.DBName = cfg.PostgresDB
	pgCfg.SSLMode = cfg.PostgresSSL

	pool, err := database.NewPostgresPool(ctx, &pgCfg, logger)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	logger.Info("connected to PostgreSQL",
		slog.String("host", cfg.PostgresHost),
		slog.Int("port", cfg.PostgresPort),
		slog.String("database", cfg.PostgresDB),
	)
	database.RegisterPoolMetrics(pool, "auth")

	// Run database migrations.
	if err := database.RunMigrations(ctx, pool, migrations.FS, logger); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("database migrations completed")

	// Refresh token store: Postgres by default, Redis when configured.
	var refreshTokenRepo repository.RefreshTokenRepository
	var redisClient *goredis.Client
	switch cfg.RefreshStore {
	case "redis":
		redisCfg := database.DefaultRedisConfig()
		redisCfg.Host = cfg.RedisHost
		redisCfg.Port = cfg.RedisPort
		redisCfg.Password = cfg.RedisPassword
		redisCfg.DB = cfg.RedisDB
		redisClient, err = database.NewRedisClient(ctx, redisCfg)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		logger.Info("connected to Redis", slog.String("addr", redisCfg.Addr()))
		refreshTokenRepo = redisrepo.NewRefreshTokenRepository(redisClient)
	default:
		refreshTokenRepo = postgres.NewRefreshTokenRepository(pool)
	}

	// Initialize Kafka producer.
	kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
	producer := pkgkafka.NewProducer(kafkaCfg, logger)
	logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))

	// Build the dependency graph.
	tokenManager := auth.NewTokenManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	passwordHasher := auth.NewPasswordHasher(cfg.BcryptCost)
	userRepo := postgres.NewUserRepository(pool)
	eventProducer := event.NewProducer(producer, logger)
	authService := service.NewAuthService(userRepo, refreshTokenRepo, tokenManager, passwordHasher, eventProducer, logger)

	// Health checks.
	healthHandler := health.NewHandler()
	healthHandler.Register("postgres", func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if redisClient != nil {
		healthHandler.Register("redis", func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	}
	healthHandler.Register("kafka", producer.Ping)

	// HTTP router.
	router := handler.NewRouter(authService, tokenManager, healthHandler, logger, handler.RouterConfig{
		Environment:       cfg.Environment,
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		SecureCookies:     cfg.SecureCookies,
		PprofAllowedCIDRs: cfg.PprofAllowedCIDRs,
	})

	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:        cfg,
		logger:     logger,
		pool:       pool,
		redis:      redisClient,
		producer:   producer,
		httpServer: httpServer,
	}, nil
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components in the correct order:
// 1. HTTP server (drain in-flight requests)
// 2. Kafka producer
// 3. Redis client (if enabled)
// 4. PostgreSQL pool
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	var errs []error

	httpCtx, httpCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer httpCancel()
	if err := a.httpServer.Shutdown(httpCtx); err != nil {
		a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if err := a.producer.Close(); err != nil {
		a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		errs = append(errs, err)
	}

	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
			errs = append(errs, err)
		}
	}

	a.pool.Close()

	a.logger.Info("application shutdown complete")
	return errors.Join(errs...)
}
