package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/pageza/pantrychef/backend/config"
	"github.com/pageza/pantrychef/backend/internal/api"
	"github.com/pageza/pantrychef/backend/internal/database"
	"github.com/pageza/pantrychef/backend/internal/logging"
	"github.com/pageza/pantrychef/backend/internal/metrics"
	"github.com/pageza/pantrychef/backend/internal/middleware"
	"github.com/pageza/pantrychef/backend/internal/ratelimit"
	"github.com/pageza/pantrychef/backend/internal/server"
	"github.com/pageza/pantrychef/backend/internal/service"
	"github.com/pageza/pantrychef/backend/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(&logging.Config{
		Level:       cfg.LogLevel,
		Format:      cfg.LogFormat,
		Environment: string(cfg.Environment),
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	db, err := database.New(cfg, logger)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(db, "migrations", logger); err != nil {
		return err
	}

	m := metrics.NewMetrics()

	store, err := newRateLimitStore(cfg, logger)
	if err != nil {
		return err
	}
	limiter := ratelimit.NewLimiter(store,
		ratelimit.WithBypass(cfg.RateLimitTestMode),
		ratelimit.WithLogger(logger),
		ratelimit.WithMetrics(m),
	)
	if cfg.RateLimitTestMode {
		logger.Warn("rate limiting is bypassed (RATE_LIMIT_TEST_MODE)")
	}

	deepseek, err := service.NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.DeepSeekURL, cfg.DeepSeekModel)
	if err != nil {
		return err
	}
	client := service.NewGenerationClient(deepseek, cfg.GenerationAttemptTimeout, logger, m)

	stock := database.NewStockStore(db)
	consultas := database.NewConsultaStore(db)

	opts := []service.GeneratorOption{
		service.WithMaxRecipes(cfg.FallbackMaxRecipes),
		service.WithGeneratorLogger(logger),
		service.WithGeneratorMetrics(m),
	}
	if cfg.ArchiveEnabled {
		s3cfg, err := config.NewS3Config(context.Background(), cfg)
		if err != nil {
			return err
		}
		opts = append(opts, service.WithArchiver(storage.NewS3Archiver(s3cfg)))
		logger.Info("archiving consultas", zap.String("bucket", cfg.S3BucketName))
	}

	recipes := service.NewRecipeGenerator(limiter, stock, consultas, client, opts...)
	cooking := service.NewCookingService(stock, consultas, logger, m)

	handler := api.NewHandler(recipes, cooking, func(ctx context.Context) error {
		return database.HealthCheck(ctx, db)
	}, logger)

	guard := middleware.NewAuthGuard(limiter,
		ratelimit.AuthPolicy("api", cfg.AuthRateLimit, cfg.AuthRateWindow), logger)

	srv := server.New(cfg, server.Deps{
		Handler:   handler,
		Validator: service.NewTokenService(cfg.JWTSecret),
		Guard:     guard,
		Metrics:   m,
		Logger:    logger,
	})

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case sig := <-quit:
		logger.Info("received signal", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func newRateLimitStore(cfg *config.Config, logger *zap.Logger) (ratelimit.Store, error) {
	switch cfg.RateLimitBackend {
	case config.BackendRedis:
		client, err := database.NewRedisClient(cfg, logger)
		if err != nil {
			return nil, err
		}
		return ratelimit.NewRedisStore(client), nil
	case config.BackendMemory, "":
		return ratelimit.NewMemoryStore(), nil
	default:
		return nil, errors.New("unknown rate limit backend: " + cfg.RateLimitBackend)
	}
}
