package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	httpAdapter "github.com/iho/expenseledger/internal/adapter/http"
	"github.com/iho/expenseledger/internal/adapter/http/handler"
	"github.com/iho/expenseledger/internal/adapter/http/middleware"
	"github.com/iho/expenseledger/internal/adapter/repository/memory"
	postgresRepo "github.com/iho/expenseledger/internal/adapter/repository/postgres"
	redisRepo "github.com/iho/expenseledger/internal/adapter/repository/redis"
	"github.com/iho/expenseledger/internal/adapter/upload"
	"github.com/iho/expenseledger/internal/infrastructure/config"
	"github.com/iho/expenseledger/internal/infrastructure/logger"
	"github.com/iho/expenseledger/internal/infrastructure/metrics"
	"github.com/iho/expenseledger/internal/infrastructure/postgres"
	"github.com/iho/expenseledger/internal/infrastructure/redis"
	"github.com/iho/expenseledger/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	// Setup logger
	appLogger := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	log.Logger = appLogger
	zerolog.DefaultContextLogger = &appLogger

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, appLogger); err != nil {
		log.Fatal().Err(err).Msg("server failed")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	a, err := newApp(ctx, cfg, logger, metrics.New())
	if err != nil {
		return err
	}
	defer a.Close()

	if a.limiter != nil {
		go a.limiter.RunCleanup(ctx, time.Hour)
	}

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      a.handler,
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.HTTPPort).Str("store", cfg.StoreBackend).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info().Msg("server stopped")
	return nil
}

// app is the wired HTTP application with the resources it owns.
type app struct {
	handler http.Handler
	limiter *middleware.RateLimiter
	closers []func()
}

// Close releases connections in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func newApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, m *metrics.Metrics) (*app, error) {
	a := &app{}
	checks := map[string]handler.Check{}
	idGen := postgresRepo.NewULIDGenerator()

	// Document store
	var store usecase.DocumentStore
	switch cfg.StoreBackend {
	case config.StoreMemory:
		store = memory.NewStore(idGen)
		logger.Warn().Msg("using in-memory store, data is lost on restart")
	case config.StorePostgres:
		if err := postgres.RunMigrations(cfg.DatabaseURL); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}

		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		logger.Info().Msg("connected to postgres")

		store = postgresRepo.NewDocumentStore(pool, idGen)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	checks["store"] = store.Ping

	// Redis is optional: without it statistics are not cached and
	// Idempotency-Key headers are ignored.
	var (
		cache            usecase.Cache
		idempotencyStore usecase.IdempotencyStore
	)
	if cfg.RedisURL != "" {
		redisClient, err := redis.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, func() { redisClient.Close() })
		logger.Info().Msg("connected to redis")

		cache = redisRepo.NewCache(redisClient)
		idempotencyStore = redisRepo.NewIdempotencyStore(redisClient)
		checks["redis"] = redis.HealthCheck(redisClient)
	}

	var uploader usecase.ImageUploader
	if cfg.UploadURL != "" {
		uploader = upload.NewHTTPUploader(upload.Config{
			URL:        cfg.UploadURL,
			Preset:     cfg.UploadPreset,
			Timeout:    cfg.UploadTimeout,
			MaxRetries: cfg.UploadMaxRetries,
		}, logger, m)
	}

	retrier := postgresRepo.NewRetrier(logger).OnRetry(m.StoreConflicts.Inc)

	// Initialize use cases
	walletUC := usecase.NewWalletUseCase(store, uploader, retrier, cache, logger, m, cfg.CascadePageSize)
	transactionUC := usecase.NewTransactionUseCase(store, walletUC, uploader, retrier, cache, logger, m)
	statsUC := usecase.NewStatsUseCase(store, cache, cfg.StatsCacheTTL, logger, m)
	reconciliationUC := usecase.NewReconciliationUseCase(store, walletUC, m)

	if cfg.RateLimitRPS > 0 {
		a.limiter = middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	}

	a.handler = httpAdapter.NewRouter(httpAdapter.RouterConfig{
		WalletHandler:      handler.NewWalletHandler(walletUC, reconciliationUC),
		TransactionHandler: handler.NewTransactionHandler(transactionUC),
		StatsHandler:       handler.NewStatsHandler(statsUC),
		HealthHandler:      handler.NewHealthHandler(checks),
		IdempotencyStore:   idempotencyStore,
		IdempotencyTTL:     cfg.IdempotencyTTL,
		RateLimiter:        a.limiter,
		Metrics:            m,
		Logger:             &logger,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	return a, nil
}
