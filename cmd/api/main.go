package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"cashcraft/api/internal/cache"
	"cashcraft/api/internal/config"
	"cashcraft/api/internal/database"
	"cashcraft/api/internal/handlers"
	"cashcraft/api/internal/jobs"
	"cashcraft/api/internal/log"
	"cashcraft/api/internal/repository"
	"cashcraft/api/internal/server"
)

const probeSchedule = "@every 30s"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.LogLevel)

	ctx := context.Background()

	var (
		store  handlers.Store
		dbPool *pgxpool.Pool
	)
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		logger.Warn().Msg("using in-memory account store, data is lost on restart")
		store = repository.NewMemoryAccountRepository()
	default:
		dbPool, err = database.NewPostgresPool(ctx, cfg.Postgres)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect postgres")
		}
		if cfg.Postgres.Migrate {
			if err := database.Migrate(ctx, dbPool); err != nil {
				logger.Fatal().Err(err).Msg("failed to migrate schema")
			}
		}
		store = repository.NewAccountRepository(dbPool)
	}

	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, rate limiting disabled")
			redisClient = nil
		}
	}

	handlerSet := handlers.NewHandlerSet(logger, cfg, store, redisClient)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(logger)
	if err := scheduler.AddProbe(probeSchedule, cfg.Storage.Driver, store.Ping); err != nil {
		logger.Fatal().Err(err).Msg("scheduler setup failed")
	}
	if redisClient != nil {
		probe := func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
		if err := scheduler.AddProbe(probeSchedule, "redis", probe); err != nil {
			logger.Fatal().Err(err).Msg("scheduler setup failed")
		}
	}
	scheduler.Start()

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("scheduler stop timed out")
	}

	if db != nil {
		db.Close()
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
