package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"chimeralens/api/internal/cache"
	"chimeralens/api/internal/config"
	"chimeralens/api/internal/database"
	"chimeralens/api/internal/handlers"
	"chimeralens/api/internal/jobs"
	"chimeralens/api/internal/log"
	"chimeralens/api/internal/prediction"
	"chimeralens/api/internal/repository"
	"chimeralens/api/internal/server"
	"chimeralens/api/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}

	mediaStore, err := storage.NewMediaStore(cfg.Storage, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init media store")
	}
	if err := mediaStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}

	predictor, err := prediction.NewClient(prediction.Options{
		BaseURL:      cfg.Prediction.BaseURL,
		APIToken:     cfg.Prediction.APIToken,
		PollInterval: cfg.Prediction.PollInterval,
		PollTimeout:  cfg.Prediction.PollTimeout,
		Logger:       logger,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init prediction client")
	}

	handlerSet := handlers.NewHandlerSet(logger, dbPool, redisClient, mediaStore, predictor, cfg)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(
		repository.NewConsultationRepository(dbPool),
		cfg.Cleanup.TemporaryMaxAge,
		logger,
	)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

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
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if scheduler != nil {
		scheduler.Stop()
	}

	db.Close()
	if err := redisClient.Close(); err != nil {
		logger.Error().Err(err).Msg("redis close error")
	}

	logger.Info().Msg("server exited cleanly")
}
