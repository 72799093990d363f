package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/app"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/authz"
	jobmetrics "github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/jobs"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/platform/cache"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/internal/platform/db"
	"github.com/Gs-Tech-Hub/hotel-manager-v3-sub002/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	authzRepo := authz.NewRepository(pool)
	resolver := authz.NewResolver(authzRepo, logger, cfg.AuthzCheckTimeout)
	permCache := authz.NewCache(redisClient, resolver, cfg.PermissionCacheTTL, logger, nil)

	metrics := jobmetrics.NewMetrics(nil)

	warmupTask, err := jobs.NewCacheWarmupTask(time.Now())
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}
	retentionTask, err := jobs.NewAuditRetentionTask(cfg.AuditRetention)
	if err != nil {
		logger.Error("build retention task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskCacheWarmup, Handler: jobs.NewCacheWarmupHandler(pool, permCache, logger, metrics)},
			{Type: jobs.TaskAuditRetention, Handler: jobs.NewAuditRetentionHandler(pool, logger, metrics)},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "45 2 * * *", Task: retentionTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
