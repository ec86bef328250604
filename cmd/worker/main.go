package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/biznooks/biznooks/internal/app"
	"github.com/biznooks/biznooks/internal/gateway"
	"github.com/biznooks/biznooks/internal/invoice"
	"github.com/biznooks/biznooks/internal/platform/db"
	"github.com/biznooks/biznooks/jobs"
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
	if cfg.RedisAddr == "" {
		slog.Default().Error("worker requires REDIS_ADDR")
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}

	invoiceRepo := invoice.NewRepository(pool)
	invoiceService := invoice.NewService(invoiceRepo, logger)

	authority, err := gateway.NewAuthority(gateway.Config{
		BaseURL:        cfg.GSPBaseURL,
		SandboxURL:     cfg.GSPSandboxURL,
		Timeout:        cfg.GSPTimeout,
		Retries:        cfg.GSPRetries,
		BackoffFactor:  cfg.GSPBackoffFactor,
		BackoffCeiling: cfg.GSPBackoffCeiling,
		PrivateKeyPath: cfg.GSPPrivateKeyPath,
		PublicKeyPath:  cfg.GSPPublicKeyPath,
	}, logger)
	if err != nil {
		logger.Error("init gateway authority", slog.Any("error", err))
		os.Exit(1)
	}

	// The worker performs submissions itself; it never re-enqueues.
	submitter := invoice.NewSubmitter(invoiceService, authority, nil, logger)

	worker := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Submitter: submitter,
	})

	logger.Info("starting worker", slog.String("redis", cfg.RedisAddr))
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker shut down")
}
