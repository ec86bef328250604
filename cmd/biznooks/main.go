package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/biznooks/biznooks/internal/app"
	"github.com/biznooks/biznooks/internal/fx"
	"github.com/biznooks/biznooks/internal/gateway"
	"github.com/biznooks/biznooks/internal/invoice"
	"github.com/biznooks/biznooks/internal/ledger"
	"github.com/biznooks/biznooks/internal/platform/db"
	"github.com/biznooks/biznooks/internal/rates"
	"github.com/biznooks/biznooks/internal/reports"
	"github.com/biznooks/biznooks/internal/storage"
	"github.com/biznooks/biznooks/internal/webhook"
	"github.com/biznooks/biznooks/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
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
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	var enqueuer invoice.Enqueuer
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("redis ping, submissions will run inline", slog.Any("error", err))
		} else {
			queue := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
			defer func() {
				if err := queue.Close(); err != nil {
					logger.Warn("queue close", slog.Any("error", err))
				}
			}()
			enqueuer = queue
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	store, err := storage.NewFileStore(cfg.StorageDir)
	if err != nil {
		logger.Error("init storage", slog.Any("error", err))
		os.Exit(1)
	}

	ratesRepo := rates.NewRepository(pool)
	ratesService := rates.NewService(ratesRepo)

	ledgerRepo := ledger.NewRepository(pool)
	ledgerService := ledger.NewService(ledgerRepo, ratesService, func(err error) bool {
		return errors.Is(err, rates.ErrNoRateAvailable)
	})

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
	submitter := invoice.NewSubmitter(invoiceService, authority, enqueuer, logger)

	fxRepo := fx.NewRepository(pool)
	fxEngine := fx.NewEngine(fxRepo, invoiceService, ratesService, ledgerService, logger)

	reportsRepo := reports.NewRepository(pool)
	reportsService := reports.NewService(reportsRepo)

	nonceStore := webhook.NewPGNonceStore(pool)
	guard := webhook.NewGuard(nonceStore, invoiceService, cfg.WebhookSecret, logger)

	adminOnly := app.RequireRole("admin")

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		LedgerHandler:  ledger.NewHandler(logger, ledgerService, adminOnly),
		RatesHandler:   rates.NewHandler(logger, ratesService, adminOnly),
		InvoiceHandler: invoice.NewHandler(logger, invoiceService, submitter, store),
		WebhookHandler: webhook.NewHandler(logger, guard),
		FXHandler:      fx.NewHandler(logger, fxEngine),
		ReportsHandler: reports.NewHandler(logger, reportsService),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
