package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/supermart/supermart/internal/app"
	"github.com/supermart/supermart/internal/inventory"
	"github.com/supermart/supermart/internal/observability"
	"github.com/supermart/supermart/internal/platform/cache"
	"github.com/supermart/supermart/internal/platform/db"
	"github.com/supermart/supermart/jobs"
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

	dbpool, err := db.New(ctx, cfg.Pool("api"))
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.Redis())
	if err != nil {
		logger.Warn("redis unavailable, dashboards served uncached", slog.Any("error", err))
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	redisOpts := cfg.Asynq()
	var alerts inventory.LowStockHandler
	if cfg.LowStockAlerts {
		jobClient, err := jobs.NewClient(redisOpts, logger)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		alerts = jobClient
	}

	metrics := observability.NewMetrics()
	core := app.NewCore(app.CoreParams{
		Pool:    dbpool,
		Redis:   redisClient,
		Config:  cfg,
		Logger:  logger,
		Metrics: metrics,
		Alerts:  alerts,
	})

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	router := app.NewRouter(core.Handlers(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		RBACMiddleware: core.RBAC(logger),
		JobHandler:     jobs.NewHandler(inspector, logger),
		Metrics:        metrics,
	}))

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
