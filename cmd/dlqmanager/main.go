package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/lazywalker/internal/config"
	"example.com/lazywalker/internal/observability"
	"example.com/lazywalker/internal/outbox"
	httptransport "example.com/lazywalker/internal/transport/http"
)

const defaultDLQBatchSize = 50

func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger("error", "json", os.Stderr).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout).With("component", "dlqmanager")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	manager := outbox.NewDLQManager(pool, cfg.DLQMaxRetries, cfg.DLQBaseDelay, logger)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httptransport.Run(ctx, httptransport.NewMetricsServer(cfg.MetricsAddress), 0, logger); err != nil {
			logger.Error("metrics server error", "error", err)
		}
	}()

	ticker := time.NewTicker(cfg.DLQPollInterval)
	defer ticker.Stop()

	logger.Info("dlq manager started", "interval", cfg.DLQPollInterval, "max_retries", cfg.DLQMaxRetries)
	for {
		select {
		case <-ctx.Done():
			logger.Info("dlq manager received shutdown signal")
			wg.Wait()
			return
		case <-ticker.C:
			report, err := manager.RunOnce(ctx, defaultDLQBatchSize)
			if err != nil {
				logger.Error("dlq pass failed", "error", err)
			}
			if report.Handled() > 0 {
				logger.Info("dlq pass complete", "requeued", report.Requeued, "rescheduled", report.Rescheduled, "quarantined", report.Quarantined)
			}
		}
	}
}
