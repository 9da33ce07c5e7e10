package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/lazywalker/internal/config"
	"example.com/lazywalker/internal/consumer"
	"example.com/lazywalker/internal/observability"
	httptransport "example.com/lazywalker/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger("error", "json", os.Stderr).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout).With("component", "consumer")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	reader := consumer.NewKafkaReader(cfg.KafkaBrokers, cfg.ConsumerGroupID, cfg.ConsumerTopics)
	defer reader.Close()

	proc := consumer.NewProcessor(reader, consumer.NewAuditLog(pool), consumer.WithLogger(logger))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := httptransport.Run(ctx, httptransport.NewMetricsServer(cfg.MetricsAddress), 0, logger); err != nil {
			logger.Error("metrics server error", "error", err)
		}
	}()

	logger.Info("consumer started", "topics", cfg.ConsumerTopics, "group", cfg.ConsumerGroupID)
	runErr := proc.Run(ctx)
	stop()
	wg.Wait()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		logger.Error("consumer stopped with error", "error", runErr)
		_ = reader.Close()
		pool.Close()
		os.Exit(1)
	}
}
