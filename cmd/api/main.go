package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"example.com/lazywalker/internal/api"
	"example.com/lazywalker/internal/app"
	"example.com/lazywalker/internal/auth"
	"example.com/lazywalker/internal/config"
	"example.com/lazywalker/internal/observability"
	"example.com/lazywalker/internal/outbox"
	httptransport "example.com/lazywalker/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.NewLogger("error", "json", os.Stderr).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	backend, err := app.OpenBackend(ctx, cfg, true)
	if err != nil {
		logger.Error("failed to open storage", "driver", cfg.StorageDriver, "error", err)
		os.Exit(1)
	}
	defer backend.Close()

	var dispatcher *outbox.Dispatcher
	if backend.Pool != nil && cfg.OutboxEnabled {
		producer := outbox.NewKafkaProducer(cfg.KafkaBrokers)
		defer producer.Close()

		registry := outbox.NewSchemaRegistryClient(cfg.SchemaRegistryURL)
		dispatcher = outbox.NewDispatcher(backend.Pool, producer, registry, cfg.OutboxPollInterval, cfg.OutboxBatchSize,
			outbox.WithLogger(logger.With("component", "outbox")))
		go dispatcher.Start(ctx)
	}

	service, err := app.NewService(cfg, backend.Store, logger)
	if err != nil {
		logger.Error("failed to build progression service", "error", err)
		os.Exit(1)
	}

	handler := api.NewHandler(service, logger)
	authMiddleware := auth.NewMiddleware(auth.Config{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer})
	router := api.NewRouter(handler, authMiddleware, api.RouterConfig{
		CORSOrigin: cfg.CORSOrigin,
		Logger:     logger,
	})

	server := httptransport.NewServer(httptransport.ServerConfig{
		Address:      cfg.HTTPAddress,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  60 * time.Second,
	}, router)

	logger.Info("lazywalker api starting", "driver", cfg.StorageDriver, "outbox", dispatcher != nil)
	if err := httptransport.Run(ctx, server, 15*time.Second, logger); err != nil {
		logger.Error("server error", "error", err)
	}
	stop()

	if dispatcher != nil {
		dispatcher.Wait()
	}
}
