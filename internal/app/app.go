// Package app assembles LazyWalker components from configuration. The
// binaries and walkerctl share it so they wire storage, notifications and the
// progression service the same way.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/lazywalker/internal/cache"
	"example.com/lazywalker/internal/config"
	"example.com/lazywalker/internal/domain"
	"example.com/lazywalker/internal/notify"
	"example.com/lazywalker/internal/persistence/postgres"
	"example.com/lazywalker/internal/persistence/sqlite"
)

// Backend is an opened store. Pool is nil for the SQLite driver.
type Backend struct {
	Store domain.Store
	Pool  *pgxpool.Pool
	close func()
}

// Close releases the underlying connections.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// OpenBackend connects to the configured storage driver. SQLite always
// migrates on open; Postgres only when migrate is set.
func OpenBackend(ctx context.Context, cfg config.Config, migrate bool) (*Backend, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return &Backend{Store: store, close: func() { _ = store.Close() }}, nil
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
		}
		return &Backend{Store: postgres.NewRepository(pool), Pool: pool, close: pool.Close}, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}

// NewNotifier returns the Resend notifier when an API key is configured and
// the logging notifier otherwise.
func NewNotifier(cfg config.Config, logger *slog.Logger) domain.Notifier {
	if cfg.ResendAPIKey == "" {
		return notify.NewLogNotifier(logger)
	}
	return notify.NewResendNotifier(notify.ResendConfig{
		APIKey:  cfg.ResendAPIKey,
		BaseURL: cfg.ResendBaseURL,
		From:    cfg.EmailFrom,
		AppURL:  cfg.AppURL,
	}, &http.Client{})
}

// NewInvalidator returns an HTTP invalidator when an endpoint is configured.
func NewInvalidator(cfg config.Config) domain.CacheInvalidator {
	if cfg.CacheInvalidationURL == "" {
		return cache.NoopInvalidator{}
	}
	return cache.NewHTTPInvalidator(cfg.CacheInvalidationURL, cfg.CacheInvalidationToken, cfg.NotifyTimeout)
}

// NewService builds the progression service for store.
func NewService(cfg config.Config, store domain.Store, logger *slog.Logger) (*domain.Service, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	weekStart, err := cfg.FirstWeekday()
	if err != nil {
		return nil, err
	}
	return domain.NewService(store,
		domain.WithCalendar(domain.NewCalendar(loc, weekStart)),
		domain.WithNotifier(NewNotifier(cfg, logger)),
		domain.WithInvalidator(NewInvalidator(cfg)),
		domain.WithNotifyTimeout(cfg.NotifyTimeout),
		domain.WithLogger(logger),
	), nil
}
