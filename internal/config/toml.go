package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the optional TOML configuration file. Unset keys leave
// the default in place.
type FileConfig struct {
	HTTP     HTTPFile     `toml:"http"`
	Storage  StorageFile  `toml:"storage"`
	Kafka    KafkaFile    `toml:"kafka"`
	Auth     AuthFile     `toml:"auth"`
	Progress ProgressFile `toml:"progress"`
	Email    EmailFile    `toml:"email"`
	Cache    CacheFile    `toml:"cache"`
	Log      LogFile      `toml:"log"`
}

// HTTPFile maps listener settings.
type HTTPFile struct {
	Address        *string `toml:"address"`
	MetricsAddress *string `toml:"metrics-address"`
	CORSOrigin     *string `toml:"cors-origin"`
}

// StorageFile maps the persistence backend.
type StorageFile struct {
	Driver      *string `toml:"driver"`
	PostgresURL *string `toml:"postgres-url"`
	SQLitePath  *string `toml:"sqlite-path"`
}

// KafkaFile maps event publication and consumption settings.
type KafkaFile struct {
	Brokers            []string `toml:"brokers"`
	SchemaRegistryURL  *string  `toml:"schema-registry-url"`
	OutboxEnabled      *bool    `toml:"outbox-enabled"`
	OutboxPollInterval *string  `toml:"outbox-poll-interval"`
	OutboxBatchSize    *int     `toml:"outbox-batch-size"`
	DLQPollInterval    *string  `toml:"dlq-poll-interval"`
	DLQMaxRetries      *int     `toml:"dlq-max-retries"`
	DLQBaseDelay       *string  `toml:"dlq-base-delay"`
	ConsumerGroupID    *string  `toml:"consumer-group-id"`
	ConsumerTopics     []string `toml:"consumer-topics"`
}

// AuthFile maps bearer token verification.
type AuthFile struct {
	JWTSecret *string `toml:"jwt-secret"`
	JWTIssuer *string `toml:"jwt-issuer"`
}

// ProgressFile maps the calendar used for streaks and weekly goals.
type ProgressFile struct {
	Timezone  *string `toml:"timezone"`
	WeekStart *string `toml:"week-start"`
}

// EmailFile maps the kudos notifier.
type EmailFile struct {
	ResendAPIKey  *string `toml:"resend-api-key"`
	ResendBaseURL *string `toml:"resend-base-url"`
	From          *string `toml:"from"`
	AppURL        *string `toml:"app-url"`
	Timeout       *string `toml:"timeout"`
}

// CacheFile maps the client cache invalidation hook.
type CacheFile struct {
	InvalidationURL   *string `toml:"invalidation-url"`
	InvalidationToken *string `toml:"invalidation-token"`
}

// LogFile maps logger construction.
type LogFile struct {
	Level  *string `toml:"level"`
	Format *string `toml:"format"`
}

// LoadFile reads a TOML config from the given path. A missing file is not an error.
func LoadFile(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.validateDurations(); err != nil {
		return FileConfig{}, err
	}
	return cfg, nil
}

func (f FileConfig) validateDurations() error {
	for key, value := range map[string]*string{
		"kafka.outbox-poll-interval": f.Kafka.OutboxPollInterval,
		"kafka.dlq-poll-interval":    f.Kafka.DLQPollInterval,
		"kafka.dlq-base-delay":       f.Kafka.DLQBaseDelay,
		"email.timeout":              f.Email.Timeout,
	} {
		if value == nil {
			continue
		}
		if _, err := time.ParseDuration(*value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
	}
	return nil
}

func (f FileConfig) apply(cfg *Config) {
	setString(&cfg.HTTPAddress, f.HTTP.Address)
	setString(&cfg.MetricsAddress, f.HTTP.MetricsAddress)
	setString(&cfg.CORSOrigin, f.HTTP.CORSOrigin)

	setString(&cfg.StorageDriver, f.Storage.Driver)
	setString(&cfg.PostgresURL, f.Storage.PostgresURL)
	setString(&cfg.SQLitePath, f.Storage.SQLitePath)

	if len(f.Kafka.Brokers) > 0 {
		cfg.KafkaBrokers = f.Kafka.Brokers
	}
	setString(&cfg.SchemaRegistryURL, f.Kafka.SchemaRegistryURL)
	if f.Kafka.OutboxEnabled != nil {
		cfg.OutboxEnabled = *f.Kafka.OutboxEnabled
	}
	setDuration(&cfg.OutboxPollInterval, f.Kafka.OutboxPollInterval)
	setInt(&cfg.OutboxBatchSize, f.Kafka.OutboxBatchSize)
	setDuration(&cfg.DLQPollInterval, f.Kafka.DLQPollInterval)
	setInt(&cfg.DLQMaxRetries, f.Kafka.DLQMaxRetries)
	setDuration(&cfg.DLQBaseDelay, f.Kafka.DLQBaseDelay)
	setString(&cfg.ConsumerGroupID, f.Kafka.ConsumerGroupID)
	if len(f.Kafka.ConsumerTopics) > 0 {
		cfg.ConsumerTopics = f.Kafka.ConsumerTopics
	}

	setString(&cfg.JWTSecret, f.Auth.JWTSecret)
	setString(&cfg.JWTIssuer, f.Auth.JWTIssuer)

	setString(&cfg.ProgressTimezone, f.Progress.Timezone)
	setString(&cfg.WeekStart, f.Progress.WeekStart)

	setString(&cfg.ResendAPIKey, f.Email.ResendAPIKey)
	setString(&cfg.ResendBaseURL, f.Email.ResendBaseURL)
	setString(&cfg.EmailFrom, f.Email.From)
	setString(&cfg.AppURL, f.Email.AppURL)
	setDuration(&cfg.NotifyTimeout, f.Email.Timeout)

	setString(&cfg.CacheInvalidationURL, f.Cache.InvalidationURL)
	setString(&cfg.CacheInvalidationToken, f.Cache.InvalidationToken)

	setString(&cfg.LogLevel, f.Log.Level)
	setString(&cfg.LogFormat, f.Log.Format)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

// setDuration expects values already checked by validateDurations.
func setDuration(dst *time.Duration, v *string) {
	if v == nil {
		return
	}
	if parsed, err := time.ParseDuration(*v); err == nil {
		*dst = parsed
	}
}
