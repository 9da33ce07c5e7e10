package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddress)
	require.Equal(t, DriverPostgres, cfg.StorageDriver)
	require.Equal(t, []string{"kafka:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 5*time.Second, cfg.NotifyTimeout)

	day, err := cfg.FirstWeekday()
	require.NoError(t, err)
	require.Equal(t, time.Sunday, day)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "SQLite")
	t.Setenv("KAFKA_BROKERS", "a:9092, b:9092 ,")
	t.Setenv("OUTBOX_ENABLED", "false")
	t.Setenv("WEEK_START", "Monday")
	t.Setenv("PROGRESS_TIMEZONE", "Europe/Rome")
	t.Setenv("OUTBOX_BATCH_SIZE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DriverSQLite, cfg.StorageDriver)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
	require.False(t, cfg.OutboxEnabled)
	require.Equal(t, 25, cfg.OutboxBatchSize)

	day, err := cfg.FirstWeekday()
	require.NoError(t, err)
	require.Equal(t, time.Monday, day)

	loc, err := cfg.Location()
	require.NoError(t, err)
	require.Equal(t, "Europe/Rome", loc.String())
}

func TestLoadFileOverlayThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lazywalker.toml")
	content := `
[storage]
driver = "sqlite"
sqlite-path = "/tmp/walks.db"

[progress]
week-start = "monday"

[email]
timeout = "2s"

[kafka]
consumer-topics = ["walk_events"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SQLITE_PATH", "/var/lib/lazywalker.db")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, DriverSQLite, cfg.StorageDriver)
	require.Equal(t, "/var/lib/lazywalker.db", cfg.SQLitePath)
	require.Equal(t, "monday", cfg.WeekStart)
	require.Equal(t, 2*time.Second, cfg.NotifyTimeout)
	require.Equal(t, []string{"walk_events"}, cfg.ConsumerTopics)
}

func TestLoadFileMissingIsNotAnError(t *testing.T) {
	file, err := LoadFile(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	require.Nil(t, file.Storage.Driver)
}

func TestLoadFileRejectsBadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[email]\ntimeout = \"soon\"\n"), 0o600))

	_, err := LoadFile(path)
	require.ErrorContains(t, err, "email.timeout")
}

func TestValidate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.StorageDriver = "mysql"
	require.Error(t, bad.Validate())

	bad = cfg
	bad.WeekStart = "someday"
	require.Error(t, bad.Validate())

	bad = cfg
	bad.ProgressTimezone = "Mars/Olympus"
	require.Error(t, bad.Validate())
}
