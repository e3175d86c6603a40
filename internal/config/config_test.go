package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Contains(t, cfg.Database.DSN, "@tcp(localhost:3306)/telehealth")
	assert.Equal(t, 10, cfg.Scheduling.DailyCapacity)
	assert.Equal(t, int64(5*1024*1024), cfg.MaxReportBytes)
	assert.Equal(t, RelayModePush, cfg.Relay.Mode)
	assert.Equal(t, 15*time.Minute, cfg.RateLimit.AuthWindow)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_PORT", "5432")
	t.Setenv("RELAY_MODE", "POLL")
	t.Setenv("DAILY_CAPACITY", "3")
	t.Setenv("AUTH_RATE_WINDOW", "30s")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Contains(t, cfg.Database.DSN, "port=5432")
	assert.Equal(t, RelayModePoll, cfg.Relay.Mode)
	assert.Equal(t, 3, cfg.Scheduling.DailyCapacity)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.AuthWindow)
}

func TestLoadConfigExplicitDSNWins(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_DSN", "file::memory:")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "file::memory:", cfg.Database.DSN)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	t.Setenv("DB_DRIVER", "oracle")
	t.Setenv("RELAY_MODE", "carrier-pigeon")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_DRIVER")
	assert.Contains(t, err.Error(), "RELAY_MODE")
}

func TestLoadConfigProductionNeedsSecrets(t *testing.T) {
	t.Setenv("APP_ENV", "production")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "a-real-secret")
	t.Setenv("JWT_REFRESH_SECRET", "another-real-secret")
	_, err = LoadConfig()
	assert.NoError(t, err)
}
