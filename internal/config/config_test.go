package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORTAL_AUTH_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "firestore", cfg.Store.Driver)
	assert.False(t, cfg.Store.Required)
	assert.Equal(t, 400, cfg.Purge.PageSize)
	assert.Equal(t, 250*time.Millisecond, cfg.Purge.BatchPause)
	assert.Equal(t, 500, cfg.Meta.PageLimit)
	assert.True(t, cfg.Sync.EstimateConversationsFromClicks)
	assert.Equal(t, "today", cfg.Sync.ScheduleWindow)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORTAL_AUTH_ENABLED", "false")
	t.Setenv("PORTAL_STORE_DRIVER", "Postgres")
	t.Setenv("PORTAL_PURGE_PAGE_SIZE", "100")
	t.Setenv("PORTAL_SYNC_ESTIMATE_CONVERSATIONS", "false")
	t.Setenv("PORTAL_CLICKHOUSE_ADDR", "ch1:9000, ch2:9000")
	t.Setenv("PORTAL_META_TIMEOUT", "5s")
	t.Setenv("PORTAL_STORE_REQUIRED", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.True(t, cfg.Store.Required)
	assert.Equal(t, 100, cfg.Purge.PageSize)
	assert.False(t, cfg.Sync.EstimateConversationsFromClicks)
	assert.Equal(t, []string{"ch1:9000", "ch2:9000"}, cfg.ClickHouse.Addr)
	assert.Equal(t, 5*time.Second, cfg.Meta.Timeout)
}

func TestValidate(t *testing.T) {
	t.Run("auth requires master key", func(t *testing.T) {
		t.Setenv("PORTAL_AUTH_ENABLED", "true")
		t.Setenv("PORTAL_API_KEY_MASTER", "")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("unknown store driver", func(t *testing.T) {
		t.Setenv("PORTAL_AUTH_ENABLED", "false")
		t.Setenv("PORTAL_STORE_DRIVER", "mongo")
		_, err := Load()
		assert.ErrorContains(t, err, "PORTAL_STORE_DRIVER")
	})

	t.Run("invalid purge page size", func(t *testing.T) {
		t.Setenv("PORTAL_AUTH_ENABLED", "false")
		t.Setenv("PORTAL_PURGE_PAGE_SIZE", "0")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5433, DBName: "db", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@h:5433/db?sslmode=disable", d.DSN())
}
