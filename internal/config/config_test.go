// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "uno_actions", cfg.Redis.Queue)
	assert.Equal(t, 10*time.Minute, cfg.Rooms.IdleTTL)
	assert.True(t, cfg.Rooms.RequireSeatToken, "reconnects need a seat token unless relaxed")
	assert.False(t, cfg.Rooms.Stacking)
	assert.Equal(t, 1, cfg.Rooms.ShuffleHandsCards)
	assert.Equal(t, 7, cfg.Rooms.HandSize)
	assert.Equal(t, 10, cfg.Rooms.MaxPlayers)
	assert.Equal(t, time.Duration(0), cfg.Auth.TokenTTL)
	assert.Empty(t, cfg.Database.DSN(), "no database unless configured")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("UNO_SERVER_PORT", "9090")
	t.Setenv("UNO_ROOMS_STACKING", "true")
	t.Setenv("UNO_ROOMS_IDLE_TTL", "90s")
	t.Setenv("UNO_ROOMS_REQUIRE_SEAT_TOKEN", "false")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("PG_HOST", "db")
	t.Setenv("PG_USER", "uno")
	t.Setenv("PG_PASSWORD", "pw")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Rooms.Stacking)
	assert.Equal(t, 90*time.Second, cfg.Rooms.IdleTTL)
	assert.False(t, cfg.Rooms.RequireSeatToken)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "postgres://uno:pw@db:5432/uno?sslmode=disable", cfg.Database.DSN())
}

func TestDatabaseURLWins(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://a@b/c")
	t.Setenv("PG_HOST", "ignored")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://a@b/c", cfg.Database.DSN())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "uno.yaml")
	body := "server:\n  port: 7000\nrooms:\n  hand_size: 5\n  max_players: 4\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Rooms.HandSize)
	assert.Equal(t, 4, cfg.Rooms.MaxPlayers)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("UNO_SERVER_PORT", "70000")
	_, err := Load("")
	assert.Error(t, err)
}
