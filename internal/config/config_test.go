package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "helpdesk-bot", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, 20, cfg.Bot.ContextCapacity)
	assert.Equal(t, 16, cfg.Bot.QueueSize)
	assert.Equal(t, time.Duration(0), cfg.Bot.SessionTTL())
	assert.Equal(t, 1024, cfg.Anthropic.MaxTokens)
	assert.Empty(t, cfg.Redis.Addr, "memory session store by default")
	assert.True(t, cfg.Postgres.RunMigrations)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("BOT_CONTEXT_CAPACITY", "8")
	t.Setenv("BOT_SESSION_TTL_MINUTES", "30")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("POSTGRES_RUN_MIGRATIONS", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9090", cfg.App.Addr())
	assert.Equal(t, 8, cfg.Bot.ContextCapacity)
	assert.Equal(t, 30*time.Minute, cfg.Bot.SessionTTL())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.False(t, cfg.Postgres.RunMigrations)
}

func TestLoad_BadIntFallsBack(t *testing.T) {
	t.Setenv("BOT_QUEUE_SIZE", "lots")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Bot.QueueSize)
}

func TestLoad_InvalidRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")
	_, err := Load()
	assert.Error(t, err)
}
