package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("POLL_INTERVAL", "")
	t.Setenv("ADMIN_PIN", "")
	t.Setenv("REDIS_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.Board.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout)
	assert.Equal(t, "1881", cfg.Admin.PIN)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, time.Minute, cfg.Redis.CatalogTTL)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://10.0.0.5:8000/api")
	t.Setenv("POLL_INTERVAL", "5s")
	t.Setenv("API_TIMEOUT", "not-a-duration")
	t.Setenv("REPORT_CHAT_IDS", "12, 34,abc,,-100200")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "http://10.0.0.5:8000/api", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Board.PollInterval)
	assert.Equal(t, 10*time.Second, cfg.API.Timeout, "invalid durations fall back to the default")
	assert.Equal(t, []int64{12, 34, -100200}, cfg.Report.ChatIDs)
}
