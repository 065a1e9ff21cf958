package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "ETH-USD", cfg.Pairs.USD.ID)
	assert.Equal(t, "ETH-EUR", cfg.Pairs.EUR.ID)
	assert.Equal(t, "2015-01-01", cfg.Pairs.USD.Epoch)
	assert.Equal(t, 300, cfg.Discovery.WindowDays)
	assert.Equal(t, 110*time.Millisecond, cfg.Discovery.PageDelay)
	assert.Equal(t, time.Second, cfg.Discovery.RetryDelay)
	assert.Equal(t, 10*time.Second, cfg.SpotCacheTTL())
	assert.Equal(t, 10000.0, cfg.Milestone)
	assert.NoError(t, cfg.Validate())
	assert.Error(t, cfg.ValidateNotifier())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
asset: BTC
pairs:
  eur:
    epoch: "2016-05-01"
discovery:
  window_days: 120
  extend_cached: true
cache:
  path: /tmp/from-file.json
telegram:
  bot_token: file-token
  chat_id: 42
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	t.Setenv("ATH_CACHE_PATH", "/tmp/from-env.json")
	t.Setenv("TELEGRAM_CHAT_ID", "1001")
	t.Setenv("SPOT_TTL", "30s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "BTC-USD", cfg.Pairs.USD.ID)
	assert.Equal(t, "2016-05-01", cfg.Pairs.EUR.Epoch)
	assert.Equal(t, 120, cfg.Discovery.WindowDays)
	assert.True(t, cfg.Discovery.ExtendCached)
	assert.Equal(t, "/tmp/from-env.json", cfg.Cache.Path)
	assert.Equal(t, int64(1001), cfg.Telegram.ChatID)
	assert.Equal(t, 30*time.Second, cfg.SpotCacheTTL())
	assert.NoError(t, cfg.ValidateNotifier())
}

func TestLoad_ZeroSpotTTLDisablesCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("spot_ttl: 0s\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.SpotTTL)
	assert.Zero(t, cfg.SpotCacheTTL())

	t.Setenv("SPOT_TTL", "0")
	cfg, err = Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Zero(t, cfg.SpotCacheTTL())
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("asset: [unterminated"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"bad epoch", func(c *Config) { c.Pairs.USD.Epoch = "2015-02-30" }},
		{"window too wide", func(c *Config) { c.Discovery.WindowDays = 301 }},
		{"negative attempts", func(c *Config) { c.Discovery.MaxAttempts = -1 }},
		{"negative milestone", func(c *Config) { c.Milestone = -5 }},
		{"same pair", func(c *Config) { c.Pairs.EUR.ID = c.Pairs.USD.ID }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "none.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
