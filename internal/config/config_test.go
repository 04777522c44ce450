package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load(lookup(nil))
		require.NoError(t, err)
		assert.Equal(t, Default(), cfg)
	})

	t.Run("environment overrides", func(t *testing.T) {
		cfg, err := Load(lookup(map[string]string{
			"PAGETREE_LOG_LEVEL":      "debug",
			"PAGETREE_REGISTRY":       "/tmp/r.db",
			"PAGETREE_HEADLESS":       "false",
			"PAGETREE_NAV_TIMEOUT":    "2s",
			"PAGETREE_BROWSER_URL":    "ws://127.0.0.1:9222",
			"PAGETREE_SETTLE_TIMEOUT": "250ms",
		}))
		require.NoError(t, err)
		assert.Equal(t, "debug", cfg.LogLevel)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.Equal(t, "/tmp/r.db", cfg.Registry)
		assert.False(t, cfg.Headless)
		assert.Equal(t, 2*time.Second, cfg.NavTimeout)
		assert.Equal(t, 250*time.Millisecond, cfg.SettleTimeout)
		assert.Equal(t, "ws://127.0.0.1:9222", cfg.BrowserURL)
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := Load(lookup(map[string]string{"PAGETREE_NAV_TIMEOUT": "soon"}))
		assert.Error(t, err)
	})
}
