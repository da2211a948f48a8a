package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30, cfg.Guard.RateLimit)
	assert.Equal(t, 5, cfg.Guard.BreakerThreshold)
	assert.Equal(t, ".permsync-cache", cfg.Cache.Dir)
	assert.Equal(t, 60, cfg.Cache.TTLMinutes)
	assert.Equal(t, []string{"primary"}, cfg.Sync.SourceAliases())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("GUARD_RATE_LIMIT", "99")
	t.Setenv("SYNC_ALIASES", "dev, staging ,prod")

	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, 99, cfg.Guard.RateLimit)
	assert.Equal(t, []string{"dev", "staging", "prod"}, cfg.Sync.SourceAliases())
}
