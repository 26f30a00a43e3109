package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Search.DefaultLimit)
	assert.Equal(t, 100, cfg.Search.DeepLimit)
	assert.InDelta(t, 4.97, cfg.Search.RONPerEUR, 0.001)
	assert.Equal(t, 15000, cfg.Repair.LuxuryFloorEUR)
	assert.Equal(t, "https://www.olx.ro", cfg.Sources.OLXBaseURL)
	assert.Equal(t, "https://www.autovit.ro", cfg.Sources.AutovitBaseURL)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("CARSNIPER_SERVER_PORT", "9999")
	t.Setenv("CARSNIPER_STORE_DRIVER", "postgres")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9999, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Store.Driver)
}

func TestDurationHelpers(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12*time.Second, cfg.Sources.FetchTimeout())
	assert.Equal(t, time.Minute, cfg.Sources.PageCacheTTL())
	assert.Equal(t, 8*time.Second, cfg.Repair.Timeout())
	assert.Equal(t, 10*time.Minute, cfg.Search.CacheTTL())
}

func TestInitLoggerRejectsBadLevel(t *testing.T) {
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
	assert.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
}
