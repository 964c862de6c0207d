package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := defaultConfig()

	assert.Equal(t, "8001", cfg.Port)
	assert.Equal(t, "postgres", cfg.Database.Type)
	assert.Equal(t, time.Minute, cfg.Cache.TTL)
	assert.Equal(t, []string{"facebook", "twitter", "telegram"}, cfg.API.SocialNetworks)
	assert.Equal(t, "topojson", cfg.API.GeoFormatDefault)
	assert.Equal(t, int64(1209600), cfg.API.TimeWindowMax)
	assert.Equal(t, 14*24*time.Hour, cfg.TimeWindowMaxDuration())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DB_TYPE", "sqlite")
	t.Setenv("DB_NAME", "/tmp/floodwatch.db")
	t.Setenv("CACHE", "true")
	t.Setenv("CACHE_TTL", "30s")
	t.Setenv("SOCIAL_NETWORKS", "twitter, telegram")
	t.Setenv("API_REPORTS_TIME_WINDOW_MAX", "3600")
	t.Setenv("LOG_JSON", "true")

	cfg := defaultConfig()
	cfg.applyEnv()

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "sqlite", cfg.Database.Type)
	assert.Equal(t, "/tmp/floodwatch.db", cfg.Database.Name)
	assert.True(t, cfg.Cache.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Cache.TTL)
	assert.Equal(t, []string{"twitter", "telegram"}, cfg.API.SocialNetworks)
	assert.Equal(t, int64(3600), cfg.API.TimeWindowMax)
	assert.True(t, cfg.Log.JSON)
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "TRUE", "yes", "on", " enabled "} {
		assert.True(t, IsTruthy(v), v)
	}
	for _, v := range []string{"", "0", "false", "off", "nope"} {
		assert.False(t, IsTruthy(v), v)
	}
}

func TestEmptyListEnvKeepsDefault(t *testing.T) {
	t.Setenv("REGION_CODES", " , ,")

	cfg := defaultConfig()
	cfg.applyEnv()

	require.NotEmpty(t, cfg.API.RegionCodes)
	assert.Equal(t, []string{"jbd", "bdg", "sby"}, cfg.API.RegionCodes)
}
