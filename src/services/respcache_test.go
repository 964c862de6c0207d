package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apimgr/floodwatch/src/config"
	"github.com/apimgr/floodwatch/src/utils"
)

func TestCacheKey(t *testing.T) {
	assert.Equal(t, "GET /alerts?username=u1&network=twitter",
		CacheKey("GET", "/alerts", "username=u1&network=twitter"))
	assert.Equal(t, "GET /reports/archive", CacheKey("GET", "/reports/archive", ""))
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute)

	_, found := c.Get("k")
	assert.False(t, found)

	resp := &CachedResponse{Status: 200, ContentType: "application/json", Body: []byte(`{"ok":true}`)}
	c.Set("k", resp)

	got, found := c.Get("k")
	require.True(t, found)
	assert.Equal(t, resp.Body, got.Body)
	assert.Equal(t, resp.ContentType, got.ContentType)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(20 * time.Millisecond)
	c.Set("k", &CachedResponse{Status: 200, Body: []byte("x")})

	_, found := c.Get("k")
	require.True(t, found)

	time.Sleep(40 * time.Millisecond)
	_, found = c.Get("k")
	assert.False(t, found)
}

func TestNopCacheAlwaysMisses(t *testing.T) {
	var c ResponseCache = NopCache{}
	c.Set("k", &CachedResponse{Status: 200})
	_, found := c.Get("k")
	assert.False(t, found)
}

func TestNewResponseCacheDisabled(t *testing.T) {
	logger := utils.NewLogger("error", false)
	c := NewResponseCache(config.CacheConfig{Enabled: false}, logger)
	assert.IsType(t, NopCache{}, c)
}

func TestNewResponseCacheMemoryFallback(t *testing.T) {
	logger := utils.NewLogger("error", false)
	// no redis host configured: in-process cache
	c := NewResponseCache(config.CacheConfig{Enabled: true, TTL: time.Minute}, logger)
	assert.IsType(t, &MemoryCache{}, c)
}
