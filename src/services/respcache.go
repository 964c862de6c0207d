// Package services provides the response cache and geo formatting used by
// the HTTP handlers.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/apimgr/floodwatch/src/config"
)

// CachedResponse is a fully formatted response payload stored for idempotent
// GET routes. Entries are replaced whole on write, never mutated in place.
type CachedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// ResponseCache stores formatted GET responses for a fixed per-route TTL.
// Writes to alert state do not purge cached reads; staleness up to one TTL
// window is an accepted tradeoff.
type ResponseCache interface {
	Get(key string) (*CachedResponse, bool)
	Set(key string, resp *CachedResponse)
}

// CacheKey derives the cache identity from the raw request, before any
// validation or normalization runs.
func CacheKey(method, path, rawQuery string) string {
	if rawQuery == "" {
		return method + " " + path
	}
	return method + " " + path + "?" + rawQuery
}

// NewResponseCache builds the response cache for the configured backend.
// Redis is used when configured and reachable; otherwise caching degrades to
// the in-process store rather than failing the server. With caching disabled
// every lookup misses.
func NewResponseCache(cfg config.CacheConfig, logger *logrus.Logger) ResponseCache {
	if !cfg.Enabled {
		return NopCache{}
	}

	if cfg.Host != "" {
		client := redis.NewClient(&redis.Options{
			Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		if err := client.Ping(ctx).Err(); err == nil {
			logger.WithField("addr", client.Options().Addr).Info("response cache: using redis")
			return &RedisCache{client: client, ttl: cfg.TTL}
		}
		client.Close()
		logger.Warn("response cache: redis unreachable, falling back to memory")
	}

	return NewMemoryCache(cfg.TTL)
}

// NopCache is used when response caching is disabled
type NopCache struct{}

// Get always misses
func (NopCache) Get(string) (*CachedResponse, bool) { return nil, false }

// Set discards the response
func (NopCache) Set(string, *CachedResponse) {}

// MemoryCache is the in-process TTL cache
type MemoryCache struct {
	store *gocache.Cache
}

// NewMemoryCache creates a memory-backed response cache with the given TTL
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &MemoryCache{store: gocache.New(ttl, 2*ttl)}
}

// Get returns the cached response for key, if present and unexpired
func (m *MemoryCache) Get(key string) (*CachedResponse, bool) {
	v, found := m.store.Get(key)
	if !found {
		return nil, false
	}
	resp, ok := v.(*CachedResponse)
	return resp, ok
}

// Set stores a response under key for the cache's TTL
func (m *MemoryCache) Set(key string, resp *CachedResponse) {
	m.store.SetDefault(key, resp)
}

// RedisCache stores responses in Redis/Valkey so a cache survives restarts
// and is shared between replicas
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
}

// Get returns the cached response for key, if present
func (r *RedisCache) Get(key string) (*CachedResponse, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}

	var resp CachedResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, false
	}
	return &resp, true
}

// Set stores a response under key for the cache's TTL
func (r *RedisCache) Set(key string, resp *CachedResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_ = r.client.Set(ctx, key, data, r.ttl).Err()
}
