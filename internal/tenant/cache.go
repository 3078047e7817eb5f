package tenant

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hugh/inkpress/internal/metrics"
	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "inkpress:tenant:slug:"

// Cache is a read-through cache of public tenant summaries keyed by slug.
// A nil *Cache, or one built without a redis client, caches nothing.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCache(rdb *redis.Client, ttl time.Duration, logger *slog.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *Cache) enabled() bool {
	return c != nil && c.rdb != nil
}

func cacheKey(slug string) string {
	return cacheKeyPrefix + slug
}

// Get returns the cached summary. Redis failures count as misses.
func (c *Cache) Get(ctx context.Context, slug string) (*Summary, bool) {
	if !c.enabled() {
		return nil, false
	}

	raw, err := c.rdb.Get(ctx, cacheKey(slug)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("tenant cache read failed", "slug", slug, "error", err)
		}
		metrics.TenantCacheCounter.WithLabelValues("miss").Inc()
		return nil, false
	}

	var s Summary
	if err := json.Unmarshal(raw, &s); err != nil {
		c.logger.Warn("tenant cache entry corrupt", "slug", slug, "error", err)
		metrics.TenantCacheCounter.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.TenantCacheCounter.WithLabelValues("hit").Inc()
	return &s, true
}

func (c *Cache) Set(ctx context.Context, s *Summary) {
	if !c.enabled() {
		return
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(s.Slug), raw, c.ttl).Err(); err != nil {
		c.logger.Warn("tenant cache write failed", "slug", s.Slug, "error", err)
	}
}

func (c *Cache) Invalidate(ctx context.Context, slug string) {
	if !c.enabled() {
		return
	}
	if err := c.rdb.Del(ctx, cacheKey(slug)).Err(); err != nil {
		c.logger.Warn("tenant cache invalidation failed", "slug", slug, "error", err)
	}
}
