package timeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"familytree/internal/model"
	"familytree/pkg/metrics"
)

const cacheGenKey = "timeline:gen"

// Cache holds recently merged timeline listings in Redis. Invalidation bumps
// a generation counter instead of scanning keys; stale generations expire on
// their own TTL. A cache hit skips the sweep, so promotion lag is bounded by
// the TTL on top of request traffic.
type Cache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

func NewCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Cache {
	return &Cache{rdb: rdb, ttl: ttl, logger: logger}
}

func (c *Cache) enabled() bool {
	return c != nil && c.rdb != nil
}

// Get returns the cached listing for the filter, if present.
func (c *Cache) Get(ctx context.Context, f model.TimelineFilter) ([]model.TimelineEntry, bool) {
	if !c.enabled() {
		metrics.TimelineCacheHits.WithLabelValues("bypass").Inc()
		return nil, false
	}

	key, err := c.key(ctx, f)
	if err != nil {
		metrics.TimelineCacheHits.WithLabelValues("bypass").Inc()
		return nil, false
	}

	data, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		metrics.TimelineCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}

	var entries []model.TimelineEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		c.logger.Warn("Failed to decode cached timeline", zap.Error(err))
		metrics.TimelineCacheHits.WithLabelValues("miss").Inc()
		return nil, false
	}

	metrics.TimelineCacheHits.WithLabelValues("hit").Inc()
	return entries, true
}

// Set stores the listing for the filter under the current generation.
func (c *Cache) Set(ctx context.Context, f model.TimelineFilter, entries []model.TimelineEntry) {
	if !c.enabled() {
		return
	}

	key, err := c.key(ctx, f)
	if err != nil {
		return
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return
	}

	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("Failed to cache timeline listing", zap.Error(err))
	}
}

// Invalidate bumps the generation so every cached listing becomes unreachable.
func (c *Cache) Invalidate(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.rdb.Incr(ctx, cacheGenKey).Err(); err != nil {
		c.logger.Warn("Failed to invalidate timeline cache", zap.Error(err))
	}
}

func (c *Cache) key(ctx context.Context, f model.TimelineFilter) (string, error) {
	gen, err := c.rdb.Get(ctx, cacheGenKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}

	from, to := "", ""
	if f.From != nil {
		from = f.From.UTC().Format(time.RFC3339)
	}
	if f.To != nil {
		to = f.To.UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("timeline:list:%d:%s|%s|%s|%s", gen, f.Type, from, to, f.FamilyMemberID), nil
}
