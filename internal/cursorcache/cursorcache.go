// Package cursorcache provides an optional, non-authoritative cache of each
// video's latest_seen_id, per spec.md §4.M. It exists purely to let the
// orchestrator skip a cold re-scan of full history after a restart; the
// database's comment log remains the single source of truth, and a cache
// miss or Redis outage degrades to "start from empty," never to an error.
package cursorcache

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps a Redis client scoped to latest_seen_id lookups.
type Cache struct {
	rdb *redis.Client
	lg  *slog.Logger
	ttl time.Duration
}

// New builds a Cache against addr. An empty addr disables the cache: every
// Get returns "", nil and every Set is a no-op, so callers never need a nil
// check.
func New(addr string, lg *slog.Logger) *Cache {
	if addr == "" {
		return &Cache{lg: lg}
	}
	return &Cache{
		rdb: redis.NewClient(&redis.Options{Addr: addr}),
		lg:  lg,
		ttl: 24 * time.Hour,
	}
}

// Get returns the cached latest_seen_id for videoID, or "" if unset, cache
// disabled, or Redis is unreachable. Errors are logged, not returned: the
// cache is advisory only.
func (c *Cache) Get(ctx context.Context, videoID string) string {
	if c.rdb == nil {
		return ""
	}
	v, err := c.rdb.Get(ctx, key(videoID)).Result()
	if err != nil && err != redis.Nil {
		c.lg.Warn("cursor_cache_get_failed", "video_id", videoID, "error", err.Error())
	}
	return v
}

// Set records videoID's latest_seen_id with a TTL, best-effort.
func (c *Cache) Set(ctx context.Context, videoID, commentID string) {
	if c.rdb == nil {
		return
	}
	if err := c.rdb.Set(ctx, key(videoID), commentID, c.ttl).Err(); err != nil {
		c.lg.Warn("cursor_cache_set_failed", "video_id", videoID, "error", err.Error())
	}
}

// Close releases the underlying Redis connection, if any.
func (c *Cache) Close() {
	if c.rdb != nil {
		c.rdb.Close()
	}
}

func key(videoID string) string { return "commentwatch:cursor:" + videoID }
