package authz

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const (
	cacheKeyPrefix = "authz:perms:"
	// DefaultCacheTTL bounds how long a resolved permission set may go stale
	// when an invalidation is missed.
	DefaultCacheTTL = time.Hour
)

// PermissionSource recomputes an actor's permission set on cache miss. The
// Resolver implements it. A non-nil error marks the returned set as a failed
// computation that must not be cached.
type PermissionSource interface {
	AllPermissions(ctx context.Context, actor ActorRef) ([]string, error)
}

// CacheMetrics counts cache lookup outcomes. The observability package
// implements it.
type CacheMetrics interface {
	CountCacheOp(result string)
}

// Cache is a read-through Redis cache of resolved permission sets. It is an
// optimisation layer, never a correctness dependency: with no client
// configured, or on backend read errors, it degrades to the source.
type Cache struct {
	client  *redis.Client
	source  PermissionSource
	ttl     time.Duration
	logger  *slog.Logger
	metrics CacheMetrics
	group   singleflight.Group
}

// NewCache constructs a Cache. client may be nil to bypass caching entirely;
// metrics may be nil.
func NewCache(client *redis.Client, source PermissionSource, ttl time.Duration, logger *slog.Logger, metrics CacheMetrics) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{client: client, source: source, ttl: ttl, logger: logger, metrics: metrics}
}

// Key builds the cache key for an (actor, scope) pair.
func Key(actor ActorRef, scope string) string {
	return cacheKeyPrefix + string(actor.Kind) + ":" + actor.ID + ":" + scopeSegment(scope)
}

func scopeSegment(scope string) string {
	if scope == ScopeGlobal {
		return "global"
	}
	return scope
}

// Permissions returns the actor's permission set, reading through the cache.
// Concurrent misses for the same key collapse into one recomputation.
func (c *Cache) Permissions(ctx context.Context, actor ActorRef, scope string) []string {
	if c.client == nil {
		perms, _ := c.source.AllPermissions(ctx, actor)
		return perms
	}
	key := Key(actor, scope)
	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var perms []string
		uerr := json.Unmarshal(payload, &perms)
		if uerr == nil {
			c.countOp("hit")
			return perms
		}
		c.warn("decode cached permissions", key, uerr)
	} else if err != redis.Nil {
		c.warn("cache read", key, err)
		c.countOp("error")
		perms, _ := c.source.AllPermissions(ctx, actor)
		return perms
	}
	c.countOp("miss")

	result, _, _ := c.group.Do(key, func() (any, error) {
		perms, serr := c.source.AllPermissions(ctx, actor)
		if serr != nil {
			// A set we could not compute must not be cached: the deny stays
			// per-read and the next lookup retries the store.
			return perms, nil
		}
		data, merr := json.Marshal(perms)
		if merr != nil {
			return perms, nil
		}
		if werr := c.client.Set(ctx, key, data, c.ttl).Err(); werr != nil {
			c.warn("cache write", key, werr)
		}
		return perms, nil
	})
	perms, _ := result.([]string)
	return perms
}

// Invalidate deletes every cached set for the actor id across all scopes,
// optionally narrowed to specific kinds. Backend errors are logged and never
// surfaced: administration availability wins over perfect coherence, at the
// cost of serving a stale set up to the TTL.
func (c *Cache) Invalidate(ctx context.Context, actorID string, kinds ...ActorKind) {
	if c.client == nil {
		return
	}
	patterns := make([]string, 0, len(kinds))
	if len(kinds) == 0 {
		patterns = append(patterns, cacheKeyPrefix+"*:"+actorID+":*")
	}
	for _, kind := range kinds {
		patterns = append(patterns, cacheKeyPrefix+string(kind)+":"+actorID+":*")
	}
	for _, pattern := range patterns {
		c.deleteByPattern(ctx, pattern)
	}
}

// InvalidateScope deletes every cached set under the scope, for any actor.
// Used when a role's permission bundle changes and every holder is affected.
func (c *Cache) InvalidateScope(ctx context.Context, scope string) {
	if c.client == nil {
		return
	}
	c.deleteByPattern(ctx, cacheKeyPrefix+"*:*:"+scopeSegment(scope))
}

// InvalidateAll clears the whole permission cache namespace.
func (c *Cache) InvalidateAll(ctx context.Context) {
	if c.client == nil {
		return
	}
	c.deleteByPattern(ctx, cacheKeyPrefix+"*")
}

func (c *Cache) deleteByPattern(ctx context.Context, pattern string) {
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		c.warn("cache scan", pattern, err)
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.warn("cache delete", pattern, err)
	}
}

func (c *Cache) countOp(result string) {
	if c.metrics == nil {
		return
	}
	c.metrics.CountCacheOp(result)
}

func (c *Cache) warn(op, key string, err error) {
	if c.logger == nil {
		return
	}
	c.logger.Warn(fmt.Sprintf("authz cache %s", op), slog.String("key", key), slog.Any("error", err))
}
