package authz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type sourceStub struct {
	calls int
	perms []string
	err   error
}

func (s *sourceStub) AllPermissions(_ context.Context, _ ActorRef) ([]string, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.perms, nil
}

type cacheOpStub struct {
	hits, misses, errors int
}

func (m *cacheOpStub) CountCacheOp(result string) {
	switch result {
	case "hit":
		m.hits++
	case "miss":
		m.misses++
	case "error":
		m.errors++
	}
}

func newTestCache(t *testing.T, source PermissionSource) (*Cache, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, source, time.Hour, nil, nil), mr, client
}

func TestCacheReadThrough(t *testing.T) {
	source := &sourceStub{perms: []string{"orders.create"}}
	cache, _, _ := newTestCache(t, source)
	actor := ActorRef{ID: "u1", Kind: ActorKindEmployee}
	ctx := context.Background()

	require.Equal(t, []string{"orders.create"}, cache.Permissions(ctx, actor, "dept-bar"))
	require.Equal(t, 1, source.calls)

	require.Equal(t, []string{"orders.create"}, cache.Permissions(ctx, actor, "dept-bar"))
	require.Equal(t, 1, source.calls, "second read must be served from cache")
}

func TestCacheKeysAreScopeSpecific(t *testing.T) {
	source := &sourceStub{perms: []string{"orders.create"}}
	cache, _, _ := newTestCache(t, source)
	actor := ActorRef{ID: "u1", Kind: ActorKindEmployee}
	ctx := context.Background()

	cache.Permissions(ctx, actor, "dept-bar")
	cache.Permissions(ctx, actor, ScopeGlobal)
	require.Equal(t, 2, source.calls)
}

func TestCacheInvalidateClearsStaleEntry(t *testing.T) {
	source := &sourceStub{}
	cache, mr, _ := newTestCache(t, source)
	actor := ActorRef{ID: "u1", Kind: ActorKindEmployee}
	ctx := context.Background()

	// Seed a stale empty set, as if the grant happened after this was cached.
	require.NoError(t, mr.Set(Key(actor, "dept-bar"), "[]"))

	require.Empty(t, cache.Permissions(ctx, actor, "dept-bar"))

	source.perms = []string{"payments.refund"}
	cache.Invalidate(ctx, actor.ID, actor.Kind)

	require.Equal(t, []string{"payments.refund"}, cache.Permissions(ctx, actor, "dept-bar"),
		"read after invalidation must reflect the new grant")
}

func TestCacheInvalidateAllKindsWhenUnspecified(t *testing.T) {
	source := &sourceStub{perms: []string{"x"}}
	cache, mr, _ := newTestCache(t, source)
	ctx := context.Background()

	cache.Permissions(ctx, ActorRef{ID: "u1", Kind: ActorKindEmployee}, "dept-bar")
	cache.Permissions(ctx, ActorRef{ID: "u1", Kind: ActorKindAdmin}, "dept-bar")
	cache.Permissions(ctx, ActorRef{ID: "u2", Kind: ActorKindEmployee}, "dept-bar")

	cache.Invalidate(ctx, "u1")

	require.False(t, mr.Exists(Key(ActorRef{ID: "u1", Kind: ActorKindEmployee}, "dept-bar")))
	require.False(t, mr.Exists(Key(ActorRef{ID: "u1", Kind: ActorKindAdmin}, "dept-bar")))
	require.True(t, mr.Exists(Key(ActorRef{ID: "u2", Kind: ActorKindEmployee}, "dept-bar")), "other actors stay cached")
}

func TestCacheInvalidateScope(t *testing.T) {
	source := &sourceStub{perms: []string{"x"}}
	cache, mr, _ := newTestCache(t, source)
	ctx := context.Background()

	cache.Permissions(ctx, ActorRef{ID: "u1", Kind: ActorKindEmployee}, "dept-bar")
	cache.Permissions(ctx, ActorRef{ID: "u2", Kind: ActorKindEmployee}, "dept-bar")
	cache.Permissions(ctx, ActorRef{ID: "u2", Kind: ActorKindEmployee}, "dept-restaurant")

	cache.InvalidateScope(ctx, "dept-bar")

	require.False(t, mr.Exists(Key(ActorRef{ID: "u1", Kind: ActorKindEmployee}, "dept-bar")))
	require.False(t, mr.Exists(Key(ActorRef{ID: "u2", Kind: ActorKindEmployee}, "dept-bar")))
	require.True(t, mr.Exists(Key(ActorRef{ID: "u2", Kind: ActorKindEmployee}, "dept-restaurant")))
}

func TestCacheSkipsCachingWhenSourceFails(t *testing.T) {
	source := &sourceStub{err: errStoreDown}
	cache, mr, _ := newTestCache(t, source)
	actor := ActorRef{ID: "u1", Kind: ActorKindEmployee}
	ctx := context.Background()

	require.Empty(t, cache.Permissions(ctx, actor, "dept-bar"))
	require.False(t, mr.Exists(Key(actor, "dept-bar")), "a failed recompute must not be cached")

	source.err = nil
	source.perms = []string{"orders.create"}
	require.Equal(t, []string{"orders.create"}, cache.Permissions(ctx, actor, "dept-bar"),
		"first read after the store recovers must see the real set")
	require.Equal(t, 2, source.calls)
}

func TestCacheCountsLookupOutcomes(t *testing.T) {
	source := &sourceStub{perms: []string{"orders.create"}}
	meter := &cacheOpStub{}
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	cache := NewCache(client, source, time.Hour, nil, meter)
	actor := ActorRef{ID: "u1", Kind: ActorKindEmployee}
	ctx := context.Background()

	cache.Permissions(ctx, actor, "dept-bar")
	cache.Permissions(ctx, actor, "dept-bar")
	require.Equal(t, 1, meter.misses)
	require.Equal(t, 1, meter.hits)

	mr.Close()
	cache.Permissions(ctx, actor, "dept-bar")
	require.Equal(t, 1, meter.errors)
}

func TestCacheBypassesWithoutClient(t *testing.T) {
	source := &sourceStub{perms: []string{"orders.create"}}
	cache := NewCache(nil, source, time.Hour, nil, nil)
	actor := ActorRef{ID: "u1", Kind: ActorKindEmployee}
	ctx := context.Background()

	require.Equal(t, []string{"orders.create"}, cache.Permissions(ctx, actor, ""))
	require.Equal(t, []string{"orders.create"}, cache.Permissions(ctx, actor, ""))
	require.Equal(t, 2, source.calls, "no backend means every read hits the source")
}

func TestCacheDegradesToSourceOnBackendError(t *testing.T) {
	source := &sourceStub{perms: []string{"orders.create"}}
	cache, mr, _ := newTestCache(t, source)
	mr.Close()

	perms := cache.Permissions(context.Background(), ActorRef{ID: "u1", Kind: ActorKindEmployee}, "dept-bar")
	require.Equal(t, []string{"orders.create"}, perms)
	require.Equal(t, 1, source.calls)
}

func TestCacheTTLExpiry(t *testing.T) {
	source := &sourceStub{perms: []string{"orders.create"}}
	cache, mr, _ := newTestCache(t, source)
	actor := ActorRef{ID: "u1", Kind: ActorKindEmployee}
	ctx := context.Background()

	cache.Permissions(ctx, actor, "dept-bar")
	mr.FastForward(2 * time.Hour)
	cache.Permissions(ctx, actor, "dept-bar")
	require.Equal(t, 2, source.calls, "expired entry recomputes")
}
