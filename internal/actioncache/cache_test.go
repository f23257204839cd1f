package actioncache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/cuteforcute-bot/internal/domain"
	appredis "github.com/Proton-105/cuteforcute-bot/pkg/redis"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })

	cache := New(appredis.Wrap(rdb), testLogger(), Options{})
	return cache, mr
}

func hug() domain.Action {
	return domain.Action{ID: 1, Name: "Hug", Emoji: "🤗", Infinitive: "hug", PastTense: "hugged", GenitiveNoun: "a hug", IsActive: true}
}

func TestCache_AllActionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, mr := setupCache(t)

	_, ok := cache.GetAllActions(ctx)
	assert.False(t, ok)

	cache.SetAllActions(ctx, []domain.Action{hug()})

	got, ok := cache.GetAllActions(ctx)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "hugged", got[0].PastTense)
	assert.Equal(t, DefaultAllActionsTTL, mr.TTL(AllActionsKey))
}

func TestCache_EmptySnapshotIsAHit(t *testing.T) {
	ctx := context.Background()
	cache, _ := setupCache(t)

	cache.SetAllActions(ctx, nil)

	got, ok := cache.GetAllActions(ctx)
	assert.True(t, ok)
	assert.Empty(t, got)
}

func TestCache_ActionRoundTrip(t *testing.T) {
	ctx := context.Background()
	cache, mr := setupCache(t)

	action := hug()
	cache.SetAction(ctx, &action)

	got, ok := cache.GetAction(ctx, "Hug")
	require.True(t, ok)
	assert.Equal(t, action.Emoji, got.Emoji)
	assert.Equal(t, DefaultActionTTL, mr.TTL(ActionKeyPrefix+"Hug"))

	_, ok = cache.GetAction(ctx, "Kiss")
	assert.False(t, ok)
}

func TestCache_InvalidateAll(t *testing.T) {
	ctx := context.Background()
	cache, mr := setupCache(t)

	a, b := hug(), hug()
	b.Name = "Kiss"
	cache.SetAllActions(ctx, []domain.Action{a, b})
	cache.SetAction(ctx, &a)
	cache.SetAction(ctx, &b)
	require.NoError(t, mr.Set("unrelated", "keep"))

	cache.InvalidateAll(ctx)

	assert.False(t, mr.Exists(AllActionsKey))
	assert.False(t, mr.Exists(ActionKeyPrefix+"Hug"))
	assert.False(t, mr.Exists(ActionKeyPrefix+"Kiss"))
	assert.True(t, mr.Exists("unrelated"))
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	ctx := context.Background()
	cache, mr := setupCache(t)

	require.NoError(t, mr.Set(AllActionsKey, "{not json"))

	_, ok := cache.GetAllActions(ctx)
	assert.False(t, ok)
}

func TestCache_BackendDownIsMiss(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cache, mr := setupCache(t)
	action := hug()
	cache.SetAction(ctx, &action)
	mr.Close()

	_, ok := cache.GetAction(ctx, "Hug")
	assert.False(t, ok)

	assert.NotPanics(t, func() {
		cache.SetAllActions(ctx, []domain.Action{action})
		cache.InvalidateAll(ctx)
	})
	assert.Error(t, cache.Ping(ctx))
}

func TestCache_NilIsAlwaysMiss(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	_, ok := cache.GetAllActions(ctx)
	assert.False(t, ok)
	assert.NotPanics(t, func() { cache.InvalidateAll(ctx) })

	empty := New(nil, nil, Options{})
	_, ok = empty.GetAction(ctx, "Hug")
	assert.False(t, ok)
	assert.Error(t, empty.Ping(ctx))
}
