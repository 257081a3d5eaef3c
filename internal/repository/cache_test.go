package repository

import (
	"context"
	"testing"
	"time"

	"study_buddy_backend/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestLeaderboardCache(t *testing.T) {
	mr, rdb := newTestRedis(t)
	cache := NewLeaderboardCache(rdb, 30*time.Second)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, 10)
	require.NoError(t, err)
	assert.False(t, ok)

	entries := []model.LeaderboardEntry{{Rank: 1, UserID: 3, Username: "c", XP: 300, Level: 3}}
	require.NoError(t, cache.Set(ctx, 0, 10, entries))

	got, ok, err := cache.Get(ctx, 10)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, entries, got)

	_, ok, _ = cache.Get(ctx, 5)
	assert.False(t, ok, "limit is part of the cache key")

	mr.FastForward(31 * time.Second)
	_, ok, _ = cache.Get(ctx, 10)
	assert.False(t, ok, "entry expires after ttl")

	require.NoError(t, cache.Set(ctx, 0, 10, entries))
	require.NoError(t, cache.Invalidate(ctx))
	_, ok, _ = cache.Get(ctx, 10)
	assert.False(t, ok)
}

func TestLeaderboardCache_StaleGenerationIgnored(t *testing.T) {
	_, rdb := newTestRedis(t)
	cache := NewLeaderboardCache(rdb, time.Minute)
	ctx := context.Background()

	// 查询开始前读到代号，查询期间被失效
	gen, err := cache.Generation(ctx)
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(ctx))

	stale := []model.LeaderboardEntry{{Rank: 1, UserID: 1, XP: 10}}
	require.NoError(t, cache.Set(ctx, gen, 10, stale))
	_, ok, err := cache.Get(ctx, 10)
	require.NoError(t, err)
	assert.False(t, ok, "write from an older generation is not visible")

	current, err := cache.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, gen+1, current)

	fresh := []model.LeaderboardEntry{{Rank: 1, UserID: 2, XP: 60}}
	require.NoError(t, cache.Set(ctx, current, 10, fresh))
	got, ok, err := cache.Get(ctx, 10)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, fresh, got)
}

func TestLeaderboardCache_Disabled(t *testing.T) {
	ctx := context.Background()
	cache := NewLeaderboardCache(nil, time.Minute)

	require.NoError(t, cache.Set(ctx, 0, 10, []model.LeaderboardEntry{{Rank: 1}}))
	_, ok, err := cache.Get(ctx, 10)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, cache.Invalidate(ctx))
}

func TestPendingEvaluations(t *testing.T) {
	_, rdb := newTestRedis(t)

	for name, pending := range map[string]*PendingEvaluations{
		"redis":  NewPendingEvaluations(rdb),
		"memory": NewPendingEvaluations(nil),
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, pending.Add(ctx, 1))
			require.NoError(t, pending.Add(ctx, 2))
			require.NoError(t, pending.Add(ctx, 1))

			n, err := pending.Len(ctx)
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)

			first, err := pending.Drain(ctx, 1)
			require.NoError(t, err)
			assert.Len(t, first, 1)

			rest, err := pending.Drain(ctx, 0)
			require.NoError(t, err)
			assert.ElementsMatch(t, []uint{1, 2}, append(first, rest...))

			empty, err := pending.Drain(ctx, 0)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}
