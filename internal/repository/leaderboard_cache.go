package repository

import (
	"context"
	"encoding/json"
	"strconv"
	"study_buddy_backend/internal/model"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	leaderboardGenerationKey = "gamification:leaderboard:gen"
	leaderboardKeyPrefix     = "gamification:leaderboard:"
)

// LeaderboardCache 按代号和 limit 缓存排行榜。任一用户经验变化时代号加一，
// 旧代号下的数据不再被读取，等 TTL 到期自然删除。
// Redis 为 nil 时所有操作为空实现。
type LeaderboardCache struct {
	Redis *redis.Client
	ttl   atomic.Int64
}

func NewLeaderboardCache(rdb *redis.Client, ttl time.Duration) *LeaderboardCache {
	c := &LeaderboardCache{Redis: rdb}
	c.SetTTL(ttl)
	return c
}

// SetTTL 配置热更新时调整
func (c *LeaderboardCache) SetTTL(ttl time.Duration) {
	c.ttl.Store(int64(ttl))
}

func (c *LeaderboardCache) TTL() time.Duration {
	return time.Duration(c.ttl.Load())
}

func leaderboardKey(gen int64) string {
	return leaderboardKeyPrefix + strconv.FormatInt(gen, 10)
}

// Generation 当前代号，从未失效过时为 0
func (c *LeaderboardCache) Generation(ctx context.Context) (int64, error) {
	if c == nil || c.Redis == nil {
		return 0, nil
	}
	gen, err := c.Redis.Get(ctx, leaderboardGenerationKey).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return gen, err
}

// Get 读取当前代号下的缓存，未命中返回 nil, false
func (c *LeaderboardCache) Get(ctx context.Context, limit int) ([]model.LeaderboardEntry, bool, error) {
	if c == nil || c.Redis == nil {
		return nil, false, nil
	}
	gen, err := c.Generation(ctx)
	if err != nil {
		return nil, false, err
	}
	raw, err := c.Redis.HGet(ctx, leaderboardKey(gen), strconv.Itoa(limit)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entries []model.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false, err
	}
	return entries, true, nil
}

// Set 写入查询开始前读到的代号。期间发生过失效时写入的是旧代号，不会被读到。
func (c *LeaderboardCache) Set(ctx context.Context, gen int64, limit int, entries []model.LeaderboardEntry) error {
	if c == nil || c.Redis == nil || c.TTL() <= 0 {
		return nil
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return err
	}

	key := leaderboardKey(gen)
	pipe := c.Redis.TxPipeline()
	pipe.HSet(ctx, key, strconv.Itoa(limit), raw)
	pipe.Expire(ctx, key, c.TTL())
	_, err = pipe.Exec(ctx)
	return err
}

func (c *LeaderboardCache) Invalidate(ctx context.Context) error {
	if c == nil || c.Redis == nil {
		return nil
	}
	return c.Redis.Incr(ctx, leaderboardGenerationKey).Err()
}
