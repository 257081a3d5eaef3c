package repository

import (
	"context"
	"strconv"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/samber/lo"
)

const pendingEvaluationKey = "gamification:badge:pending"

// PendingEvaluations 徽章评估失败待重试的用户集合。
// 有 Redis 时多实例共享，否则退化为进程内集合。
type PendingEvaluations struct {
	Redis *redis.Client

	mu    sync.Mutex
	local map[uint]struct{}
}

func NewPendingEvaluations(rdb *redis.Client) *PendingEvaluations {
	return &PendingEvaluations{
		Redis: rdb,
		local: make(map[uint]struct{}),
	}
}

func (p *PendingEvaluations) Add(ctx context.Context, userID uint) error {
	if p.Redis != nil {
		return p.Redis.SAdd(ctx, pendingEvaluationKey, strconv.FormatUint(uint64(userID), 10)).Err()
	}
	p.mu.Lock()
	p.local[userID] = struct{}{}
	p.mu.Unlock()
	return nil
}

// Drain 取出最多 limit 个待重试用户并从集合中移除，limit <= 0 表示全部
func (p *PendingEvaluations) Drain(ctx context.Context, limit int) ([]uint, error) {
	if p.Redis != nil {
		count := int64(limit)
		if limit <= 0 {
			n, err := p.Redis.SCard(ctx, pendingEvaluationKey).Result()
			if err != nil {
				return nil, err
			}
			count = n
		}
		if count == 0 {
			return nil, nil
		}
		members, err := p.Redis.SPopN(ctx, pendingEvaluationKey, count).Result()
		if err != nil {
			return nil, err
		}
		return lo.FilterMap(members, func(m string, _ int) (uint, bool) {
			id, err := strconv.ParseUint(m, 10, 64)
			return uint(id), err == nil && id != 0
		}), nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]uint, 0, len(p.local))
	for id := range p.local {
		if limit > 0 && len(ids) >= limit {
			break
		}
		ids = append(ids, id)
		delete(p.local, id)
	}
	return ids, nil
}

func (p *PendingEvaluations) Len(ctx context.Context) (int64, error) {
	if p.Redis != nil {
		return p.Redis.SCard(ctx, pendingEvaluationKey).Result()
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return int64(len(p.local)), nil
}
