package service

import (
	"context"
	"strconv"
	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/logger"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type LeaderboardService struct {
	Users  LeaderboardStore
	Cache  LeaderboardCacher
	Config config.GamificationConfig
	group  singleflight.Group
}

func NewLeaderboardService(users LeaderboardStore, cache LeaderboardCacher, cfg config.GamificationConfig) *LeaderboardService {
	return &LeaderboardService{
		Users:  users,
		Cache:  cache,
		Config: cfg,
	}
}

// GetLeaderboard 按经验降序，经验相同按用户 id 升序。limit 非正数取默认值，最多 100。
func (s *LeaderboardService) GetLeaderboard(ctx context.Context, limit int) ([]model.LeaderboardEntry, error) {
	limit = util.ClampLimit(limit, util.DefaultLeaderboardLimit, util.MaxLeaderboardLimit)

	// gen 为 -1 表示本次不写缓存
	gen := int64(-1)
	if s.Cache != nil {
		entries, ok, err := s.Cache.Get(ctx, limit)
		if err != nil {
			logger.Log.Warn("Leaderboard cache read failed", zap.Error(err))
		} else if ok {
			return entries, nil
		}
		// 代号必须在查库之前读取，查询期间的失效会让这次写入作废
		if gen, err = s.Cache.Generation(ctx); err != nil {
			logger.Log.Warn("Leaderboard cache generation read failed", zap.Error(err))
			gen = -1
		}
	}

	// 同一代号下缓存失效瞬间的并发请求只查一次库
	key := strconv.FormatInt(gen, 10) + ":" + strconv.Itoa(limit)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		readCtx, cancel := storeCall(ctx, s.Config.StoreTimeout())
		defer cancel()
		users, err := s.Users.FindTopByXP(readCtx, limit)
		if err != nil {
			return nil, err
		}

		entries := lo.Map(users, func(u model.User, i int) model.LeaderboardEntry {
			return model.LeaderboardEntry{
				Rank:      i + 1,
				UserID:    u.ID,
				Username:  u.Username,
				XP:        u.XP,
				Level:     u.Level,
				AvatarURL: u.AvatarURL,
			}
		})

		if gen >= 0 {
			if err := s.Cache.Set(ctx, gen, limit, entries); err != nil {
				logger.Log.Warn("Leaderboard cache write failed", zap.Error(err))
			}
		}
		return entries, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]model.LeaderboardEntry), nil
}

// InvalidateOnProgress 注册为 ProgressObserver，经验变化后使缓存失效
func (s *LeaderboardService) InvalidateOnProgress(ctx context.Context, userID uint, delta *ProgressDelta) {
	if s.Cache == nil || delta.XPEarned == 0 {
		return
	}
	if err := s.Cache.Invalidate(ctx); err != nil {
		logger.Log.Warn("Leaderboard cache invalidation failed",
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
	}
}
