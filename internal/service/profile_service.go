package service

import (
	"context"
	"math"
	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/gamification"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/util"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

const (
	recentSessionCount = 5
	weeklyWindow       = 7 * 24 * time.Hour
)

type ProfileService struct {
	Users        UserReader
	Sessions     SessionStore
	Achievements AchievementStore
	Clock        *gamification.Clock
	Config       config.GamificationConfig
}

func NewProfileService(
	users UserReader,
	sessions SessionStore,
	achievements AchievementStore,
	clock *gamification.Clock,
	cfg config.GamificationConfig,
) *ProfileService {
	return &ProfileService{
		Users:        users,
		Sessions:     sessions,
		Achievements: achievements,
		Clock:        clock,
		Config:       cfg,
	}
}

// GetProfile 用户信息、全部成就和最近 5 次学习，统计只基于这 5 次
func (s *ProfileService) GetProfile(ctx context.Context, userID uint) (*model.Profile, error) {
	var (
		user         *model.User
		achievements []model.Achievement
		recent       []model.StudySession
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		readCtx, cancel := storeCall(gctx, s.Config.StoreTimeout())
		defer cancel()
		var err error
		user, err = s.Users.GetUserProgress(readCtx, userID)
		return err
	})
	g.Go(func() error {
		readCtx, cancel := storeCall(gctx, s.Config.StoreTimeout())
		defer cancel()
		var err error
		achievements, err = s.Achievements.FindByUserID(readCtx, userID)
		return err
	})
	g.Go(func() error {
		readCtx, cancel := storeCall(gctx, s.Config.StoreTimeout())
		defer cancel()
		var err error
		recent, err = s.Sessions.QuerySessions(readCtx, userID, repository.SessionQuery{Newest: true, Limit: recentSessionCount})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	accuracy := lo.SumBy(recent, func(ss model.StudySession) float64 { return ss.AccuracyRate }) / float64(max(len(recent), 1))

	return &model.Profile{
		User: user,
		Stats: model.ProfileStats{
			TotalSessions:     len(recent),
			TotalCardsStudied: lo.SumBy(recent, func(ss model.StudySession) int { return ss.CardsStudied }),
			AverageAccuracy:   math.Round(accuracy*100) / 100,
			AchievementsCount: len(achievements),
			NextLevelXP:       gamification.NextLevelXP(user.XP),
		},
		Achievements:   achievements,
		RecentSessions: recent,
	}, nil
}

// WeeklyStats 最近 7 天按引擎时区的自然日汇总，日期升序
func (s *ProfileService) WeeklyStats(ctx context.Context, userID uint) (*model.WeeklyStats, error) {
	now := s.Clock.Now()
	since := now.Add(-weeklyWindow)

	readCtx, cancel := storeCall(ctx, s.Config.StoreTimeout())
	defer cancel()
	sessions, err := s.Sessions.QuerySessions(readCtx, userID, repository.SessionQuery{Since: &since})
	if err != nil {
		return nil, err
	}

	loc := s.Clock.Location()
	byDay := lo.GroupBy(sessions, func(ss model.StudySession) string {
		return ss.CreatedAt.In(loc).Format(util.DateFormat)
	})
	days := lo.Uniq(lo.Map(sessions, func(ss model.StudySession, _ int) string {
		return ss.CreatedAt.In(loc).Format(util.DateFormat)
	}))

	stats := &model.WeeklyStats{Days: make([]model.DailyStats, 0, len(days))}
	for _, day := range days {
		group := byDay[day]
		daily := model.DailyStats{
			Date:         day,
			Sessions:     len(group),
			CardsStudied: lo.SumBy(group, func(ss model.StudySession) int { return ss.CardsStudied }),
			XPEarned:     lo.SumBy(group, func(ss model.StudySession) int { return ss.XPEarned }),
			AvgAccuracy:  lo.SumBy(group, func(ss model.StudySession) float64 { return ss.AccuracyRate }) / float64(len(group)),
		}
		stats.Days = append(stats.Days, daily)
		stats.TotalWeekXP += daily.XPEarned
		stats.TotalWeekCards += daily.CardsStudied
	}
	return stats, nil
}
