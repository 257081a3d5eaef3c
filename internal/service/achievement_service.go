package service

import (
	"context"
	"errors"
	"fmt"
	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/gamification"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/logger"
	"study_buddy_backend/pkg/monitoring"
	"study_buddy_backend/pkg/tracing"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type AchievementService struct {
	Users        UserReader
	Sessions     SessionStore
	Achievements AchievementStore
	Pending      PendingQueue
	Clock        *gamification.Clock
	Config       config.GamificationConfig
}

func NewAchievementService(
	users UserReader,
	sessions SessionStore,
	achievements AchievementStore,
	pending PendingQueue,
	clock *gamification.Clock,
	cfg config.GamificationConfig,
) *AchievementService {
	return &AchievementService{
		Users:        users,
		Sessions:     sessions,
		Achievements: achievements,
		Pending:      pending,
		Clock:        clock,
		Config:       cfg,
	}
}

type snapshot struct {
	history gamification.History
	owned   map[gamification.BadgeType]bool
}

// EvaluateAchievements 按徽章目录检查用户尚未获得的徽章并写入新获得的。
// 单个徽章失败不影响其他徽章，所有失败合并后与已授予的徽章一起返回。
func (s *AchievementService) EvaluateAchievements(ctx context.Context, userID uint) (awarded []gamification.BadgeType, err error) {
	ctx, span := tracing.StartSpan(ctx, "AchievementService.EvaluateAchievements",
		attribute.Int64("user.id", int64(userID)),
	)
	defer func() { tracing.EndSpan(span, err) }()

	snap, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, rule := range gamification.Badges() {
		if snap.owned[rule.Type] {
			continue
		}

		eligible, err := checkRule(rule, snap.history)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !eligible {
			continue
		}

		achievement := &model.Achievement{
			UserID:      userID,
			BadgeType:   rule.Type,
			EarnedAt:    s.Clock.Now().UTC(),
			Description: rule.Description,
		}
		writeCtx, cancel := storeCall(ctx, s.Config.StoreTimeout())
		err = s.Achievements.AppendAchievement(writeCtx, achievement)
		cancel()
		if errors.Is(err, util.ErrAchievementExists) {
			// 并发评估已写入
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("award badge %s: %w", rule.Type, err))
			continue
		}

		awarded = append(awarded, rule.Type)
		monitoring.BadgesAwarded.WithLabelValues(string(rule.Type)).Inc()
		logger.Log.Info("Badge awarded",
			zap.Uint("user_id", userID),
			zap.String("badge", string(rule.Type)),
		)
	}

	return awarded, errors.Join(errs...)
}

// EvaluateAfterSession 学习记录已提交后调用，评估失败时记入待重试队列，不向调用方返回错误
func (s *AchievementService) EvaluateAfterSession(ctx context.Context, userID uint) []gamification.BadgeType {
	awarded, err := s.EvaluateAchievements(ctx, userID)
	if err == nil {
		return awarded
	}

	monitoring.BadgeEvaluationFailures.Inc()
	logger.Log.Warn("Badge evaluation failed, queued for retry",
		zap.Uint("user_id", userID),
		zap.Error(err),
	)
	if s.Pending != nil {
		queueCtx, cancel := storeCall(context.WithoutCancel(ctx), s.Config.StoreTimeout())
		defer cancel()
		if qerr := s.Pending.Add(queueCtx, userID); qerr != nil {
			logger.Log.Error("Failed to queue badge evaluation",
				zap.Uint("user_id", userID),
				zap.Error(qerr),
			)
		}
	}
	return awarded
}

// RetryPending 重新评估队列中的用户，仍然失败的重新入队。返回处理的用户数。
func (s *AchievementService) RetryPending(ctx context.Context) (int, error) {
	if s.Pending == nil {
		return 0, nil
	}
	ids, err := s.Pending.Drain(ctx, 0)
	if err != nil {
		return 0, err
	}

	for _, userID := range ids {
		_, err := s.EvaluateAchievements(ctx, userID)
		if err == nil || errors.Is(err, util.ErrUserNotFound) {
			continue
		}
		logger.Log.Warn("Badge re-evaluation failed",
			zap.Uint("user_id", userID),
			zap.Error(err),
		)
		if qerr := s.Pending.Add(ctx, userID); qerr != nil {
			return len(ids), qerr
		}
	}
	return len(ids), nil
}

// BadgeProgress 未获得徽章的完成进度，只读
func (s *AchievementService) BadgeProgress(ctx context.Context, userID uint) ([]model.BadgeProgress, error) {
	snap, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	unearned := lo.Filter(gamification.Badges(), func(rule gamification.BadgeRule, _ int) bool {
		return !snap.owned[rule.Type]
	})
	return lo.Map(unearned, func(rule gamification.BadgeRule, _ int) model.BadgeProgress {
		progress := rule.Progress(snap.history)
		return model.BadgeProgress{
			BadgeType:   rule.Type,
			Description: rule.Description,
			Progress:    progress,
			Requirement: rule.Requirement,
			Percentage:  float64(progress) / float64(rule.Requirement) * 100,
		}
	}), nil
}

func (s *AchievementService) ListAchievements(ctx context.Context, userID uint) ([]model.Achievement, error) {
	readCtx, cancel := storeCall(ctx, s.Config.StoreTimeout())
	defer cancel()
	return s.Achievements.FindByUserID(readCtx, userID)
}

// load 并行读取进度、学习记录和已获得徽章
func (s *AchievementService) load(ctx context.Context, userID uint) (*snapshot, error) {
	var (
		user     *model.User
		sessions []model.StudySession
		owned    []gamification.BadgeType
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
		sessions, err = s.Sessions.QuerySessions(readCtx, userID, repository.SessionQuery{Newest: true})
		return err
	})
	g.Go(func() error {
		readCtx, cancel := storeCall(gctx, s.Config.StoreTimeout())
		defer cancel()
		var err error
		owned, err = s.Achievements.GetAchievementTypes(readCtx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &snapshot{
		history: gamification.History{
			CurrentStreak: user.CurrentStreak,
			Sessions:      lo.Map(sessions, func(ss model.StudySession, _ int) gamification.SessionRecord { return sessionRecord(ss) }),
			Now:           s.Clock.Now(),
			Location:      s.Clock.Location(),
		},
		owned: lo.Associate(owned, func(b gamification.BadgeType) (gamification.BadgeType, bool) { return b, true }),
	}, nil
}

func sessionRecord(ss model.StudySession) gamification.SessionRecord {
	return gamification.SessionRecord{
		CardsStudied:    ss.CardsStudied,
		CorrectAnswers:  ss.CorrectAnswers,
		AccuracyRate:    ss.AccuracyRate,
		DurationSeconds: ss.DurationSeconds,
		CreatedAt:       ss.CreatedAt,
	}
}

// checkRule 规则 panic 时转换为错误
func checkRule(rule gamification.BadgeRule, history gamification.History) (eligible bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("evaluate badge %s: rule panicked: %v", rule.Type, r)
		}
	}()
	return rule.Eligible(history), nil
}
