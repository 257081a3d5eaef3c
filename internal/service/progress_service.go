package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/gamification"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/logger"
	"study_buddy_backend/pkg/monitoring"
	"study_buddy_backend/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// ProgressDelta 一次作答对用户进度的影响
type ProgressDelta struct {
	XPEarned      int  `json:"xpEarned"`
	TotalXP       int  `json:"totalXp"`
	Level         int  `json:"level"`
	PreviousLevel int  `json:"previousLevel"`
	LevelUp       bool `json:"levelUp"`
	Streak        int  `json:"streak"`
	StreakBroken  bool `json:"streakBroken"`
}

// ProgressObserver 进度写入成功后回调，如排行榜缓存失效
type ProgressObserver func(ctx context.Context, userID uint, delta *ProgressDelta)

type ProgressService struct {
	Store     ProgressStore
	Clock     *gamification.Clock
	Config    config.GamificationConfig
	observers []ProgressObserver
}

func NewProgressService(store ProgressStore, clock *gamification.Clock, cfg config.GamificationConfig) *ProgressService {
	return &ProgressService{
		Store:  store,
		Clock:  clock,
		Config: cfg,
	}
}

func (s *ProgressService) OnProgress(observer ProgressObserver) {
	s.observers = append(s.observers, observer)
}

// RecordAnswerOutcome 将本次作答获得的经验累加到用户进度，并更新等级、连续天数和最后学习日期。
// 并发写入通过版本号检测，冲突或存储暂不可用时整体重试。
func (s *ProgressService) RecordAnswerOutcome(ctx context.Context, userID uint, xpEarned int, correct bool) (delta *ProgressDelta, err error) {
	if xpEarned < 0 {
		return nil, fmt.Errorf("%w: xp earned must not be negative, got %d", util.ErrInvalidInput, xpEarned)
	}

	ctx, span := tracing.StartSpan(ctx, "ProgressService.RecordAnswerOutcome",
		attribute.Int64("user.id", int64(userID)),
		attribute.Int("xp.earned", xpEarned),
		attribute.Bool("answer.correct", correct),
	)
	defer func() { tracing.EndSpan(span, err) }()

	backoff := s.Config.RetryBackoff()
	for attempt := 1; ; attempt++ {
		delta, err = s.apply(ctx, userID, xpEarned, correct)
		if err == nil {
			break
		}
		if errors.Is(err, util.ErrStorageConflict) {
			monitoring.StoreConflicts.Inc()
		}
		if !util.IsRetryable(err) || attempt >= s.Config.MaxRetries {
			return nil, err
		}

		logger.Log.Warn("Retrying progress update",
			zap.Uint("user_id", userID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %v", util.ErrStorageUnavailable, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	monitoring.AnswersRecorded.WithLabelValues(strconv.FormatBool(correct)).Inc()
	monitoring.XPAwarded.Add(float64(xpEarned))
	if delta.LevelUp {
		monitoring.LevelUps.Inc()
		logger.Log.Info("User leveled up",
			zap.Uint("user_id", userID),
			zap.Int("level", delta.Level),
		)
	}

	for _, observer := range s.observers {
		observer(ctx, userID, delta)
	}
	return delta, nil
}

func (s *ProgressService) apply(ctx context.Context, userID uint, xpEarned int, correct bool) (*ProgressDelta, error) {
	readCtx, cancel := storeCall(ctx, s.Config.StoreTimeout())
	user, err := s.Store.GetUserProgress(readCtx, userID)
	cancel()
	if err != nil {
		return nil, err
	}

	today := s.Clock.Today()
	streak := gamification.UpdateStreak(user.LastStudyTime(), today, user.CurrentStreak, correct)
	totalXP := user.XP + xpEarned
	level := gamification.LevelForXP(totalXP)

	delta := &ProgressDelta{
		XPEarned:      xpEarned,
		TotalXP:       totalXP,
		Level:         level,
		PreviousLevel: user.Level,
		LevelUp:       level > user.Level,
		Streak:        streak,
		StreakBroken:  user.CurrentStreak > 0 && streak < user.CurrentStreak,
	}

	studyDate := datatypes.Date(today)
	user.XP = totalXP
	user.Level = level
	user.CurrentStreak = streak
	user.LastStudyDate = &studyDate

	writeCtx, cancel := storeCall(ctx, s.Config.StoreTimeout())
	defer cancel()
	if err := s.Store.PutUserProgress(writeCtx, user); err != nil {
		return nil, err
	}
	return delta, nil
}
