package service

import (
	"context"
	"study_buddy_backend/internal/gamification"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/repository"
	"time"
)

// 服务依赖的存储接口，由 internal/repository 实现，测试中用内存实现替换

type ProgressStore interface {
	GetUserProgress(ctx context.Context, userID uint) (*model.User, error)
	PutUserProgress(ctx context.Context, user *model.User) error
}

type UserReader interface {
	GetUserProgress(ctx context.Context, userID uint) (*model.User, error)
}

type SessionStore interface {
	AppendStudySession(ctx context.Context, session *model.StudySession) error
	QuerySessions(ctx context.Context, userID uint, q repository.SessionQuery) ([]model.StudySession, error)
}

type AchievementStore interface {
	GetAchievementTypes(ctx context.Context, userID uint) ([]gamification.BadgeType, error)
	AppendAchievement(ctx context.Context, achievement *model.Achievement) error
	FindByUserID(ctx context.Context, userID uint) ([]model.Achievement, error)
}

type FlashcardStore interface {
	Create(ctx context.Context, card *model.Flashcard) error
	FindByIDAndUser(ctx context.Context, id string, userID uint) (*model.Flashcard, error)
	List(ctx context.Context, userID uint, filter repository.FlashcardFilter) ([]model.Flashcard, error)
	Due(ctx context.Context, userID uint, deckName string, now time.Time, limit int) ([]model.Flashcard, error)
	Unreviewed(ctx context.Context, userID uint, deckName string, limit int) ([]model.Flashcard, error)
	UpdateReview(ctx context.Context, card *model.Flashcard) error
	Delete(ctx context.Context, id string, userID uint) error
	DeckCounts(ctx context.Context, userID uint) ([]repository.DeckCount, error)
}

type LeaderboardStore interface {
	FindTopByXP(ctx context.Context, limit int) ([]model.User, error)
}

// LeaderboardCacher 失效时代号递增，Set 带上查询前读到的代号
type LeaderboardCacher interface {
	Generation(ctx context.Context) (int64, error)
	Get(ctx context.Context, limit int) ([]model.LeaderboardEntry, bool, error)
	Set(ctx context.Context, gen int64, limit int, entries []model.LeaderboardEntry) error
	Invalidate(ctx context.Context) error
}

type PendingQueue interface {
	Add(ctx context.Context, userID uint) error
	Drain(ctx context.Context, limit int) ([]uint, error)
}

// storeCall 每次存储调用单独设置超时
func storeCall(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}
