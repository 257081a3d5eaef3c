package util

import (
	"errors"
	"study_buddy_backend/internal/gamification"
)

var (
	ErrInvalidInput       = gamification.ErrInvalidInput
	ErrUserNotFound       = errors.New("用户不存在")
	ErrFlashcardNotFound  = errors.New("flashcard not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrStorageConflict 乐观锁冲突，调用方应重试整个读改写
	ErrStorageConflict = errors.New("storage conflict")
	// ErrAchievementExists 插入成就时违反唯一约束，表示已获得该徽章
	ErrAchievementExists = errors.New("achievement already awarded")
	// ErrSessionAlreadyEnded 同一个学习会话重复提交结束
	ErrSessionAlreadyEnded = errors.New("study session already ended")
)

// IsRetryable 存储层的暂时性错误
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStorageConflict) || errors.Is(err, ErrStorageUnavailable)
}
