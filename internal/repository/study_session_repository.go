package repository

import (
	"context"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// SessionQuery 学习记录查询条件，零值表示不限制
type SessionQuery struct {
	Since *time.Time
	Until *time.Time
	// Newest 为 true 时按创建时间倒序
	Newest bool
	Limit  int
}

type StudySessionRepository struct {
	DB *gorm.DB
}

func NewStudySessionRepository(db *gorm.DB) *StudySessionRepository {
	return &StudySessionRepository{DB: db}
}

// AppendStudySession 会话 id 即主键，重复提交返回 ErrSessionAlreadyEnded
func (r *StudySessionRepository) AppendStudySession(ctx context.Context, session *model.StudySession) error {
	err := r.DB.WithContext(ctx).Create(session).Error
	if err != nil && isDuplicateKey(err) {
		return errors.Wrapf(util.ErrSessionAlreadyEnded, "session %s", session.ID)
	}
	return translate(err, nil, "append study session")
}

func (r *StudySessionRepository) QuerySessions(ctx context.Context, userID uint, q SessionQuery) ([]model.StudySession, error) {
	query := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if q.Since != nil {
		query = query.Where("created_at >= ?", *q.Since)
	}
	if q.Until != nil {
		query = query.Where("created_at < ?", *q.Until)
	}
	if q.Newest {
		query = query.Order("created_at DESC").Order("id DESC")
	} else {
		query = query.Order("created_at ASC").Order("id ASC")
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var sessions []model.StudySession
	err := query.Find(&sessions).Error
	return sessions, translate(err, nil, "query study sessions")
}
