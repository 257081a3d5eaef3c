package model

import (
	"study_buddy_backend/internal/gamification"
	"time"
)

// Achievement 每个用户每种徽章最多一条，由 (user_id, badge_type) 唯一索引保证
type Achievement struct {
	UUIDBase
	UserID      uint                   `gorm:"uniqueIndex:idx_user_badge;type:bigint unsigned;not null" json:"userId"`
	BadgeType   gamification.BadgeType `gorm:"uniqueIndex:idx_user_badge;size:50;not null" json:"badgeType"`
	EarnedAt    time.Time              `gorm:"not null" json:"earnedAt"`
	Description string                 `gorm:"size:255" json:"description"`
}

func (Achievement) TableName() string {
	return "achievements"
}
