package repository

import (
	"context"
	"study_buddy_backend/internal/gamification"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type AchievementRepository struct {
	DB *gorm.DB
}

func NewAchievementRepository(db *gorm.DB) *AchievementRepository {
	return &AchievementRepository{DB: db}
}

// GetAchievementTypes 用户已获得的徽章类型
func (r *AchievementRepository) GetAchievementTypes(ctx context.Context, userID uint) ([]gamification.BadgeType, error) {
	var types []gamification.BadgeType
	err := r.DB.WithContext(ctx).
		Model(&model.Achievement{}).
		Where("user_id = ?", userID).
		Pluck("badge_type", &types).Error
	return types, translate(err, nil, "get achievement types")
}

// AppendAchievement 违反 (user_id, badge_type) 唯一约束时返回 ErrAchievementExists
func (r *AchievementRepository) AppendAchievement(ctx context.Context, achievement *model.Achievement) error {
	err := r.DB.WithContext(ctx).Create(achievement).Error
	if err != nil && isDuplicateKey(err) {
		return errors.Wrapf(util.ErrAchievementExists, "badge %s", achievement.BadgeType)
	}
	return translate(err, nil, "append achievement")
}

// FindByUserID 最近获得的排在前面
func (r *AchievementRepository) FindByUserID(ctx context.Context, userID uint) ([]model.Achievement, error) {
	var achievements []model.Achievement
	err := r.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("earned_at DESC").
		Find(&achievements).Error
	return achievements, translate(err, nil, "find achievements")
}
