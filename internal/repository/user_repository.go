package repository

import (
	"context"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"

	"gorm.io/gorm"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	if user.Level == 0 {
		user.Level = 1
	}
	return translate(r.DB.WithContext(ctx).Create(user).Error, nil, "create user")
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	var user model.User
	err := r.DB.WithContext(ctx).First(&user, id).Error
	if err != nil {
		return nil, translate(err, util.ErrUserNotFound, "find user")
	}
	return &user, nil
}

// GetUserProgress 读取进度字段及版本号，供后续 PutUserProgress 做条件更新
func (r *UserRepository) GetUserProgress(ctx context.Context, userID uint) (*model.User, error) {
	return r.FindByID(ctx, userID)
}

// PutUserProgress 以读取时的版本号为条件写回经验、等级、连续天数和学习日期。
// 版本号不一致时返回 ErrStorageConflict，成功后 user.Version 自增。
func (r *UserRepository) PutUserProgress(ctx context.Context, user *model.User) error {
	result := r.DB.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ? AND version = ?", user.ID, user.Version).
		Updates(map[string]interface{}{
			"xp_points":       user.XP,
			"level":           user.Level,
			"current_streak":  user.CurrentStreak,
			"last_study_date": user.LastStudyDate,
			"version":         gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return translate(result.Error, nil, "put user progress")
	}
	if result.RowsAffected == 0 {
		return util.ErrStorageConflict
	}
	user.Version++
	return nil
}

// FindTopByXP 经验降序，相同经验按 id 升序保证排名稳定
func (r *UserRepository) FindTopByXP(ctx context.Context, limit int) ([]model.User, error) {
	var users []model.User
	err := r.DB.WithContext(ctx).
		Order("xp_points DESC").
		Order("id ASC").
		Limit(limit).
		Find(&users).Error
	return users, translate(err, nil, "find top users")
}

// ListIDs 批量重算徽章时遍历全部用户
func (r *UserRepository) ListIDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.DB.WithContext(ctx).Model(&model.User{}).Order("id ASC").Pluck("id", &ids).Error
	return ids, translate(err, nil, "list user ids")
}
