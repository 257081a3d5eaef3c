package model

import (
	"time"

	"gorm.io/datatypes"
)

// swagger:model User
// User 同时承载学习进度：经验、等级、连续天数、上次学习日期
type User struct {
	BaseModel
	Username      string          `gorm:"size:100;not null" json:"username"`
	Email         string          `gorm:"size:100;uniqueIndex;not null" json:"email"`
	AvatarURL     string          `gorm:"size:255" json:"avatarUrl,omitempty"`
	XP            int             `gorm:"column:xp_points;default:0;not null;index" json:"xpPoints"`
	Level         int             `gorm:"default:1;not null" json:"level"`
	CurrentStreak int             `gorm:"default:0;not null" json:"currentStreak"`
	LastStudyDate *datatypes.Date `json:"lastStudyDate,omitempty"`
	// Version 乐观锁版本号，每次写进度 +1
	Version int `gorm:"default:0;not null" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// LastStudyTime 将日期列转为 time.Time，未学习过返回 nil
func (u *User) LastStudyTime() *time.Time {
	if u.LastStudyDate == nil {
		return nil
	}
	t := time.Time(*u.LastStudyDate)
	return &t
}
