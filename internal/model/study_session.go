package model

// StudySession 一次学习结束时写入，之后不再修改
// swagger:model StudySession
type StudySession struct {
	UUIDBase
	UserID          uint    `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	CardsStudied    int     `gorm:"default:0" json:"cardsStudied"`
	CorrectAnswers  int     `gorm:"default:0" json:"correctAnswers"`
	AccuracyRate    float64 `gorm:"default:0" json:"accuracyRate"`
	DurationSeconds int     `gorm:"column:session_duration;default:0" json:"sessionDuration"`
	XPEarned        int     `gorm:"default:0" json:"xpEarned"`
}

func (StudySession) TableName() string {
	return "study_sessions"
}
