package model

import (
	"study_buddy_backend/internal/gamification"
	"time"

	"gorm.io/datatypes"
)

const DefaultDeckName = "Default"

// swagger:model Flashcard
type Flashcard struct {
	UUIDBase
	UserID           uint                        `gorm:"index;type:bigint unsigned;not null" json:"userId"`
	Question         string                      `gorm:"type:text;not null" json:"question"`
	Answer           string                      `gorm:"type:text;not null" json:"answer"`
	QuestionType     gamification.QuestionType   `gorm:"size:30;not null" json:"questionType"`
	DifficultyLevel  gamification.Difficulty     `gorm:"size:10;not null" json:"difficultyLevel"`
	DeckName         string                      `gorm:"size:100;index;default:'Default'" json:"deckName"`
	Options          datatypes.JSONSlice[string] `json:"options,omitempty"`
	AIGenerated      bool                        `gorm:"default:false" json:"aiGenerated"`
	PerformanceScore float64                     `gorm:"default:0" json:"performanceScore"`
	TimesReviewed    int                         `gorm:"default:0" json:"timesReviewed"`
	LastReviewed     *time.Time                  `json:"lastReviewed,omitempty"`
	NextReview       *time.Time                  `gorm:"index" json:"nextReview,omitempty"`
}

func (Flashcard) TableName() string {
	return "flashcards"
}
