package repository

import (
	"context"
	"study_buddy_backend/internal/gamification"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type FlashcardFilter struct {
	DeckName   string
	Difficulty gamification.Difficulty
	Limit      int
}

type DeckCount struct {
	Name      string `json:"name"`
	CardCount int64  `json:"cardCount"`
}

type FlashcardRepository struct {
	DB *gorm.DB
}

func NewFlashcardRepository(db *gorm.DB) *FlashcardRepository {
	return &FlashcardRepository{DB: db}
}

func (r *FlashcardRepository) Create(ctx context.Context, card *model.Flashcard) error {
	if card.DeckName == "" {
		card.DeckName = model.DefaultDeckName
	}
	return translate(r.DB.WithContext(ctx).Create(card).Error, nil, "create flashcard")
}

// FindByIDAndUser 只返回属于该用户的卡片，其他用户的卡片视为不存在
func (r *FlashcardRepository) FindByIDAndUser(ctx context.Context, id string, userID uint) (*model.Flashcard, error) {
	var card model.Flashcard
	err := r.DB.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).First(&card).Error
	if err != nil {
		return nil, translate(err, util.ErrFlashcardNotFound, "find flashcard")
	}
	return &card, nil
}

func (r *FlashcardRepository) List(ctx context.Context, userID uint, filter FlashcardFilter) ([]model.Flashcard, error) {
	query := r.scoped(ctx, userID, filter.DeckName)
	if filter.Difficulty != "" {
		query = query.Where("difficulty_level = ?", filter.Difficulty)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var cards []model.Flashcard
	err := query.Order("created_at DESC").Find(&cards).Error
	return cards, translate(err, nil, "list flashcards")
}

// Due 已到复习时间的卡片，最早到期的优先
func (r *FlashcardRepository) Due(ctx context.Context, userID uint, deckName string, now time.Time, limit int) ([]model.Flashcard, error) {
	var cards []model.Flashcard
	err := r.scoped(ctx, userID, deckName).
		Where("next_review IS NOT NULL AND next_review <= ?", now).
		Order("next_review ASC").
		Limit(limit).
		Find(&cards).Error
	return cards, translate(err, nil, "find due flashcards")
}

// Unreviewed 从未作答过的卡片
func (r *FlashcardRepository) Unreviewed(ctx context.Context, userID uint, deckName string, limit int) ([]model.Flashcard, error) {
	var cards []model.Flashcard
	err := r.scoped(ctx, userID, deckName).
		Where("next_review IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&cards).Error
	return cards, translate(err, nil, "find unreviewed flashcards")
}

// UpdateReview 写回作答后的熟练度和复习时间
func (r *FlashcardRepository) UpdateReview(ctx context.Context, card *model.Flashcard) error {
	result := r.DB.WithContext(ctx).
		Model(&model.Flashcard{}).
		Where("id = ? AND user_id = ?", card.ID, card.UserID).
		Updates(map[string]interface{}{
			"performance_score": card.PerformanceScore,
			"times_reviewed":    card.TimesReviewed,
			"last_reviewed":     card.LastReviewed,
			"next_review":       card.NextReview,
		})
	if result.Error != nil {
		return translate(result.Error, nil, "update flashcard review")
	}
	if result.RowsAffected == 0 {
		return util.ErrFlashcardNotFound
	}
	return nil
}

func (r *FlashcardRepository) Delete(ctx context.Context, id string, userID uint) error {
	result := r.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Delete(&model.Flashcard{})
	if result.Error != nil {
		return translate(result.Error, nil, "delete flashcard")
	}
	if result.RowsAffected == 0 {
		return util.ErrFlashcardNotFound
	}
	return nil
}

func (r *FlashcardRepository) DeckCounts(ctx context.Context, userID uint) ([]DeckCount, error) {
	var decks []DeckCount
	err := r.DB.WithContext(ctx).
		Model(&model.Flashcard{}).
		Select("deck_name AS name, COUNT(*) AS card_count").
		Where("user_id = ?", userID).
		Group("deck_name").
		Order("deck_name ASC").
		Scan(&decks).Error
	return decks, translate(err, nil, "count decks")
}

func (r *FlashcardRepository) scoped(ctx context.Context, userID uint, deckName string) *gorm.DB {
	query := r.DB.WithContext(ctx).Where("user_id = ?", userID)
	if deckName != "" {
		query = query.Where("deck_name = ?", deckName)
	}
	return query
}
