package gamification

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput 所有参数校验失败的根错误，调用方可用 errors.Is 判断
var ErrInvalidInput = errors.New("invalid input")

var ErrInvalidDifficulty = fmt.Errorf("%w: unknown difficulty", ErrInvalidInput)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

func (d Difficulty) Valid() bool {
	_, ok := difficultyMultipliers[d]
	return ok
}

// ParseDifficulty 大小写不敏感
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidDifficulty, s)
	}
	return d, nil
}

type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionFillBlank      QuestionType = "fill_blank"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionShortAnswer    QuestionType = "short_answer"
)

func ParseQuestionType(s string) (QuestionType, error) {
	switch q := QuestionType(strings.ToLower(strings.TrimSpace(s))); q {
	case QuestionMultipleChoice, QuestionFillBlank, QuestionTrueFalse, QuestionShortAnswer:
		return q, nil
	}
	return "", fmt.Errorf("%w: unknown question type %q", ErrInvalidInput, s)
}

type BadgeType string

const (
	BadgeFirstSteps      BadgeType = "first_steps"
	BadgeFireScholar     BadgeType = "fire_scholar"
	BadgeKnowledgeWizard BadgeType = "knowledge_wizard"
	BadgeSpeedDemon      BadgeType = "speed_demon"
	BadgePerfectionist   BadgeType = "perfectionist"
	BadgeEarlyBird       BadgeType = "early_bird"
	BadgeNightOwl        BadgeType = "night_owl"
	BadgeComebackKid     BadgeType = "comeback_kid"
)

func ParseBadgeType(s string) (BadgeType, error) {
	b := BadgeType(strings.TrimSpace(s))
	if _, ok := badgeIndex[b]; !ok {
		return "", fmt.Errorf("%w: unknown badge %q", ErrInvalidInput, s)
	}
	return b, nil
}
