package gamification

import (
	"fmt"
	"math"
)

const (
	BaseXP = 10
	// DefaultAccuracyRate 调用方未提供正确率时使用
	DefaultAccuracyRate = 1.0

	maxAccuracyBonus = 1.5
	maxStreakBonus   = 2.0
)

var difficultyMultipliers = map[Difficulty]float64{
	DifficultyEasy:   1.0,
	DifficultyMedium: 1.5,
	DifficultyHard:   2.0,
}

// XPCalculation 单题经验值的计算明细，不落库
type XPCalculation struct {
	BaseXP               int     `json:"baseXp"`
	DifficultyMultiplier float64 `json:"difficultyMultiplier"`
	AccuracyBonus        float64 `json:"accuracyBonus"`
	SpeedBonus           float64 `json:"speedBonus"`
	StreakBonus          float64 `json:"streakBonus"`
	TotalXP              int     `json:"totalXp"`
}

func DifficultyMultiplier(d Difficulty) (float64, error) {
	m, ok := difficultyMultipliers[d]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrInvalidDifficulty, d)
	}
	return m, nil
}

// SpeedBonus 按答题用时分档，先命中的档位生效
func SpeedBonus(timeTakenSeconds int) float64 {
	switch {
	case timeTakenSeconds < 5:
		return 1.5
	case timeTakenSeconds < 10:
		return 1.2
	case timeTakenSeconds < 20:
		return 1.0
	default:
		return 0.8
	}
}

func AccuracyBonus(accuracyRate float64) float64 {
	return math.Min(accuracyRate*1.2, maxAccuracyBonus)
}

// StreakBonus 连续天数达到 10 后封顶
func StreakBonus(currentStreak int) float64 {
	return math.Min(1+float64(currentStreak)*0.1, maxStreakBonus)
}

// CalculateXP 计算一次作答获得的经验值。答错不得分，与难度、用时、连续天数无关。
func CalculateXP(correct bool, difficulty Difficulty, timeTakenSeconds, currentStreak int, accuracyRate float64) (XPCalculation, error) {
	multiplier, err := DifficultyMultiplier(difficulty)
	if err != nil {
		return XPCalculation{}, err
	}
	if timeTakenSeconds < 0 {
		return XPCalculation{}, fmt.Errorf("%w: negative time taken %d", ErrInvalidInput, timeTakenSeconds)
	}
	if currentStreak < 0 {
		return XPCalculation{}, fmt.Errorf("%w: negative streak %d", ErrInvalidInput, currentStreak)
	}
	if math.IsNaN(accuracyRate) || accuracyRate < 0 || accuracyRate > 1 {
		return XPCalculation{}, fmt.Errorf("%w: accuracy rate %v out of [0,1]", ErrInvalidInput, accuracyRate)
	}

	if !correct {
		return XPCalculation{}, nil
	}

	calc := XPCalculation{
		BaseXP:               BaseXP,
		DifficultyMultiplier: multiplier,
		AccuracyBonus:        AccuracyBonus(accuracyRate),
		SpeedBonus:           SpeedBonus(timeTakenSeconds),
		StreakBonus:          StreakBonus(currentStreak),
	}
	total := float64(calc.BaseXP) * calc.DifficultyMultiplier * calc.SpeedBonus * calc.AccuracyBonus * calc.StreakBonus
	calc.TotalXP = int(math.Floor(total))
	return calc, nil
}
