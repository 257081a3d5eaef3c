package gamification

import (
	"math"
	"time"
)

const (
	BaseReviewIntervalDays = 1.0
	MaxReviewIntervalDays  = 30.0
	PerformanceStep        = 0.1
)

// ReviewIntervalDays 间隔天数随熟练度和复习次数增长，封顶 30 天
func ReviewIntervalDays(performanceScore float64, timesReviewed int) float64 {
	performanceFactor := 1 + performanceScore*2
	reviewFactor := 1 + float64(timesReviewed)*0.5
	return math.Min(BaseReviewIntervalDays*performanceFactor*reviewFactor, MaxReviewIntervalDays)
}

func ReviewInterval(performanceScore float64, timesReviewed int) time.Duration {
	return time.Duration(ReviewIntervalDays(performanceScore, timesReviewed) * float64(24*time.Hour))
}

// NextReviewDate 小数天数按时长保留，不取整
func NextReviewDate(performanceScore float64, timesReviewed int, now time.Time) time.Time {
	return now.Add(ReviewInterval(performanceScore, timesReviewed))
}

// AdjustPerformance 答对 +0.1、答错 -0.1，结果限制在 [0,1] 并保留一位小数，避免浮点累积误差
func AdjustPerformance(score float64, correct bool) float64 {
	if correct {
		score += PerformanceStep
	} else {
		score -= PerformanceStep
	}
	score = math.Round(score*10) / 10
	return math.Max(0, math.Min(score, 1))
}
