package gamification

import "strings"

const SessionXPPerCorrect = 10

// CheckAnswer 忽略大小写和首尾空白。选择题必须完全一致，
// 其他题型允许作答是正确答案的一部分。
func CheckAnswer(questionType QuestionType, correctAnswer, userAnswer string) bool {
	expected := strings.ToLower(strings.TrimSpace(correctAnswer))
	given := strings.ToLower(strings.TrimSpace(userAnswer))
	if questionType == QuestionMultipleChoice {
		return given == expected
	}
	if given == "" {
		return expected == ""
	}
	return given == expected || strings.Contains(expected, given)
}

// AccuracyRate 正确率，学习卡片数为 0 时返回 0
func AccuracyRate(correct, studied int) float64 {
	if studied <= 0 {
		return 0
	}
	return float64(correct) / float64(studied)
}

// SessionXP 一次学习结束时按答对题数记录的经验
func SessionXP(correctAnswers int) int {
	return correctAnswers * SessionXPPerCorrect
}

// PerformanceMessage 学习结束后的鼓励语
func PerformanceMessage(accuracyRate float64, cardsStudied int) string {
	switch {
	case accuracyRate >= 0.9 && cardsStudied >= 10:
		return "INCREDIBLE! You're a study machine! Keep this momentum going!"
	case accuracyRate >= 0.8:
		return "Excellent work! You're really mastering this material!"
	case accuracyRate >= 0.7:
		return "Good job! You're making solid progress!"
	case accuracyRate >= 0.5:
		return "Keep practicing! Every question brings you closer to mastery!"
	default:
		return "Don't give up! Learning takes time - you've got this!"
	}
}
