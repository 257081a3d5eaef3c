package gamification

import "time"

// UpdateStreak 根据上次学习日期计算新的连续天数，只比较日期部分。
//
// 同一天重复学习不重复计数；昨天学过则答对 +1、答错清零；
// 中断两天及以上或首次学习，答对记 1、答错记 0。
func UpdateStreak(lastStudyDate *time.Time, today time.Time, currentStreak int, correct bool) int {
	restart := 0
	if correct {
		restart = 1
	}
	if lastStudyDate == nil {
		return restart
	}

	switch DaysBetween(*lastStudyDate, today) {
	case 0:
		return currentStreak
	case 1:
		if correct {
			return currentStreak + 1
		}
		return 0
	default:
		return restart
	}
}

// DaysBetween 返回从 from 到 to 相差的自然日数
func DaysBetween(from, to time.Time) int {
	return int(CivilDate(to).Sub(CivilDate(from)).Hours() / 24)
}
