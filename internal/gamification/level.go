package gamification

// 等级门槛，升序，下标 i 处为升到 i+1 级所需的总经验
var levelThresholds = [...]int{0, 100, 250, 500, 1000, 2000, 4000, 8000, 15000, 30000}

// LevelThresholds 返回门槛表的副本
func LevelThresholds() []int {
	out := make([]int, len(levelThresholds))
	copy(out, levelThresholds[:])
	return out
}

func MaxLevel() int {
	return len(levelThresholds)
}

// LevelForXP 找到第一个严格大于 xp 的门槛下标 i，返回 max(1, i)；超过最后一个门槛即满级
func LevelForXP(xp int) int {
	for i, threshold := range levelThresholds {
		if xp < threshold {
			if i < 1 {
				return 1
			}
			return i
		}
	}
	return MaxLevel()
}

// NextLevelXP 返回下一等级的门槛，满级时返回 0
func NextLevelXP(xp int) int {
	level := LevelForXP(xp)
	if level >= MaxLevel() {
		return 0
	}
	return levelThresholds[level]
}
