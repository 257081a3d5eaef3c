package model

import "study_buddy_backend/internal/gamification"

// 以下为只读投影，不落库

type LeaderboardEntry struct {
	Rank      int    `json:"rank"`
	UserID    uint   `json:"userId"`
	Username  string `json:"username"`
	XP        int    `json:"xpPoints"`
	Level     int    `json:"level"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

type BadgeProgress struct {
	BadgeType   gamification.BadgeType `json:"badgeType"`
	Description string                 `json:"description"`
	Progress    int                    `json:"progress"`
	Requirement int                    `json:"requirement"`
	Percentage  float64                `json:"percentage"`
}

type ProfileStats struct {
	TotalSessions     int     `json:"totalSessions"`
	TotalCardsStudied int     `json:"totalCardsStudied"`
	AverageAccuracy   float64 `json:"averageAccuracy"`
	AchievementsCount int     `json:"achievementsCount"`
	NextLevelXP       int     `json:"nextLevelXp"`
}

type Profile struct {
	User           *User          `json:"user"`
	Stats          ProfileStats   `json:"stats"`
	Achievements   []Achievement  `json:"achievements"`
	RecentSessions []StudySession `json:"recentSessions"`
}

type DailyStats struct {
	Date         string  `json:"date"`
	Sessions     int     `json:"sessions"`
	CardsStudied int     `json:"cardsStudied"`
	XPEarned     int     `json:"xpEarned"`
	AvgAccuracy  float64 `json:"avgAccuracy"`
}

type WeeklyStats struct {
	Days           []DailyStats `json:"weeklyStats"`
	TotalWeekXP    int          `json:"totalWeekXp"`
	TotalWeekCards int          `json:"totalWeekCards"`
}
