package gamification

import (
	"time"

	"github.com/samber/lo"
)

type RuleKind string

const (
	RuleFirstAnswer      RuleKind = "first_answer"
	RuleStreak           RuleKind = "streak"
	RuleCorrectAnswers   RuleKind = "correct_answers"
	RuleSpeedRound       RuleKind = "speed_round"
	RulePerfectAccuracy  RuleKind = "perfect_accuracy"
	RuleEarlyStudy       RuleKind = "early_study"
	RuleLateStudy        RuleKind = "late_study"
	RuleReturnAfterBreak RuleKind = "return_after_break"
)

const (
	speedRoundWindow      = 7 * 24 * time.Hour
	speedRoundMaxDuration = 60
	earlyStudyBeforeHour  = 8
	lateStudyFromHour     = 22
)

// SessionRecord 徽章规则读取的学习记录字段
type SessionRecord struct {
	CardsStudied    int
	CorrectAnswers  int
	AccuracyRate    float64
	DurationSeconds int
	CreatedAt       time.Time
}

// History 一次评估使用的只读快照。Sessions 按创建时间倒序。
type History struct {
	CurrentStreak int
	Sessions      []SessionRecord
	Now           time.Time
	Location      *time.Location
}

func (h History) hour(t time.Time) int {
	if h.Location != nil {
		t = t.In(h.Location)
	}
	return t.Hour()
}

func (h History) totalCorrect() int {
	return lo.SumBy(h.Sessions, func(s SessionRecord) int { return s.CorrectAnswers })
}

func (h History) recentSessions(window time.Duration) []SessionRecord {
	since := h.Now.Add(-window)
	return lo.Filter(h.Sessions, func(s SessionRecord, _ int) bool { return !s.CreatedAt.Before(since) })
}

func (h History) earlySessions() int {
	return lo.CountBy(h.Sessions, func(s SessionRecord) bool { return h.hour(s.CreatedAt) < earlyStudyBeforeHour })
}

func (h History) lateSessions() int {
	return lo.CountBy(h.Sessions, func(s SessionRecord) bool { return h.hour(s.CreatedAt) >= lateStudyFromHour })
}

// breakDays 最近两次学习之间相隔的整天数，不足两次返回 0
func (h History) breakDays() int {
	if len(h.Sessions) < 2 {
		return 0
	}
	return int(h.Sessions[0].CreatedAt.Sub(h.Sessions[1].CreatedAt).Hours() / 24)
}

// bestSpeedRound 近 7 天内用时不超过 60 秒的单次学习中最多的卡片数
func (h History) bestSpeedRound() int {
	quick := lo.Filter(h.recentSessions(speedRoundWindow), func(s SessionRecord, _ int) bool {
		return s.DurationSeconds <= speedRoundMaxDuration
	})
	return lo.Max(lo.Map(quick, func(s SessionRecord, _ int) int { return s.CardsStudied }))
}

// bestPerfectRound 全对的单次学习中最多的卡片数
func (h History) bestPerfectRound() int {
	perfect := lo.Filter(h.Sessions, func(s SessionRecord, _ int) bool { return s.AccuracyRate == 1.0 })
	return lo.Max(lo.Map(perfect, func(s SessionRecord, _ int) int { return s.CardsStudied }))
}

// BadgeRule 徽章规则。Progress 用于展示“X/Y”进度，达到 Requirement 即可获得。
type BadgeRule struct {
	Type        BadgeType
	Kind        RuleKind
	Requirement int
	Description string
	progress    func(History) int
}

func (r BadgeRule) Progress(h History) int {
	return lo.Clamp(r.progress(h), 0, r.Requirement)
}

func (r BadgeRule) Eligible(h History) bool {
	return r.progress(h) >= r.Requirement
}

var badgeCatalog = []BadgeRule{
	{
		Type: BadgeFirstSteps, Kind: RuleFirstAnswer, Requirement: 1,
		Description: "Answered your first question! Welcome to the journey!",
		progress:    func(h History) int { return len(h.Sessions) },
	},
	{
		Type: BadgeFireScholar, Kind: RuleStreak, Requirement: 7,
		Description: "7-day study streak! You're on fire!",
		progress:    func(h History) int { return h.CurrentStreak },
	},
	{
		Type: BadgeKnowledgeWizard, Kind: RuleCorrectAnswers, Requirement: 100,
		Description: "100 correct answers! True wisdom achieved!",
		progress:    History.totalCorrect,
	},
	{
		Type: BadgeSpeedDemon, Kind: RuleSpeedRound, Requirement: 10,
		Description: "10 questions in 60 seconds! Lightning fast!",
		progress:    History.bestSpeedRound,
	},
	{
		Type: BadgePerfectionist, Kind: RulePerfectAccuracy, Requirement: 20,
		Description: "Perfect accuracy on 20+ questions! Flawless!",
		progress:    History.bestPerfectRound,
	},
	{
		Type: BadgeEarlyBird, Kind: RuleEarlyStudy, Requirement: 5,
		Description: "5 early morning study sessions! Rise and grind!",
		progress:    History.earlySessions,
	},
	{
		Type: BadgeNightOwl, Kind: RuleLateStudy, Requirement: 5,
		Description: "5 late night study sessions! Burning the midnight oil!",
		progress:    History.lateSessions,
	},
	{
		Type: BadgeComebackKid, Kind: RuleReturnAfterBreak, Requirement: 7,
		Description: "Returned after a week break! Welcome back, champion!",
		progress:    History.breakDays,
	},
}

var badgeIndex = lo.Associate(badgeCatalog, func(r BadgeRule) (BadgeType, BadgeRule) { return r.Type, r })

// Badges 返回徽章目录的副本，顺序固定
func Badges() []BadgeRule {
	out := make([]BadgeRule, len(badgeCatalog))
	copy(out, badgeCatalog)
	return out
}

func LookupBadge(t BadgeType) (BadgeRule, bool) {
	r, ok := badgeIndex[t]
	return r, ok
}
