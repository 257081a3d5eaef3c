package gamification

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var evalNow = time.Date(2026, 6, 20, 12, 0, 0, 0, time.UTC)

func session(cards, correct, duration int, at time.Time) SessionRecord {
	return SessionRecord{
		CardsStudied:    cards,
		CorrectAnswers:  correct,
		AccuracyRate:    AccuracyRate(correct, cards),
		DurationSeconds: duration,
		CreatedAt:       at,
	}
}

func eligible(t *testing.T, badge BadgeType, h History) bool {
	t.Helper()
	rule, ok := LookupBadge(badge)
	require.True(t, ok)
	return rule.Eligible(h)
}

func TestBadgeCatalog(t *testing.T) {
	badges := Badges()
	require.Len(t, badges, 8)

	seen := map[BadgeType]bool{}
	for _, b := range badges {
		assert.False(t, seen[b.Type], "duplicate badge %s", b.Type)
		seen[b.Type] = true
		assert.NotEmpty(t, b.Description)
		assert.Positive(t, b.Requirement)
	}

	rule, _ := LookupBadge(BadgeSpeedDemon)
	assert.Equal(t, RuleSpeedRound, rule.Kind)
	assert.Equal(t, 10, rule.Requirement)
}

func TestEmptyHistoryEarnsNothing(t *testing.T) {
	h := History{Now: evalNow, Location: time.UTC}
	for _, b := range Badges() {
		assert.False(t, b.Eligible(h), b.Type)
		assert.Equal(t, 0, b.Progress(h), b.Type)
	}
}

func TestFirstStepsAndFireScholar(t *testing.T) {
	h := History{Now: evalNow, Sessions: []SessionRecord{session(1, 0, 30, evalNow)}, CurrentStreak: 6}
	assert.True(t, eligible(t, BadgeFirstSteps, h))
	assert.False(t, eligible(t, BadgeFireScholar, h))

	h.CurrentStreak = 7
	assert.True(t, eligible(t, BadgeFireScholar, h))
}

func TestKnowledgeWizardSumsAllSessions(t *testing.T) {
	h := History{Now: evalNow}
	for i := 0; i < 9; i++ {
		h.Sessions = append(h.Sessions, session(12, 11, 300, evalNow.AddDate(0, 0, -i*10)))
	}
	assert.False(t, eligible(t, BadgeKnowledgeWizard, h))

	h.Sessions = append(h.Sessions, session(2, 1, 30, evalNow.AddDate(-1, 0, 0)))
	assert.True(t, eligible(t, BadgeKnowledgeWizard, h))
}

func TestSpeedDemonTrailingWeek(t *testing.T) {
	old := History{Now: evalNow, Sessions: []SessionRecord{session(15, 10, 45, evalNow.AddDate(0, 0, -8))}}
	assert.False(t, eligible(t, BadgeSpeedDemon, old))

	slow := History{Now: evalNow, Sessions: []SessionRecord{session(15, 10, 61, evalNow.Add(-time.Hour))}}
	assert.False(t, eligible(t, BadgeSpeedDemon, slow))

	few := History{Now: evalNow, Sessions: []SessionRecord{session(9, 9, 20, evalNow.Add(-time.Hour))}}
	assert.False(t, eligible(t, BadgeSpeedDemon, few))

	quick := History{Now: evalNow, Sessions: []SessionRecord{session(10, 2, 60, evalNow.AddDate(0, 0, -7))}}
	assert.True(t, eligible(t, BadgeSpeedDemon, quick))
}

func TestPerfectionistNeedsTwentyCards(t *testing.T) {
	h := History{Now: evalNow, Sessions: []SessionRecord{
		session(19, 19, 600, evalNow),
		session(25, 24, 600, evalNow.AddDate(0, -2, 0)),
	}}
	assert.False(t, eligible(t, BadgePerfectionist, h))

	rule, _ := LookupBadge(BadgePerfectionist)
	assert.Equal(t, 19, rule.Progress(h))

	h.Sessions = append(h.Sessions, session(20, 20, 900, evalNow.AddDate(-1, 0, 0)))
	assert.True(t, eligible(t, BadgePerfectionist, h))
}

func TestEarlyBirdAndNightOwlUseLocation(t *testing.T) {
	var sessions []SessionRecord
	for i := 0; i < 5; i++ {
		sessions = append(sessions, session(5, 5, 100, time.Date(2026, 6, 1+i, 23, 30, 0, 0, time.UTC)))
	}

	h := History{Now: evalNow, Sessions: sessions, Location: time.UTC}
	assert.True(t, eligible(t, BadgeNightOwl, h))
	assert.False(t, eligible(t, BadgeEarlyBird, h))

	// 23:30 UTC 在 UTC+8 是次日 07:30
	h.Location = time.FixedZone("CST", 8*3600)
	assert.False(t, eligible(t, BadgeNightOwl, h))
	assert.True(t, eligible(t, BadgeEarlyBird, h))
}

func TestComebackKidComparesTwoMostRecent(t *testing.T) {
	h := History{Now: evalNow, Sessions: []SessionRecord{
		session(5, 5, 100, evalNow),
		session(5, 5, 100, evalNow.AddDate(0, 0, -6)),
		session(5, 5, 100, evalNow.AddDate(0, 0, -30)),
	}}
	assert.False(t, eligible(t, BadgeComebackKid, h))

	h.Sessions = h.Sessions[:1]
	assert.False(t, eligible(t, BadgeComebackKid, h))

	h.Sessions = append(h.Sessions, session(5, 5, 100, evalNow.AddDate(0, 0, -7)))
	assert.True(t, eligible(t, BadgeComebackKid, h))
}

func TestParseBadgeType(t *testing.T) {
	b, err := ParseBadgeType("night_owl")
	require.NoError(t, err)
	assert.Equal(t, BadgeNightOwl, b)

	_, err = ParseBadgeType("unicorn")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
