package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/gamification"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/util"

	"github.com/samber/lo"
)

var testNow = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func testClock() *gamification.Clock {
	return gamification.NewFixedClock(testNow, time.UTC)
}

func testConfig() config.GamificationConfig {
	cfg := config.Default().Gamification
	cfg.RetryBackoffMillis = 1
	return cfg
}

// memUsers 带版本号校验的内存用户存储
type memUsers struct {
	mu    sync.Mutex
	users map[uint]model.User
	// putErrs 依次返回的写入错误，用于模拟冲突
	putErrs []error
	getErr  error
	puts    int
}

func newMemUsers(users ...model.User) *memUsers {
	m := &memUsers{users: make(map[uint]model.User)}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *memUsers) GetUserProgress(_ context.Context, userID uint) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.users[userID]
	if !ok {
		return nil, util.ErrUserNotFound
	}
	return &u, nil
}

func (m *memUsers) PutUserProgress(_ context.Context, user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if len(m.putErrs) > 0 {
		err := m.putErrs[0]
		m.putErrs = m.putErrs[1:]
		return err
	}
	stored, ok := m.users[user.ID]
	if !ok || stored.Version != user.Version {
		return util.ErrStorageConflict
	}
	user.Version++
	m.users[user.ID] = *user
	return nil
}

func (m *memUsers) FindTopByXP(_ context.Context, limit int) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := lo.Values(m.users)
	sort.Slice(users, func(i, j int) bool {
		if users[i].XP != users[j].XP {
			return users[i].XP > users[j].XP
		}
		return users[i].ID < users[j].ID
	})
	if len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (m *memUsers) get(id uint) model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[id]
}

type memSessions struct {
	mu       sync.Mutex
	sessions []model.StudySession
	queryErr error
}

func (m *memSessions) AppendStudySession(_ context.Context, session *model.StudySession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if session.ID == "" {
		session.ID = model.GenerateUUID()
	}
	if lo.ContainsBy(m.sessions, func(s model.StudySession) bool { return s.ID == session.ID }) {
		return util.ErrSessionAlreadyEnded
	}
	m.sessions = append(m.sessions, *session)
	return nil
}

func (m *memSessions) QuerySessions(_ context.Context, userID uint, q repository.SessionQuery) ([]model.StudySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	out := lo.Filter(m.sessions, func(s model.StudySession, _ int) bool {
		if s.UserID != userID {
			return false
		}
		if q.Since != nil && s.CreatedAt.Before(*q.Since) {
			return false
		}
		return q.Until == nil || s.CreatedAt.Before(*q.Until)
	})
	sort.SliceStable(out, func(i, j int) bool {
		if q.Newest {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (m *memSessions) add(userID uint, at time.Time, cards, correct, duration int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := model.StudySession{
		UserID:          userID,
		CardsStudied:    cards,
		CorrectAnswers:  correct,
		AccuracyRate:    gamification.AccuracyRate(correct, cards),
		DurationSeconds: duration,
		XPEarned:        gamification.SessionXP(correct),
	}
	s.ID = model.GenerateUUID()
	s.CreatedAt = at
	m.sessions = append(m.sessions, s)
}

type memAchievements struct {
	mu      sync.Mutex
	records []model.Achievement
	// appendErr 按徽章注入写入错误
	appendErr map[gamification.BadgeType]error
	typesErr  error
}

func (m *memAchievements) GetAchievementTypes(_ context.Context, userID uint) ([]gamification.BadgeType, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.typesErr != nil {
		return nil, m.typesErr
	}
	owned := lo.Filter(m.records, func(a model.Achievement, _ int) bool { return a.UserID == userID })
	return lo.Map(owned, func(a model.Achievement, _ int) gamification.BadgeType { return a.BadgeType }), nil
}

func (m *memAchievements) AppendAchievement(_ context.Context, achievement *model.Achievement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.appendErr[achievement.BadgeType]; err != nil {
		return err
	}
	exists := lo.ContainsBy(m.records, func(a model.Achievement) bool {
		return a.UserID == achievement.UserID && a.BadgeType == achievement.BadgeType
	})
	if exists {
		return util.ErrAchievementExists
	}
	m.records = append(m.records, *achievement)
	return nil
}

func (m *memAchievements) FindByUserID(_ context.Context, userID uint) ([]model.Achievement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owned := lo.Filter(m.records, func(a model.Achievement, _ int) bool { return a.UserID == userID })
	sort.SliceStable(owned, func(i, j int) bool { return owned[i].EarnedAt.After(owned[j].EarnedAt) })
	return owned, nil
}

func (m *memAchievements) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type memPending struct {
	mu  sync.Mutex
	ids map[uint]bool
}

func newMemPending() *memPending {
	return &memPending{ids: make(map[uint]bool)}
}

func (m *memPending) Add(_ context.Context, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids[userID] = true
	return nil
}

func (m *memPending) Drain(_ context.Context, _ int) ([]uint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := lo.Keys(m.ids)
	m.ids = make(map[uint]bool)
	return ids, nil
}

func (m *memPending) has(userID uint) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ids[userID]
}

type cacheKey struct {
	gen   int64
	limit int
}

type memCache struct {
	mu          sync.Mutex
	gen         int64
	entries     map[cacheKey][]model.LeaderboardEntry
	invalidated int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[cacheKey][]model.LeaderboardEntry)}
}

func (m *memCache) Generation(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen, nil
}

func (m *memCache) Get(_ context.Context, limit int) ([]model.LeaderboardEntry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[cacheKey{m.gen, limit}]
	return e, ok, nil
}

func (m *memCache) Set(_ context.Context, gen int64, limit int, entries []model.LeaderboardEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[cacheKey{gen, limit}] = entries
	return nil
}

func (m *memCache) Invalidate(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gen++
	m.invalidated++
	return nil
}

type memCards struct {
	mu    sync.Mutex
	cards map[string]model.Flashcard
}

func newMemCards(cards ...model.Flashcard) *memCards {
	m := &memCards{cards: make(map[string]model.Flashcard)}
	for _, c := range cards {
		m.cards[c.ID] = c
	}
	return m
}

func (m *memCards) Create(_ context.Context, card *model.Flashcard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if card.ID == "" {
		card.ID = model.GenerateUUID()
	}
	if card.DeckName == "" {
		card.DeckName = model.DefaultDeckName
	}
	m.cards[card.ID] = *card
	return nil
}

func (m *memCards) FindByIDAndUser(_ context.Context, id string, userID uint) (*model.Flashcard, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok || c.UserID != userID {
		return nil, util.ErrFlashcardNotFound
	}
	return &c, nil
}

func (m *memCards) List(_ context.Context, userID uint, filter repository.FlashcardFilter) ([]model.Flashcard, error) {
	return m.filter(func(c model.Flashcard) bool {
		return c.UserID == userID &&
			(filter.DeckName == "" || c.DeckName == filter.DeckName) &&
			(filter.Difficulty == "" || c.DifficultyLevel == filter.Difficulty)
	}, filter.Limit), nil
}

func (m *memCards) Due(_ context.Context, userID uint, deckName string, now time.Time, limit int) ([]model.Flashcard, error) {
	return m.filter(func(c model.Flashcard) bool {
		return c.UserID == userID && (deckName == "" || c.DeckName == deckName) &&
			c.NextReview != nil && !c.NextReview.After(now)
	}, limit), nil
}

func (m *memCards) Unreviewed(_ context.Context, userID uint, deckName string, limit int) ([]model.Flashcard, error) {
	return m.filter(func(c model.Flashcard) bool {
		return c.UserID == userID && (deckName == "" || c.DeckName == deckName) && c.NextReview == nil
	}, limit), nil
}

func (m *memCards) UpdateReview(_ context.Context, card *model.Flashcard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cards[card.ID]; !ok {
		return util.ErrFlashcardNotFound
	}
	m.cards[card.ID] = *card
	return nil
}

func (m *memCards) Delete(_ context.Context, id string, userID uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cards[id]
	if !ok || c.UserID != userID {
		return util.ErrFlashcardNotFound
	}
	delete(m.cards, id)
	return nil
}

func (m *memCards) DeckCounts(_ context.Context, userID uint) ([]repository.DeckCount, error) {
	owned := m.filter(func(c model.Flashcard) bool { return c.UserID == userID }, 0)
	counts := lo.CountValuesBy(owned, func(c model.Flashcard) string { return c.DeckName })
	decks := lo.MapToSlice(counts, func(name string, n int) repository.DeckCount {
		return repository.DeckCount{Name: name, CardCount: int64(n)}
	})
	sort.Slice(decks, func(i, j int) bool { return decks[i].Name < decks[j].Name })
	return decks, nil
}

func (m *memCards) filter(keep func(model.Flashcard) bool, limit int) []model.Flashcard {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := lo.Filter(lo.Values(m.cards), func(c model.Flashcard, _ int) bool { return keep(c) })
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *memCards) get(id string) model.Flashcard {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cards[id]
}
