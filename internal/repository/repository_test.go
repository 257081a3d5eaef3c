package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"
	"time"

	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/gamification"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/database"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.InitDB(&config.DatabaseConfig{
		Driver: util.DBDriverSQLite,
		Path:   "file:" + uuid.NewString() + "?mode=memory&cache=shared",
	}, true)
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func createUser(t *testing.T, db *gorm.DB, name string, xp int) *model.User {
	t.Helper()
	u := &model.User{Username: name, Email: name + "@example.com", XP: xp, Level: gamification.LevelForXP(xp)}
	require.NoError(t, NewUserRepository(db).Create(context.Background(), u))
	return u
}

func TestUserRepository_ProgressCompareAndSet(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := createUser(t, db, "alice", 0)

	first, err := repo.GetUserProgress(ctx, u.ID)
	require.NoError(t, err)
	second, err := repo.GetUserProgress(ctx, u.ID)
	require.NoError(t, err)

	today := datatypes.Date(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	first.XP = 105
	first.Level = 2
	first.CurrentStreak = 1
	first.LastStudyDate = &today
	require.NoError(t, repo.PutUserProgress(ctx, first))
	assert.Equal(t, 1, first.Version)

	// 第二个读者持有旧版本号
	second.XP = 10
	err = repo.PutUserProgress(ctx, second)
	assert.ErrorIs(t, err, util.ErrStorageConflict)

	stored, err := repo.GetUserProgress(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 105, stored.XP)
	assert.Equal(t, 2, stored.Level)
	assert.Equal(t, 1, stored.CurrentStreak)
	require.NotNil(t, stored.LastStudyTime())
	assert.Equal(t, "2024-01-15", stored.LastStudyTime().Format(util.DateFormat))
}

func TestUserRepository_NotFound(t *testing.T) {
	repo := NewUserRepository(newTestDB(t))
	_, err := repo.GetUserProgress(context.Background(), 42)
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestUserRepository_CanceledContext(t *testing.T) {
	db := newTestDB(t)
	u := createUser(t, db, "bob", 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewUserRepository(db).GetUserProgress(ctx, u.ID)
	assert.ErrorIs(t, err, util.ErrStorageUnavailable)
}

func TestUserRepository_FindTopByXPStableTies(t *testing.T) {
	db := newTestDB(t)
	a := createUser(t, db, "a", 50)
	b := createUser(t, db, "b", 200)
	c := createUser(t, db, "c", 50)

	users, err := NewUserRepository(db).FindTopByXP(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, []uint{b.ID, a.ID, c.ID}, []uint{users[0].ID, users[1].ID, users[2].ID})

	ids, err := NewUserRepository(db).ListIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint{a.ID, b.ID, c.ID}, ids)
}

func TestStudySessionRepository_Query(t *testing.T) {
	db := newTestDB(t)
	repo := NewStudySessionRepository(db)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		s := &model.StudySession{UserID: 1, CardsStudied: i + 1}
		s.CreatedAt = base.Add(time.Duration(i) * 24 * time.Hour)
		require.NoError(t, repo.AppendStudySession(ctx, s))
	}
	other := &model.StudySession{UserID: 2, CardsStudied: 99}
	require.NoError(t, repo.AppendStudySession(ctx, other))

	newest, err := repo.QuerySessions(ctx, 1, SessionQuery{Newest: true})
	require.NoError(t, err)
	require.Len(t, newest, 3)
	assert.Equal(t, 3, newest[0].CardsStudied)
	assert.Equal(t, 1, newest[2].CardsStudied)

	since := base.Add(24 * time.Hour)
	recent, err := repo.QuerySessions(ctx, 1, SessionQuery{Since: &since})
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 2, recent[0].CardsStudied)

	limited, err := repo.QuerySessions(ctx, 1, SessionQuery{Newest: true, Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, 3, limited[0].CardsStudied)

	none, err := repo.QuerySessions(ctx, 3, SessionQuery{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestAchievementRepository_UniquePerUserAndBadge(t *testing.T) {
	db := newTestDB(t)
	repo := NewAchievementRepository(db)
	ctx := context.Background()

	award := func(userID uint, badge gamification.BadgeType) error {
		return repo.AppendAchievement(ctx, &model.Achievement{UserID: userID, BadgeType: badge, EarnedAt: time.Now().UTC()})
	}

	require.NoError(t, award(1, gamification.BadgeFirstSteps))
	require.NoError(t, award(1, gamification.BadgeNightOwl))
	require.NoError(t, award(2, gamification.BadgeFirstSteps))
	assert.ErrorIs(t, award(1, gamification.BadgeFirstSteps), util.ErrAchievementExists)

	types, err := repo.GetAchievementTypes(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []gamification.BadgeType{gamification.BadgeFirstSteps, gamification.BadgeNightOwl}, types)

	list, err := repo.FindByUserID(ctx, 2)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, gamification.BadgeFirstSteps, list[0].BadgeType)
}

func TestFlashcardRepository_Lifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewFlashcardRepository(db)
	ctx := context.Background()
	now := time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

	newCard := func(deck string, difficulty gamification.Difficulty) *model.Flashcard {
		card := &model.Flashcard{
			UserID:          7,
			Question:        "2+2?",
			Answer:          "4",
			QuestionType:    gamification.QuestionFillBlank,
			DifficultyLevel: difficulty,
			DeckName:        deck,
		}
		require.NoError(t, repo.Create(ctx, card))
		return card
	}

	due := newCard("math", gamification.DifficultyEasy)
	fresh := newCard("", gamification.DifficultyHard)
	later := newCard("math", gamification.DifficultyMedium)
	assert.Equal(t, model.DefaultDeckName, fresh.DeckName)

	past := now.Add(-time.Hour)
	due.NextReview = &past
	due.TimesReviewed = 1
	require.NoError(t, repo.UpdateReview(ctx, due))

	future := now.Add(48 * time.Hour)
	later.NextReview = &future
	require.NoError(t, repo.UpdateReview(ctx, later))

	dueCards, err := repo.Due(ctx, 7, "", now, 10)
	require.NoError(t, err)
	require.Len(t, dueCards, 1)
	assert.Equal(t, due.ID, dueCards[0].ID)
	assert.Equal(t, 1, dueCards[0].TimesReviewed)

	unreviewed, err := repo.Unreviewed(ctx, 7, "", 10)
	require.NoError(t, err)
	require.Len(t, unreviewed, 1)
	assert.Equal(t, fresh.ID, unreviewed[0].ID)

	hard, err := repo.List(ctx, 7, FlashcardFilter{Difficulty: gamification.DifficultyHard})
	require.NoError(t, err)
	require.Len(t, hard, 1)

	mathCards, err := repo.List(ctx, 7, FlashcardFilter{DeckName: "math", Limit: 5})
	require.NoError(t, err)
	assert.Len(t, mathCards, 2)

	decks, err := repo.DeckCounts(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []DeckCount{{Name: model.DefaultDeckName, CardCount: 1}, {Name: "math", CardCount: 2}}, decks)

	_, err = repo.FindByIDAndUser(ctx, due.ID, 8)
	assert.ErrorIs(t, err, util.ErrFlashcardNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, due.ID, 8), util.ErrFlashcardNotFound)

	require.NoError(t, repo.Delete(ctx, due.ID, 7))
	_, err = repo.FindByIDAndUser(ctx, due.ID, 7)
	assert.ErrorIs(t, err, util.ErrFlashcardNotFound)
}

func TestTranslate_StorageUnavailable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"deadline", context.DeadlineExceeded, true},
		{"conn done", sql.ErrConnDone, true},
		{"bad conn", fmt.Errorf("exec: %w", driver.ErrBadConn), true},
		{"invalid conn", mysql.ErrInvalidConn, true},
		{"connection refused", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, true},
		{"too many connections", &mysql.MySQLError{Number: 1040, Message: "Too many connections"}, true},
		{"deadlock", &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}, true},
		{"syntax error", &mysql.MySQLError{Number: 1064, Message: "syntax"}, false},
		{"sqlite busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"other", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := translate(tt.err, nil, "op")
			assert.Equal(t, tt.want, errors.Is(err, util.ErrStorageUnavailable), err)
			assert.Equal(t, tt.want, util.IsRetryable(err))
		})
	}
}

func TestUserRepository_ClosedPoolIsUnavailable(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	u := createUser(t, db, "frank", 0)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	_, err = repo.GetUserProgress(ctx, u.ID)
	assert.ErrorIs(t, err, util.ErrStorageUnavailable)

	err = repo.PutUserProgress(ctx, u)
	assert.ErrorIs(t, err, util.ErrStorageUnavailable)
	assert.True(t, util.IsRetryable(err))
}
