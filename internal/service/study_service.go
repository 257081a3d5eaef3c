package service

import (
	"context"
	"fmt"
	"strings"
	"study_buddy_backend/internal/config"
	"study_buddy_backend/internal/gamification"
	"study_buddy_backend/internal/model"
	"study_buddy_backend/internal/repository"
	"study_buddy_backend/internal/util"
	"study_buddy_backend/pkg/logger"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type CreateCardRequest struct {
	Question        string   `json:"question" binding:"required"`
	Answer          string   `json:"answer" binding:"required"`
	QuestionType    string   `json:"questionType" binding:"required"`
	DifficultyLevel string   `json:"difficultyLevel" binding:"required"`
	DeckName        string   `json:"deckName"`
	Options         []string `json:"options"`
}

type AnswerRequest struct {
	FlashcardID string `json:"flashcardId" binding:"required"`
	UserAnswer  string `json:"userAnswer"`
	// TimeTaken 作答用时，秒
	TimeTaken int `json:"timeTaken"`
}

type AnswerResult struct {
	Correct     bool                       `json:"correct"`
	XPEarned    int                        `json:"xpEarned"`
	Calculation gamification.XPCalculation `json:"calculation"`
	Explanation string                     `json:"explanation"`
	NextReview  time.Time                  `json:"nextReview"`
	Performance float64                    `json:"performanceScore"`
	Progress    *ProgressDelta             `json:"progress"`
}

type StudyQueue struct {
	SessionID  string            `json:"sessionId"`
	Flashcards []model.Flashcard `json:"flashcards"`
	TotalCards int               `json:"totalCards"`
}

type SessionStart struct {
	SessionID string    `json:"sessionId"`
	StartTime time.Time `json:"startTime"`
	Message   string    `json:"message"`
}

type EndSessionRequest struct {
	SessionID       string `json:"sessionId" binding:"required"`
	CardsStudied    int    `json:"cardsStudied"`
	CorrectAnswers  int    `json:"correctAnswers"`
	SessionDuration int    `json:"sessionDuration"`
}

type SessionSummary struct {
	CardsStudied int     `json:"cardsStudied"`
	AccuracyRate float64 `json:"accuracyRate"`
	XPEarned     int     `json:"xpEarned"`
	Duration     int     `json:"duration"`
}

type SessionResult struct {
	Summary            SessionSummary           `json:"sessionSummary"`
	NewBadges          []gamification.BadgeType `json:"newBadges"`
	PerformanceMessage string                   `json:"performanceMessage"`
}

// StudyService 卡片管理、作答和学习会话
type StudyService struct {
	Cards        FlashcardStore
	Users        UserReader
	Sessions     SessionStore
	Progress     *ProgressService
	Achievements *AchievementService
	Clock        *gamification.Clock
	Config       config.GamificationConfig
}

func NewStudyService(
	cards FlashcardStore,
	users UserReader,
	sessions SessionStore,
	progress *ProgressService,
	achievements *AchievementService,
	clock *gamification.Clock,
	cfg config.GamificationConfig,
) *StudyService {
	return &StudyService{
		Cards:        cards,
		Users:        users,
		Sessions:     sessions,
		Progress:     progress,
		Achievements: achievements,
		Clock:        clock,
		Config:       cfg,
	}
}

func (s *StudyService) CreateCard(ctx context.Context, userID uint, req CreateCardRequest) (*model.Flashcard, error) {
	if strings.TrimSpace(req.Question) == "" || strings.TrimSpace(req.Answer) == "" {
		return nil, fmt.Errorf("%w: question and answer are required", util.ErrInvalidInput)
	}
	questionType, err := gamification.ParseQuestionType(req.QuestionType)
	if err != nil {
		return nil, err
	}
	difficulty, err := gamification.ParseDifficulty(req.DifficultyLevel)
	if err != nil {
		return nil, err
	}

	card := &model.Flashcard{
		UserID:          userID,
		Question:        req.Question,
		Answer:          req.Answer,
		QuestionType:    questionType,
		DifficultyLevel: difficulty,
		DeckName:        strings.TrimSpace(req.DeckName),
		Options:         datatypes.JSONSlice[string](req.Options),
	}

	writeCtx, cancel := storeCall(ctx, s.Config.StoreTimeout())
	defer cancel()
	if err := s.Cards.Create(writeCtx, card); err != nil {
		return nil, err
	}
	return card, nil
}

func (s *StudyService) ListCards(ctx context.Context, userID uint, deckName, difficulty string, limit int) ([]model.Flashcard, error) {
	filter := repository.FlashcardFilter{
		DeckName: deckName,
		Limit:    util.ClampLimit(limit, util.DefaultCardListLimit, util.MaxCardListLimit),
	}
	if difficulty != "" {
		d, err := gamification.ParseDifficulty(difficulty)
		if err != nil {
			return nil, err
		}
		filter.Difficulty = d
	}

	readCtx, cancel := storeCall(ctx, s.Config.StoreTimeout())
	defer cancel()
	return s.Cards.List(readCtx, userID, filter)
}

func (s *StudyService) DeleteCard(ctx context.Context, userID uint, cardID string) error {
	writeCtx, cancel := storeCall(ctx, s.Config.StoreTimeout())
	defer cancel()
	return s.Cards.Delete(writeCtx, cardID, userID)
}

func (s *StudyService) Decks(ctx context.Context, userID uint) ([]repository.DeckCount, error) {
	readCtx, cancel := storeCall(ctx, s.Config.StoreTimeout())
	defer cancel()
	return s.Cards.DeckCounts(readCtx, userID)
}

// StudyQueue 先取已到期的卡片，不足时用从未作答的卡片补齐
func (s *StudyService) StudyQueue(ctx context.Context, userID uint, deckName string, count int) (*StudyQueue, error) {
	count = util.ClampLimit(count, util.DefaultStudyQueueSize, util.MaxStudyQueueSize)

	readCtx, cancel := storeCall(ctx, s.Config.StoreTimeout())
	defer cancel()

	cards, err := s.Cards.Due(readCtx, userID, deckName, s.Clock.Now().UTC(), count)
	if err != nil {
		return nil, err
	}
	if remaining := count - len(cards); remaining > 0 {
		fresh, err := s.Cards.Unreviewed(readCtx, userID, deckName, remaining)
		if err != nil {
			return nil, err
		}
		cards = append(cards, fresh...)
	}
	if cards == nil {
		cards = []model.Flashcard{}
	}

	return &StudyQueue{
		SessionID:  uuid.NewString(),
		Flashcards: cards,
		TotalCards: len(cards),
	}, nil
}

// SubmitAnswer 判定答案、计算经验并累加用户进度，然后调整卡片熟练度和下次复习时间
func (s *StudyService) SubmitAnswer(ctx context.Context, userID uint, req AnswerRequest) (*AnswerResult, error) {
	if req.TimeTaken < 0 {
		return nil, fmt.Errorf("%w: time taken must not be negative", util.ErrInvalidInput)
	}

	readCtx, cancel := storeCall(ctx, s.Config.StoreTimeout())
	card, err := s.Cards.FindByIDAndUser(readCtx, req.FlashcardID, userID)
	cancel()
	if err != nil {
		return nil, err
	}

	readCtx, cancel = storeCall(ctx, s.Config.StoreTimeout())
	user, err := s.Users.GetUserProgress(readCtx, userID)
	cancel()
	if err != nil {
		return nil, err
	}

	correct := gamification.CheckAnswer(card.QuestionType, card.Answer, req.UserAnswer)
	calc, err := gamification.CalculateXP(correct, card.DifficultyLevel, req.TimeTaken, user.CurrentStreak, gamification.DefaultAccuracyRate)
	if err != nil {
		return nil, err
	}

	// 先累加进度，失败时卡片保持原样，客户端重新提交即可
	delta, err := s.Progress.RecordAnswerOutcome(ctx, userID, calc.TotalXP, correct)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now().UTC()
	card.PerformanceScore = gamification.AdjustPerformance(card.PerformanceScore, correct)
	card.TimesReviewed++
	nextReview := gamification.NextReviewDate(card.PerformanceScore, card.TimesReviewed, now)
	card.LastReviewed = &now
	card.NextReview = &nextReview

	writeCtx, cancel := storeCall(ctx, s.Config.StoreTimeout())
	err = s.Cards.UpdateReview(writeCtx, card)
	cancel()
	if err != nil {
		logger.Log.Error("Progress recorded but flashcard review state not saved",
			zap.Uint("user_id", userID),
			zap.String("flashcard_id", card.ID),
			zap.Int("xp_earned", calc.TotalXP),
			zap.Error(err),
		)
		return nil, err
	}

	explanation := "Perfect!"
	if !correct {
		explanation = "The correct answer is: " + card.Answer
	}

	return &AnswerResult{
		Correct:     correct,
		XPEarned:    calc.TotalXP,
		Calculation: calc,
		Explanation: explanation,
		NextReview:  nextReview,
		Performance: card.PerformanceScore,
		Progress:    delta,
	}, nil
}

func (s *StudyService) StartSession(ctx context.Context, userID uint) *SessionStart {
	start := &SessionStart{
		SessionID: uuid.NewString(),
		StartTime: s.Clock.Now(),
		Message:   "Study session started! Let's learn!",
	}
	logger.Log.Debug("Study session started",
		zap.Uint("user_id", userID),
		zap.String("session_id", start.SessionID),
	)
	return start
}

// EndSession 先写入学习记录，再评估徽章。评估失败不影响已写入的记录。
func (s *StudyService) EndSession(ctx context.Context, userID uint, req EndSessionRequest) (*SessionResult, error) {
	if _, err := uuid.Parse(req.SessionID); err != nil {
		return nil, fmt.Errorf("%w: malformed session id", util.ErrInvalidInput)
	}
	if req.CardsStudied < 0 || req.CorrectAnswers < 0 || req.SessionDuration < 0 {
		return nil, fmt.Errorf("%w: session counters must not be negative", util.ErrInvalidInput)
	}
	if req.CorrectAnswers > req.CardsStudied {
		return nil, fmt.Errorf("%w: correct answers exceed cards studied", util.ErrInvalidInput)
	}

	accuracy := gamification.AccuracyRate(req.CorrectAnswers, req.CardsStudied)
	session := &model.StudySession{
		UserID:          userID,
		CardsStudied:    req.CardsStudied,
		CorrectAnswers:  req.CorrectAnswers,
		AccuracyRate:    accuracy,
		DurationSeconds: req.SessionDuration,
		XPEarned:        gamification.SessionXP(req.CorrectAnswers),
	}
	session.ID = req.SessionID
	session.CreatedAt = s.Clock.Now().UTC()

	writeCtx, cancel := storeCall(ctx, s.Config.StoreTimeout())
	err := s.Sessions.AppendStudySession(writeCtx, session)
	cancel()
	if err != nil {
		return nil, err
	}

	badges := s.Achievements.EvaluateAfterSession(ctx, userID)

	return &SessionResult{
		Summary: SessionSummary{
			CardsStudied: session.CardsStudied,
			AccuracyRate: accuracy,
			XPEarned:     session.XPEarned,
			Duration:     session.DurationSeconds,
		},
		NewBadges:          lo.Ternary(badges == nil, []gamification.BadgeType{}, badges),
		PerformanceMessage: gamification.PerformanceMessage(accuracy, session.CardsStudied),
	}, nil
}
