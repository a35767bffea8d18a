package app_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/app"
	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/domain"
	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/infra/memory"
)

// manualClock is a hand-advanced time source shared by every service in a
// fixture, so countdown math is exact in tests.
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func newManualClock() *manualClock {
	return &manualClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	store   *memory.Store
	clock   *manualClock
	bank    *app.QuestionBank
	rooms   *app.RoomService
	scores  *app.ScoreKeeper
	control *app.QuizControl
}

func newFixture(questions []domain.BankQuestion) *fixture {
	st := memory.NewStore()
	clock := newManualClock()
	bank := app.NewQuestionBankWithClock(app.NewStaticBankLoader(questions), time.Minute, clock.Now)
	defaults := domain.RoomSettings{TimePerQuestion: 30, ShowCorrectAnswer: true, AllowLateJoin: true}

	ids := 0
	newID := func() string {
		ids++
		return fmt.Sprintf("room-%d", ids)
	}
	rooms := app.NewRoomServiceWithClock(st, bank, defaults, clock.Now, newID, 1)
	scores := app.NewScoreKeeperWithClock(st, clock.Now)
	control := app.NewQuizControlWithClock(st, scores, clock.Now)
	return &fixture{store: st, clock: clock, bank: bank, rooms: rooms, scores: scores, control: control}
}

// mathQuestions is the default two-question bank: interchangeable entries so
// the sampling shuffle cannot affect assertions.
func mathQuestions() []domain.BankQuestion {
	return []domain.BankQuestion{
		{
			ID:            "q-add",
			Question:      "What is 15 + 27?",
			Options:       []string{"40", "42", "44", "46"},
			CorrectAnswer: 1,
			TimeLimit:     30,
			Category:      "Mathematics",
			Difficulty:    "easy",
		},
		{
			ID:            "q-prime",
			Question:      "Which of these is a prime number?",
			Options:       []string{"57", "61", "63", "65"},
			CorrectAnswer: 1,
			TimeLimit:     30,
			Category:      "Mathematics",
			Difficulty:    "easy",
		},
	}
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}
