package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/domain"
	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/store"
)

// QuizControl is the timer state machine: which question is live, when it
// started, how long it lasts. Control operations follow a best-effort
// contract and return a success flag instead of an error; the host surface
// degrades to a retry prompt either way.
type QuizControl struct {
	store  store.Store
	scores *ScoreKeeper
	clock  func() time.Time
}

func NewQuizControl(st store.Store, scores *ScoreKeeper) *QuizControl {
	return &QuizControl{store: st, scores: scores, clock: time.Now}
}

// NewQuizControlWithClock is test-only for deterministic start instants.
func NewQuizControlWithClock(st store.Store, scores *ScoreKeeper, clock func() time.Time) *QuizControl {
	return &QuizControl{store: st, scores: scores, clock: clock}
}

// StartQuestion makes one question live: room index and status move, then
// the timer document anchors every client to the same start instant.
func (c *QuizControl) StartQuestion(ctx context.Context, actorID, roomID string, questionIndex, duration int) bool {
	if actorID == "" {
		return false
	}
	room, err := getRoom(ctx, c.store, roomID)
	if err != nil {
		log.Printf("start question: %v", err)
		return false
	}
	if !room.Status.CanTransition(domain.StatusActive) {
		log.Printf("start question: room %s already %s", roomID, room.Status)
		return false
	}

	now := c.clock()
	err = c.store.Merge(ctx, roomPath(roomID), map[string]any{
		"currentQuestionIndex": questionIndex,
		"status":               domain.StatusActive,
		"updatedAt":            now,
	})
	if err != nil {
		log.Printf("start question: %v", err)
		return false
	}

	timer := domain.TimerState{
		CurrentQuestionIndex: questionIndex,
		QuestionStartTime:    now,
		TimeRemaining:        duration,
		IsActive:             true,
		QuestionDuration:     duration,
	}
	if err := c.store.Set(ctx, timerPath(roomID), timer); err != nil {
		log.Printf("start question: %v", err)
		return false
	}
	return true
}

// StartQuiz begins the quiz at question 0 with that question's own time
// limit. Requires the room's question snapshot to exist.
func (c *QuizControl) StartQuiz(ctx context.Context, actorID, roomID string) bool {
	if actorID == "" {
		return false
	}
	first, err := getRoomQuestion(ctx, c.store, roomID, 0)
	if err != nil {
		log.Printf("start quiz: %v", err)
		return false
	}
	return c.StartQuestion(ctx, actorID, roomID, 0, first.TimeLimit)
}

// Advance closes the current question and opens the next, or ends the quiz
// after the last one. The scoring pass for the question that just ended
// always runs first; its failure is logged and never blocks progression,
// since a stuck quiz is worse than one missed scoring update.
func (c *QuizControl) Advance(ctx context.Context, actorID, roomID string) bool {
	if actorID == "" {
		return false
	}
	room, err := getRoom(ctx, c.store, roomID)
	if err != nil {
		log.Printf("advance: %v", err)
		return false
	}

	c.processQuestion(ctx, roomID, room.CurrentQuestionIndex)

	if room.CurrentQuestionIndex+1 >= room.QuestionCount {
		return c.endQuiz(ctx, roomID, room)
	}

	nextIndex := room.CurrentQuestionIndex + 1
	next, err := getRoomQuestion(ctx, c.store, roomID, nextIndex)
	if err != nil {
		log.Printf("advance: %v", err)
		return false
	}
	return c.StartQuestion(ctx, actorID, roomID, nextIndex, next.TimeLimit)
}

// EndQuiz runs the final scoring pass and completes the room.
func (c *QuizControl) EndQuiz(ctx context.Context, actorID, roomID string) bool {
	if actorID == "" {
		return false
	}
	room, err := getRoom(ctx, c.store, roomID)
	if err != nil {
		log.Printf("end quiz: %v", err)
		return false
	}
	return c.endQuiz(ctx, roomID, room)
}

func (c *QuizControl) endQuiz(ctx context.Context, roomID string, room domain.Room) bool {
	finalIndex := room.QuestionCount - 1
	if finalIndex < 0 {
		finalIndex = 0
	}
	c.processQuestion(ctx, roomID, finalIndex)

	now := c.clock()
	err := c.store.Merge(ctx, roomPath(roomID), map[string]any{
		"status":      domain.StatusCompleted,
		"completedAt": now,
		"updatedAt":   now,
	})
	if err != nil {
		log.Printf("end quiz: %v", err)
		return false
	}
	err = c.store.Merge(ctx, timerPath(roomID), map[string]any{
		"isActive":      false,
		"timeRemaining": 0,
	})
	if err != nil {
		log.Printf("end quiz: %v", err)
		return false
	}
	return true
}

// processQuestion is the partial-failure-tolerant scoring pass for a closed
// question. UpdateLiveScores re-collects internally; CreateQuestionResult is
// idempotent per index.
func (c *QuizControl) processQuestion(ctx context.Context, roomID string, questionIndex int) {
	if _, err := c.scores.UpdateLiveScores(ctx, roomID, questionIndex); err != nil {
		log.Printf("room %s: live score update for question %d failed: %v", roomID, questionIndex, err)
	}
	if _, err := c.scores.CreateQuestionResult(ctx, roomID, questionIndex); err != nil {
		log.Printf("room %s: question result for question %d failed: %v", roomID, questionIndex, err)
	}
}

// WatchTimer delivers timer snapshots with the remaining time re-derived
// from the stored start instant, so every subscriber converges on the same
// countdown regardless of when it subscribed. nil means no timer exists.
func (c *QuizControl) WatchTimer(ctx context.Context, roomID string, fn func(*domain.TimerState)) (store.CancelFunc, error) {
	return c.store.Watch(ctx, timerPath(roomID), func(data []byte) {
		if data == nil {
			fn(nil)
			return
		}
		var timer domain.TimerState
		if err := json.Unmarshal(data, &timer); err != nil {
			log.Printf("watch timer %s: %v", roomID, err)
			fn(nil)
			return
		}
		if timer.IsActive {
			timer.TimeRemaining = timer.Remaining(c.clock())
		}
		fn(&timer)
	})
}
