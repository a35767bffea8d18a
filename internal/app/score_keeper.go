package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/domain"
	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/store"
)

// ScoreKeeper aggregates submitted answers, recomputes the live leaderboard,
// and snapshots per-question results.
type ScoreKeeper struct {
	store store.Store
	clock func() time.Time
}

func NewScoreKeeper(st store.Store) *ScoreKeeper {
	return &ScoreKeeper{store: st, clock: time.Now}
}

// NewScoreKeeperWithClock is test-only for deterministic timestamps.
func NewScoreKeeperWithClock(st store.Store, clock func() time.Time) *ScoreKeeper {
	return &ScoreKeeper{store: st, clock: clock}
}

// SubmitAnswer scores and records one participant's answer. remaining is the
// countdown value the submitting client observed; with no server timing
// authority it is trusted as reported. Resubmitting the same question index
// overwrites the prior entry.
func (k *ScoreKeeper) SubmitAnswer(ctx context.Context, roomID, userID string, questionIndex, answer, remaining int) (domain.AnswerSubmission, error) {
	if userID == "" {
		return domain.AnswerSubmission{}, domain.ErrNoIdentity
	}
	question, err := getRoomQuestion(ctx, k.store, roomID, questionIndex)
	if err != nil {
		return domain.AnswerSubmission{}, err
	}

	duration := question.TimeLimit
	if remaining < 0 {
		remaining = 0
	}
	if remaining > duration {
		remaining = duration
	}
	correct := answer != domain.NoAnswer && answer == question.CorrectAnswer

	submission := domain.AnswerSubmission{
		Answer:      answer,
		IsCorrect:   correct,
		TimeSpent:   duration - remaining,
		Score:       domain.ScoreAnswer(correct, answer, remaining, duration),
		SubmittedAt: k.clock(),
	}
	err = k.store.Merge(ctx, answerPath(roomID, userID), map[string]any{
		answerKey(questionIndex): submission,
	})
	if err != nil {
		return domain.AnswerSubmission{}, fmt.Errorf("submit answer: %w", err)
	}
	return submission, nil
}

// CollectAnswers returns every submission recorded for one question, joined
// with participant display names. Participants who never answered are
// absent, not zero entries.
func (k *ScoreKeeper) CollectAnswers(ctx context.Context, roomID string, questionIndex int) ([]domain.RoomAnswer, error) {
	names, err := participantNames(ctx, k.store, roomID)
	if err != nil {
		return nil, err
	}
	records, err := k.answerRecords(ctx, roomID)
	if err != nil {
		return nil, err
	}

	key := answerKey(questionIndex)
	var answers []domain.RoomAnswer
	for _, rec := range records {
		sub, ok := rec.answers[key]
		if !ok {
			continue
		}
		name := names[rec.userID]
		if name == "" {
			name = "Unknown"
		}
		answers = append(answers, domain.RoomAnswer{
			UserID:        rec.userID,
			PlayerName:    name,
			QuestionIndex: questionIndex,
			Answer:        sub.Answer,
			IsCorrect:     sub.IsCorrect,
			TimeSpent:     sub.TimeSpent,
			Score:         sub.Score,
			SubmittedAt:   sub.SubmittedAt,
		})
	}
	return answers, nil
}

// UpdateLiveScores recomputes every participant's cumulative standing from
// scratch over questions 0..questionIndex and overwrites the live score
// documents. Recomputing rather than patching makes a repeated call
// idempotent, which is what lets concurrent or retried advances coexist.
func (k *ScoreKeeper) UpdateLiveScores(ctx context.Context, roomID string, questionIndex int) ([]domain.LiveScore, error) {
	participants, err := listParticipants(ctx, k.store, roomID)
	if err != nil {
		return nil, err
	}
	records, err := k.answerRecords(ctx, roomID)
	if err != nil {
		return nil, err
	}
	byUser := make(map[string]map[string]domain.AnswerSubmission, len(records))
	for _, rec := range records {
		byUser[rec.userID] = rec.answers
	}

	// Every participant gets an entry, silent ones included: ranks must be
	// a dense permutation of 1..participantCount. Entry order before the
	// sort is join order (then record-only users by id), which is also the
	// tie-break.
	type entry struct {
		userID string
		name   string
	}
	entries := make([]entry, 0, len(participants))
	seen := make(map[string]bool, len(participants))
	for _, p := range participants {
		entries = append(entries, entry{userID: p.ID, name: p.Name})
		seen[p.ID] = true
	}
	for _, rec := range records {
		if !seen[rec.userID] {
			entries = append(entries, entry{userID: rec.userID})
		}
	}

	now := k.clock()
	scores := make([]domain.LiveScore, 0, len(entries))
	for _, e := range entries {
		var total, correct, answered, totalTime int
		for i := 0; i <= questionIndex; i++ {
			sub, ok := byUser[e.userID][answerKey(i)]
			if !ok {
				continue
			}
			total += sub.Score
			if sub.IsCorrect {
				correct++
			}
			answered++
			totalTime += sub.TimeSpent
		}
		averageTime := 0
		if answered > 0 {
			averageTime = int(math.Round(float64(totalTime) / float64(answered)))
		}
		name := e.name
		if name == "" {
			name = "Unknown"
		}
		scores = append(scores, domain.LiveScore{
			UserID:            e.userID,
			PlayerName:        name,
			TotalScore:        total,
			CorrectAnswers:    correct,
			QuestionsAnswered: answered,
			AverageTime:       averageTime,
			LastUpdated:       now,
		})
	}

	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].TotalScore > scores[j].TotalScore
	})
	for i := range scores {
		scores[i].Rank = i + 1
	}

	for _, score := range scores {
		if err := k.store.Set(ctx, liveScorePath(roomID, score.UserID), score); err != nil {
			return nil, fmt.Errorf("write live score: %w", err)
		}
	}
	return scores, nil
}

// CreateQuestionResult builds and persists the write-once reveal snapshot
// for a closed question. A missing question is surfaced, not swallowed: the
// caller needs it to compose a reveal view. A snapshot already on record is
// returned unchanged.
func (k *ScoreKeeper) CreateQuestionResult(ctx context.Context, roomID string, questionIndex int) (domain.QuestionResult, error) {
	if data, err := k.store.Get(ctx, questionResultPath(roomID, questionIndex)); err == nil {
		var existing domain.QuestionResult
		if err := json.Unmarshal(data, &existing); err == nil {
			return existing, nil
		}
	}

	question, err := getRoomQuestion(ctx, k.store, roomID, questionIndex)
	if err != nil {
		return domain.QuestionResult{}, err
	}
	participants, err := listParticipants(ctx, k.store, roomID)
	if err != nil {
		return domain.QuestionResult{}, err
	}
	answers, err := k.CollectAnswers(ctx, roomID, questionIndex)
	if err != nil {
		return domain.QuestionResult{}, err
	}

	correctCount := 0
	totalTime := 0
	for _, a := range answers {
		if a.IsCorrect {
			correctCount++
		}
		totalTime += a.TimeSpent
	}
	averageTime := 0
	if len(answers) > 0 {
		averageTime = int(math.Round(float64(totalTime) / float64(len(answers))))
	}

	result := domain.QuestionResult{
		QuestionIndex:     questionIndex,
		Question:          question.Question,
		CorrectAnswer:     question.CorrectAnswer,
		Options:           question.Options,
		TotalParticipants: len(participants),
		Answers:           answers,
		CorrectCount:      correctCount,
		IncorrectCount:    len(answers) - correctCount,
		AverageTime:       averageTime,
		RevealedAt:        k.clock(),
	}
	if err := k.store.Set(ctx, questionResultPath(roomID, questionIndex), result); err != nil {
		return domain.QuestionResult{}, fmt.Errorf("write question result: %w", err)
	}
	return result, nil
}

// Leaderboard reads the persisted live scores ordered best-first.
func (k *ScoreKeeper) Leaderboard(ctx context.Context, roomID string) ([]domain.LiveScore, error) {
	docs, err := k.store.Query(ctx, liveScoresCollection(roomID), store.Query{OrderBy: "totalScore", Desc: true})
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return decodeLiveScores(docs), nil
}

// WatchLiveScores delivers the ranked leaderboard on every change.
func (k *ScoreKeeper) WatchLiveScores(ctx context.Context, roomID string, fn func([]domain.LiveScore)) (store.CancelFunc, error) {
	return k.store.WatchQuery(ctx, liveScoresCollection(roomID), store.Query{OrderBy: "rank"}, func(docs []store.Document) {
		fn(decodeLiveScores(docs))
	})
}

func decodeLiveScores(docs []store.Document) []domain.LiveScore {
	scores := make([]domain.LiveScore, 0, len(docs))
	for _, doc := range docs {
		var score domain.LiveScore
		if err := json.Unmarshal(doc.Data, &score); err != nil {
			log.Printf("decode live score %s: %v", doc.ID, err)
			continue
		}
		score.UserID = doc.ID
		scores = append(scores, score)
	}
	return scores
}

type answerRecord struct {
	userID  string
	answers map[string]domain.AnswerSubmission
}

// answerRecords loads every participant's answer document, ordered by user
// id so downstream stable sorts have a deterministic tie-break.
func (k *ScoreKeeper) answerRecords(ctx context.Context, roomID string) ([]answerRecord, error) {
	docs, err := k.store.Query(ctx, answersCollection(roomID), store.Query{})
	if err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}
	records := make([]answerRecord, 0, len(docs))
	for _, doc := range docs {
		var answers map[string]domain.AnswerSubmission
		if err := json.Unmarshal(doc.Data, &answers); err != nil {
			return nil, fmt.Errorf("decode answers %s: %w", doc.ID, err)
		}
		records = append(records, answerRecord{userID: doc.ID, answers: answers})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].userID < records[j].userID })
	return records, nil
}
