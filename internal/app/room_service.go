package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/domain"
	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/store"
)

const (
	hostAvatar   = "👑"
	playerAvatar = "🎮"

	// codeAttempts bounds the uniqueness-checked room-code draws before
	// CreateRoom gives up with ErrCodeExhausted.
	codeAttempts = 10
)

// RoomService owns room lifecycle: creation, code generation, joins and
// leaves, settings and status mutation, and the per-room question snapshot.
type RoomService struct {
	store    store.Store
	bank     *QuestionBank
	defaults domain.RoomSettings
	clock    func() time.Time
	newID    func() string

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewRoomService(st store.Store, bank *QuestionBank, defaults domain.RoomSettings) *RoomService {
	return &RoomService{
		store:    st,
		bank:     bank,
		defaults: defaults,
		clock:    time.Now,
		newID:    uuid.NewString,
		rnd:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NewRoomServiceWithClock is test-only for deterministic timestamps, ids,
// and code draws.
func NewRoomServiceWithClock(st store.Store, bank *QuestionBank, defaults domain.RoomSettings, clock func() time.Time, newID func() string, seed int64) *RoomService {
	s := NewRoomService(st, bank, defaults)
	if clock != nil {
		s.clock = clock
	}
	if newID != nil {
		s.newID = newID
	}
	s.rnd = rand.New(rand.NewSource(seed))
	return s
}

// CreateRoomResult reports the created room's handles. A room with
// QuestionsInitialized false exists but is not playable.
type CreateRoomResult struct {
	RoomID               string
	RoomCode             string
	QuestionCount        int
	QuestionsInitialized bool
}

// CreateRoom allocates a room, its unique code, the host participant, and
// the room's immutable question snapshot.
func (s *RoomService) CreateRoom(ctx context.Context, hostID, hostName string, questionCount int, category string) (CreateRoomResult, error) {
	if hostID == "" || hostName == "" {
		return CreateRoomResult{}, errors.New("host id and name are required")
	}
	if questionCount < 1 {
		return CreateRoomResult{}, errors.New("question count must be at least 1")
	}
	if category == "" {
		category = domain.CategoryAny
	}

	roomID := s.newID()
	code, err := s.generateUniqueCode(ctx)
	if err != nil {
		return CreateRoomResult{}, err
	}

	now := s.clock()
	room := domain.Room{
		ID:                   roomID,
		HostID:               hostID,
		HostName:             hostName,
		Status:               domain.StatusWaiting,
		QuestionCount:        questionCount,
		CurrentQuestionIndex: 0,
		CreatedAt:            now,
		UpdatedAt:            now,
		RoomCode:             code,
		QuestionsInitialized: false,
		SelectedCategory:     category,
		Settings:             s.defaults,
	}
	if err := s.store.Set(ctx, roomPath(roomID), room); err != nil {
		return CreateRoomResult{}, fmt.Errorf("create room: %w", err)
	}

	host := domain.Participant{
		ID:       hostID,
		Name:     hostName,
		JoinedAt: now,
		IsHost:   true,
		Avatar:   hostAvatar,
	}
	if err := s.store.Set(ctx, participantPath(roomID, hostID), host); err != nil {
		return CreateRoomResult{}, fmt.Errorf("create host participant: %w", err)
	}

	result := CreateRoomResult{RoomID: roomID, RoomCode: code, QuestionCount: questionCount}
	sampled, err := s.initializeQuestions(ctx, roomID, questionCount, category)
	if err != nil {
		// The room stays usable as a lobby; callers must treat it as not
		// playable until questions initialize.
		log.Printf("room %s: question initialization failed: %v", roomID, err)
		return result, nil
	}
	result.QuestionCount = sampled
	result.QuestionsInitialized = sampled > 0
	return result, nil
}

// initializeQuestions samples the bank and writes the room's question
// snapshot, returning the sampled size. The snapshot is written exactly once,
// before the room can start, and is never mutated afterward.
func (s *RoomService) initializeQuestions(ctx context.Context, roomID string, count int, category string) (int, error) {
	filters := SampleFilters{}
	if category != domain.CategoryAny {
		filters.Category = category
	}
	sampled, err := s.bank.Sample(ctx, count, filters)
	if err != nil {
		return 0, err
	}
	if len(sampled) == 0 {
		return 0, errors.New("no questions available")
	}
	if len(sampled) < count {
		log.Printf("room %s: only %d questions available, requested %d", roomID, len(sampled), count)
	}

	now := s.clock()
	for index, q := range sampled {
		timeLimit := q.TimeLimit
		if timeLimit <= 0 {
			timeLimit = s.defaults.TimePerQuestion
		}
		question := domain.RoomQuestion{
			ID:            q.ID,
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			TimeLimit:     timeLimit,
			Category:      orDefault(q.Category, "general"),
			Difficulty:    orDefault(q.Difficulty, "medium"),
			CreatedAt:     q.CreatedAt,
			QuestionIndex: index,
			AddedAt:       now,
		}
		if err := s.store.Set(ctx, questionPath(roomID, index), question); err != nil {
			return 0, fmt.Errorf("write question %d: %w", index, err)
		}
	}

	err = s.store.Merge(ctx, roomPath(roomID), map[string]any{
		"questionCount":        len(sampled),
		"questionsInitialized": true,
		"selectedCategory":     category,
		"updatedAt":            now,
	})
	if err != nil {
		return 0, fmt.Errorf("finalize questions: %w", err)
	}
	return len(sampled), nil
}

// generateUniqueCode draws 6-digit codes until one is unused among rooms
// that have not completed, within the attempt budget.
func (s *RoomService) generateUniqueCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < codeAttempts; attempt++ {
		code := s.drawCode()
		docs, err := s.store.Query(ctx, roomsCollection, store.Query{
			Filters: []store.Filter{
				store.Eq("roomCode", code),
				store.In("status", string(domain.StatusWaiting), string(domain.StatusActive)),
			},
			Limit: 1,
		})
		if err != nil {
			return "", fmt.Errorf("check room code: %w", err)
		}
		if len(docs) == 0 {
			return code, nil
		}
	}
	return "", domain.ErrCodeExhausted
}

func (s *RoomService) drawCode() string {
	s.rndMu.Lock()
	defer s.rndMu.Unlock()
	return fmt.Sprintf("%06d", 100000+s.rnd.Intn(900000))
}

// JoinRoom resolves a code to a room and adds the caller as a participant.
// Re-joining a room the caller is already in succeeds without a second
// participant document.
func (s *RoomService) JoinRoom(ctx context.Context, code, userID, name string) (string, error) {
	if userID == "" {
		return "", domain.ErrNoIdentity
	}
	docs, err := s.store.Query(ctx, roomsCollection, store.Query{
		Filters: []store.Filter{store.Eq("roomCode", code)},
		Limit:   1,
	})
	if err != nil {
		return "", fmt.Errorf("find room by code: %w", err)
	}
	if len(docs) == 0 {
		return "", domain.ErrRoomNotFound
	}
	roomID := docs[0].ID

	room, err := getRoom(ctx, s.store, roomID)
	if err != nil {
		return "", err
	}
	if room.Status == domain.StatusCompleted {
		return "", domain.ErrRoomEnded
	}
	if room.Status == domain.StatusActive && !room.Settings.AllowLateJoin {
		return "", domain.ErrLateJoin
	}

	if _, err := s.store.Get(ctx, participantPath(roomID, userID)); err == nil {
		return roomID, nil // already joined
	} else if err != store.ErrNotFound {
		return "", fmt.Errorf("check participant: %w", err)
	}

	participant := domain.Participant{
		ID:       userID,
		Name:     name,
		JoinedAt: s.clock(),
		IsHost:   false,
		Avatar:   playerAvatar,
	}
	if err := s.store.Set(ctx, participantPath(roomID, userID), participant); err != nil {
		return "", fmt.Errorf("join room: %w", err)
	}
	return roomID, nil
}

// LeaveRoom removes a participant document.
func (s *RoomService) LeaveRoom(ctx context.Context, roomID, userID string) error {
	return s.store.Delete(ctx, participantPath(roomID, userID))
}

func (s *RoomService) GetRoomInfo(ctx context.Context, roomID string) (domain.Room, error) {
	return getRoom(ctx, s.store, roomID)
}

func (s *RoomService) Participants(ctx context.Context, roomID string) ([]domain.Participant, error) {
	return listParticipants(ctx, s.store, roomID)
}

// UpdateStatus applies a forward-only status transition. Writing the current
// status again is a no-op.
func (s *RoomService) UpdateStatus(ctx context.Context, roomID string, status domain.RoomStatus) error {
	room, err := getRoom(ctx, s.store, roomID)
	if err != nil {
		return err
	}
	if !room.Status.CanTransition(status) {
		return domain.ErrStatusRegression
	}
	if room.Status == status {
		return nil
	}
	fields := map[string]any{
		"status":    status,
		"updatedAt": s.clock(),
	}
	if status == domain.StatusCompleted {
		fields["completedAt"] = s.clock()
	}
	return s.store.Merge(ctx, roomPath(roomID), fields)
}

func (s *RoomService) UpdateCurrentQuestion(ctx context.Context, roomID string, index int) error {
	return s.store.Merge(ctx, roomPath(roomID), map[string]any{
		"currentQuestionIndex": index,
		"updatedAt":            s.clock(),
	})
}

func (s *RoomService) UpdateSettings(ctx context.Context, roomID string, settings domain.RoomSettings) error {
	return s.store.Merge(ctx, roomPath(roomID), map[string]any{
		"settings":  settings,
		"updatedAt": s.clock(),
	})
}

// Question returns one entry of the room's immutable question snapshot.
func (s *RoomService) Question(ctx context.Context, roomID string, index int) (domain.RoomQuestion, error) {
	return getRoomQuestion(ctx, s.store, roomID, index)
}

// WatchRoom delivers the room document on every change; nil when deleted.
func (s *RoomService) WatchRoom(ctx context.Context, roomID string, fn func(*domain.Room)) (store.CancelFunc, error) {
	return s.store.Watch(ctx, roomPath(roomID), func(data []byte) {
		if data == nil {
			fn(nil)
			return
		}
		var room domain.Room
		if err := json.Unmarshal(data, &room); err != nil {
			log.Printf("watch room %s: %v", roomID, err)
			return
		}
		room.ID = roomID
		fn(&room)
	})
}

// WatchParticipants delivers the participant list ordered by join time.
func (s *RoomService) WatchParticipants(ctx context.Context, roomID string, fn func([]domain.Participant)) (store.CancelFunc, error) {
	return s.store.WatchQuery(ctx, participantsCollection(roomID), store.Query{OrderBy: "joinedAt"}, func(docs []store.Document) {
		participants := make([]domain.Participant, 0, len(docs))
		for _, doc := range docs {
			var p domain.Participant
			if err := json.Unmarshal(doc.Data, &p); err != nil {
				log.Printf("watch participants %s: %v", roomID, err)
				continue
			}
			p.ID = doc.ID
			participants = append(participants, p)
		}
		fn(participants)
	})
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
