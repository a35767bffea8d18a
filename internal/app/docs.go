package app

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/domain"
	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/store"
)

// Shared typed reads over the document store, used across the room, control,
// and scoring services.

func getRoom(ctx context.Context, st store.Store, roomID string) (domain.Room, error) {
	data, err := st.Get(ctx, roomPath(roomID))
	if err == store.ErrNotFound {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.Room{}, fmt.Errorf("get room %s: %w", roomID, err)
	}
	var room domain.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return domain.Room{}, fmt.Errorf("decode room %s: %w", roomID, err)
	}
	room.ID = roomID
	return room, nil
}

func getRoomQuestion(ctx context.Context, st store.Store, roomID string, index int) (domain.RoomQuestion, error) {
	data, err := st.Get(ctx, questionPath(roomID, index))
	if err == store.ErrNotFound {
		return domain.RoomQuestion{}, domain.ErrQuestionNotFound
	}
	if err != nil {
		return domain.RoomQuestion{}, fmt.Errorf("get question %d: %w", index, err)
	}
	var question domain.RoomQuestion
	if err := json.Unmarshal(data, &question); err != nil {
		return domain.RoomQuestion{}, fmt.Errorf("decode question %d: %w", index, err)
	}
	return question, nil
}

func listParticipants(ctx context.Context, st store.Store, roomID string) ([]domain.Participant, error) {
	docs, err := st.Query(ctx, participantsCollection(roomID), store.Query{OrderBy: "joinedAt"})
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	participants := make([]domain.Participant, 0, len(docs))
	for _, doc := range docs {
		var p domain.Participant
		if err := json.Unmarshal(doc.Data, &p); err != nil {
			return nil, fmt.Errorf("decode participant %s: %w", doc.ID, err)
		}
		p.ID = doc.ID
		participants = append(participants, p)
	}
	return participants, nil
}

// participantNames maps participant id to display name for score joins.
func participantNames(ctx context.Context, st store.Store, roomID string) (map[string]string, error) {
	participants, err := listParticipants(ctx, st, roomID)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(participants))
	for _, p := range participants {
		name := p.Name
		if name == "" {
			name = "Unknown"
		}
		names[p.ID] = name
	}
	return names, nil
}
