package app

import (
	"fmt"
	"strconv"

	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/store"
)

// Document addressing scheme. Every component speaks these paths; they are
// the wire contract a store backend must serve.
const (
	roomsCollection = "rooms"
	bankCollection  = "questions"
)

func roomPath(roomID string) string {
	return store.Join(roomsCollection, roomID)
}

func participantsCollection(roomID string) string {
	return store.Join(roomsCollection, roomID, "participants")
}

func participantPath(roomID, userID string) string {
	return store.Join(participantsCollection(roomID), userID)
}

func questionsCollection(roomID string) string {
	return store.Join(roomsCollection, roomID, "questions")
}

func questionPath(roomID string, index int) string {
	return store.Join(questionsCollection(roomID), strconv.Itoa(index))
}

func answersCollection(roomID string) string {
	return store.Join(roomsCollection, roomID, "answers")
}

func answerPath(roomID, userID string) string {
	return store.Join(answersCollection(roomID), userID)
}

func liveScoresCollection(roomID string) string {
	return store.Join(roomsCollection, roomID, "liveScores")
}

func liveScorePath(roomID, userID string) string {
	return store.Join(liveScoresCollection(roomID), userID)
}

func questionResultsCollection(roomID string) string {
	return store.Join(roomsCollection, roomID, "questionResults")
}

func questionResultPath(roomID string, index int) string {
	return store.Join(questionResultsCollection(roomID), strconv.Itoa(index))
}

func timerPath(roomID string) string {
	return store.Join(roomsCollection, roomID, "timer", "current")
}

func bankQuestionPath(id string) string {
	return store.Join(bankCollection, id)
}

// answerKey is the per-question key inside a participant's answer document.
func answerKey(index int) string {
	return fmt.Sprintf("q%d", index)
}
