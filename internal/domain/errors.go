package domain

import "errors"

var (
	// ErrRoomNotFound is returned when no room matches the given id or code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomEnded is returned when joining a room whose game already ended.
	ErrRoomEnded = errors.New("room has already ended")
	// ErrLateJoin is returned when joining an active room that forbids late joins.
	ErrLateJoin = errors.New("game in progress and late joining is not allowed")
	// ErrQuestionNotFound indicates a room question index with no document.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrCodeExhausted means the room-code generator ran out of attempts.
	ErrCodeExhausted = errors.New("failed to generate unique room code after multiple attempts")
	// ErrNoIdentity is returned when an operation requires an authenticated actor.
	ErrNoIdentity = errors.New("no authenticated identity")
	// ErrStatusRegression rejects a backwards room status transition.
	ErrStatusRegression = errors.New("room status cannot move backwards")
)
