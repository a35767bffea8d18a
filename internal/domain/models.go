package domain

import "time"

// RoomStatus is the lifecycle tag of a room. Transitions only move forward:
// waiting -> active -> completed.
type RoomStatus string

const (
	StatusWaiting   RoomStatus = "waiting"
	StatusActive    RoomStatus = "active"
	StatusCompleted RoomStatus = "completed"
)

func (s RoomStatus) rank() int {
	switch s {
	case StatusWaiting:
		return 0
	case StatusActive:
		return 1
	case StatusCompleted:
		return 2
	}
	return -1
}

// CanTransition reports whether moving to next is a forward (or same-state)
// transition.
func (s RoomStatus) CanTransition(next RoomStatus) bool {
	if s.rank() < 0 || next.rank() < 0 {
		return false
	}
	return next.rank() >= s.rank()
}

// CategoryAny selects questions from every category.
const CategoryAny = "ANY"

// NoAnswer is the option-index sentinel submitted when a participant let the
// timer run out without picking an option.
const NoAnswer = -1

// RoomSettings are the per-room knobs chosen by the host.
type RoomSettings struct {
	TimePerQuestion   int  `json:"timePerQuestion"`
	ShowCorrectAnswer bool `json:"showCorrectAnswer"`
	AllowLateJoin     bool `json:"allowLateJoin"`
}

// Room is one quiz session. The document lives at rooms/{id}; the short
// RoomCode is the human-shareable handle, unique among non-completed rooms.
type Room struct {
	ID                    string       `json:"id"`
	HostID                string       `json:"hostUID"`
	HostName              string       `json:"hostName"`
	Status                RoomStatus   `json:"status"`
	QuestionCount         int          `json:"questionCount"`
	CurrentQuestionIndex  int          `json:"currentQuestionIndex"`
	CreatedAt             time.Time    `json:"createdAt"`
	UpdatedAt             time.Time    `json:"updatedAt"`
	CompletedAt           *time.Time   `json:"completedAt,omitempty"`
	RoomCode              string       `json:"roomCode"`
	QuestionsInitialized  bool         `json:"questionsInitialized"`
	SelectedCategory      string       `json:"selectedCategory"`
	Settings              RoomSettings `json:"settings"`
}

// Participant is one joined actor in a room, stored at
// rooms/{roomId}/participants/{userId}. The host is always present with
// IsHost set, written atomically with the room.
type Participant struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	JoinedAt time.Time `json:"joinedAt"`
	IsHost   bool      `json:"isHost"`
	Avatar   string    `json:"avatar"`
}

// BankQuestion is a global question bank entry (questions/{id}).
type BankQuestion struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Options       []string  `json:"options"`
	CorrectAnswer int       `json:"correctAnswer"`
	TimeLimit     int       `json:"timeLimit"`
	Category      string    `json:"category,omitempty"`
	Difficulty    string    `json:"difficulty,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RoomQuestion is the per-room snapshot of a sampled bank question, stored at
// rooms/{roomId}/questions/{index} and immutable once written. QuestionIndex
// is its only addressable identity from then on.
type RoomQuestion struct {
	ID            string    `json:"id"`
	Question      string    `json:"question"`
	Options       []string  `json:"options"`
	CorrectAnswer int       `json:"correctAnswer"`
	TimeLimit     int       `json:"timeLimit"`
	Category      string    `json:"category"`
	Difficulty    string    `json:"difficulty"`
	CreatedAt     time.Time `json:"createdAt"`
	QuestionIndex int       `json:"questionIndex"`
	AddedAt       time.Time `json:"addedAt"`
}

// AnswerSubmission is one participant's answer to one question, keyed inside
// the participant's answer document as "q{index}". Later writes for the same
// key overwrite: a client holds at most one answer per question.
type AnswerSubmission struct {
	Answer      int       `json:"answer"`
	IsCorrect   bool      `json:"isCorrect"`
	TimeSpent   int       `json:"timeSpent"`
	Score       int       `json:"score"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// RoomAnswer is a collected submission joined with the participant's name,
// produced when a question closes.
type RoomAnswer struct {
	UserID        string    `json:"userId"`
	PlayerName    string    `json:"playerName"`
	QuestionIndex int       `json:"questionIndex"`
	Answer        int       `json:"answer"`
	IsCorrect     bool      `json:"isCorrect"`
	TimeSpent     int       `json:"timeSpent"`
	Score         int       `json:"score"`
	SubmittedAt   time.Time `json:"submittedAt"`
}

// TimerState is the single source of truth for which question is live and
// when it started (rooms/{roomId}/timer/current). TimeRemaining is always
// derived from QuestionStartTime, never stored as a ticking counter, so
// clock-skewed clients converge once they share the start instant.
type TimerState struct {
	CurrentQuestionIndex int       `json:"currentQuestionIndex"`
	QuestionStartTime    time.Time `json:"questionStartTime"`
	TimeRemaining        int       `json:"timeRemaining"`
	IsActive             bool      `json:"isActive"`
	QuestionDuration     int       `json:"questionDuration"`
}

// Remaining derives the seconds left on the countdown at now, clamped at 0.
func (t TimerState) Remaining(now time.Time) int {
	elapsed := int(now.Sub(t.QuestionStartTime) / time.Second)
	remaining := t.QuestionDuration - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// LiveScore is one participant's recomputed cumulative standing
// (rooms/{roomId}/liveScores/{userId}). Rank is 1-based and dense.
type LiveScore struct {
	UserID            string    `json:"userId"`
	PlayerName        string    `json:"playerName"`
	TotalScore        int       `json:"totalScore"`
	CorrectAnswers    int       `json:"correctAnswers"`
	QuestionsAnswered int       `json:"questionsAnswered"`
	AverageTime       int       `json:"averageTime"`
	Rank              int       `json:"rank"`
	LastUpdated       time.Time `json:"lastUpdated"`
}

// QuestionResult is the write-once reveal/audit snapshot of one closed
// question (rooms/{roomId}/questionResults/{index}).
type QuestionResult struct {
	QuestionIndex     int          `json:"questionIndex"`
	Question          string       `json:"question"`
	CorrectAnswer     int          `json:"correctAnswer"`
	Options           []string     `json:"options"`
	TotalParticipants int          `json:"totalParticipants"`
	Answers           []RoomAnswer `json:"answers"`
	CorrectCount      int          `json:"correctCount"`
	IncorrectCount    int          `json:"incorrectCount"`
	AverageTime       int          `json:"averageTime"`
	RevealedAt        time.Time    `json:"revealedAt"`
}
