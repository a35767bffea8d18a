// Package http exposes the quiz core to browser clients: a small REST
// surface for room creation and a WebSocket per participant carrying room,
// timer, and leaderboard snapshots downstream and answers and host controls
// upstream.
package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/app"
	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/domain"
	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/identity"
	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/store"
)

type WSHandler struct {
	rooms    *app.RoomService
	control  *app.QuizControl
	scores   *app.ScoreKeeper
	advance  *app.AutoAdvance
	upgrader websocket.Upgrader
}

func NewWSHandler(rooms *app.RoomService, control *app.QuizControl, scores *app.ScoreKeeper, advance *app.AutoAdvance) *WSHandler {
	return &WSHandler{
		rooms:   rooms,
		control: control,
		scores:  scores,
		advance: advance,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionIndex int `json:"questionIndex"`
	Answer        int `json:"answer"`
	TimeRemaining int `json:"timeRemaining"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type joinedPayload struct {
	RoomID string `json:"roomId"`
	UserID string `json:"userId"`
}

type createRoomRequest struct {
	HostID        string `json:"hostId"`
	HostName      string `json:"hostName"`
	QuestionCount int    `json:"questionCount"`
	Category      string `json:"category"`
}

type createRoomResponse struct {
	RoomID               string `json:"roomId"`
	RoomCode             string `json:"roomCode"`
	HostID               string `json:"hostId"`
	QuestionCount        int    `json:"questionCount"`
	QuestionsInitialized bool   `json:"questionsInitialized"`
}

// HandleCreateRoom creates a room over plain HTTP; the host then attaches
// via the websocket with the returned code and host id.
func (h *WSHandler) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.HostID == "" {
		// Anonymous identity issuance: one stable id per client session.
		req.HostID = identity.NewProvider().GetOrCreate()
	}

	result, err := h.rooms.CreateRoom(r.Context(), req.HostID, req.HostName, req.QuestionCount, req.Category)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, domain.ErrCodeExhausted) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(createRoomResponse{
		RoomID:               result.RoomID,
		RoomCode:             result.RoomCode,
		HostID:               req.HostID,
		QuestionCount:        result.QuestionCount,
		QuestionsInitialized: result.QuestionsInitialized,
	})
}

// ServeWS joins the caller into a room by code and streams room, timer, and
// leaderboard snapshots until the connection drops. Hosts additionally get
// control messages and an auto-advance driver bound to the connection.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	userID := r.URL.Query().Get("userId")
	displayName := r.URL.Query().Get("name")
	if code == "" || displayName == "" {
		http.Error(w, "missing code or name", http.StatusBadRequest)
		return
	}
	if userID == "" {
		userID = identity.NewProvider().GetOrCreate()
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	roomID, err := h.rooms.JoinRoom(ctx, code, userID, displayName)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	room, err := h.rooms.GetRoomInfo(ctx, roomID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	isHost := room.HostID == userID

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-send:
				if err := conn.WriteJSON(msg); err != nil {
					log.Printf("ws write error: %v", err)
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	// push must never block forever: a dead writer drains nothing, so give
	// up on writerDone as well, or a full buffer would wedge the caller,
	// including store watchers notifying from other clients' goroutines.
	push := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		case <-writerDone:
		}
	}

	var cancels []store.CancelFunc
	releaseAll := func() {
		for _, cancel := range cancels {
			cancel()
		}
	}

	cancelRoom, err := h.rooms.WatchRoom(ctx, roomID, func(room *domain.Room) {
		push(outboundMessage[any]{Type: "room", Payload: room})
	})
	if err != nil {
		log.Printf("room %s: watch room failed: %v", roomID, err)
	} else {
		cancels = append(cancels, cancelRoom)
	}
	cancelTimer, err := h.control.WatchTimer(ctx, roomID, func(timer *domain.TimerState) {
		push(outboundMessage[any]{Type: "timer", Payload: timer})
	})
	if err != nil {
		log.Printf("room %s: watch timer failed: %v", roomID, err)
	} else {
		cancels = append(cancels, cancelTimer)
	}
	cancelScores, err := h.scores.WatchLiveScores(ctx, roomID, func(scores []domain.LiveScore) {
		push(outboundMessage[any]{Type: "leaderboard", Payload: scores})
	})
	if err != nil {
		log.Printf("room %s: watch live scores failed: %v", roomID, err)
	} else {
		cancels = append(cancels, cancelScores)
	}

	var stopDriver store.CancelFunc
	ensureDriver := func() {
		if !isHost || stopDriver != nil {
			return
		}
		stop, err := h.advance.Start(ctx, userID, roomID)
		if err != nil {
			log.Printf("room %s: auto-advance start failed: %v", roomID, err)
			return
		}
		stopDriver = stop
	}
	if isHost && room.Status == domain.StatusActive {
		ensureDriver() // host reattached mid-quiz
	}

	push(outboundMessage[any]{Type: "joined", Payload: joinedPayload{RoomID: roomID, UserID: userID}})

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
				continue
			}
			submission, err := h.scores.SubmitAnswer(ctx, roomID, userID, payload.QuestionIndex, payload.Answer, payload.TimeRemaining)
			if err != nil {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
				continue
			}
			push(outboundMessage[any]{Type: "answerResult", Payload: submission})
		case "start":
			if !h.requireHost(isHost, push) {
				continue
			}
			if h.control.StartQuiz(ctx, userID, roomID) {
				ensureDriver()
			} else {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "failed to start quiz"}})
			}
		case "next":
			if !h.requireHost(isHost, push) {
				continue
			}
			if !h.control.Advance(ctx, userID, roomID) {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "failed to advance"}})
			}
		case "end":
			if !h.requireHost(isHost, push) {
				continue
			}
			if !h.control.EndQuiz(ctx, userID, roomID) {
				push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "failed to end quiz"}})
			}
		case "leave":
			if err := h.rooms.LeaveRoom(ctx, roomID, userID); err != nil {
				log.Printf("room %s: leave failed: %v", roomID, err)
			}
		default:
			push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		}
	}

	close(closeSignals)
	if stopDriver != nil {
		stopDriver()
	}
	releaseAll()
	<-writerDone
}

func (h *WSHandler) requireHost(isHost bool, push func(outboundMessage[any])) bool {
	if !isHost {
		push(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "host only"}})
	}
	return isHost
}
