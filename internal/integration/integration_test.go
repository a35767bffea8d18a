package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/app"
	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/domain"
	pginfra "github.com/raunaksarawgi/quiz-game-multiplayer/internal/infra/postgres"
	pgmigrations "github.com/raunaksarawgi/quiz-game-multiplayer/internal/infra/postgres/migrations"
	infraredis "github.com/raunaksarawgi/quiz-game-multiplayer/internal/infra/redis"
)

func TestQuizRoomEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL, sampleBank())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	docs := infraredis.NewStore(redisClient, time.Hour)
	bank := app.NewQuestionBank(pginfra.NewBankLoader(pool), 5*time.Minute)
	defaults := domain.RoomSettings{TimePerQuestion: 30, ShowCorrectAnswer: true, AllowLateJoin: true}
	rooms := app.NewRoomService(docs, bank, defaults)
	scores := app.NewScoreKeeper(docs)
	control := app.NewQuizControl(docs, scores)

	result, err := rooms.CreateRoom(ctx, "host", "Hana", 2, "Mathematics")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if result.QuestionCount != 2 || !result.QuestionsInitialized {
		t.Fatalf("unexpected create result: %+v", result)
	}

	if _, err := rooms.JoinRoom(ctx, result.RoomCode, "alice", "Alice"); err != nil {
		t.Fatalf("join alice: %v", err)
	}
	if _, err := rooms.JoinRoom(ctx, result.RoomCode, "bob", "Bob"); err != nil {
		t.Fatalf("join bob: %v", err)
	}

	if !control.StartQuiz(ctx, "host", result.RoomID) {
		t.Fatalf("start quiz failed")
	}

	sub, err := scores.SubmitAnswer(ctx, result.RoomID, "alice", 0, 1, 5)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !sub.IsCorrect || sub.Score != 1033 {
		t.Fatalf("expected 1033 for alice, got %+v", sub)
	}
	if _, err := scores.SubmitAnswer(ctx, result.RoomID, "bob", 0, domain.NoAnswer, 0); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if !control.Advance(ctx, "host", result.RoomID) {
		t.Fatalf("advance failed")
	}
	room, err := rooms.GetRoomInfo(ctx, result.RoomID)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	if room.Status != domain.StatusActive || room.CurrentQuestionIndex != 1 {
		t.Fatalf("expected question 1 live, got %+v", room)
	}

	if _, err := scores.SubmitAnswer(ctx, result.RoomID, "bob", 1, 1, 12); err != nil {
		t.Fatalf("submit: %v", err)
	}

	if !control.Advance(ctx, "host", result.RoomID) {
		t.Fatalf("final advance failed")
	}
	room, _ = rooms.GetRoomInfo(ctx, result.RoomID)
	if room.Status != domain.StatusCompleted || room.CompletedAt == nil {
		t.Fatalf("expected completed room, got %+v", room)
	}

	board, err := scores.Leaderboard(ctx, result.RoomID)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 3 {
		t.Fatalf("expected 3 ranked participants, got %d", len(board))
	}
	if board[0].UserID != "bob" || board[0].TotalScore != 1080 {
		t.Fatalf("expected bob winning with 1080, got %+v", board[0])
	}
	if board[1].UserID != "alice" || board[1].TotalScore != 1033 {
		t.Fatalf("expected alice second, got %+v", board[1])
	}
}

func TestRoomCodeLookupAcrossProcessesViaRedis(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	bankQuestions := sampleBank()
	defaults := domain.RoomSettings{TimePerQuestion: 30, ShowCorrectAnswer: true, AllowLateJoin: true}

	// Two stores on the same Redis stand in for two server processes.
	storeA := infraredis.NewStore(redisClient, time.Hour)
	storeB := infraredis.NewStore(redisClient, time.Hour)
	roomsA := app.NewRoomService(storeA, app.NewQuestionBank(app.NewStaticBankLoader(bankQuestions), time.Minute), defaults)
	roomsB := app.NewRoomService(storeB, app.NewQuestionBank(app.NewStaticBankLoader(bankQuestions), time.Minute), defaults)

	result, err := roomsA.CreateRoom(ctx, "host", "Hana", 1, "")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	roomID, err := roomsB.JoinRoom(ctx, result.RoomCode, "alice", "Alice")
	if err != nil {
		t.Fatalf("join via second process: %v", err)
	}
	if roomID != result.RoomID {
		t.Fatalf("code resolved to wrong room: %s vs %s", roomID, result.RoomID)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuestions(t *testing.T, ctx context.Context, dsn string, questions []domain.BankQuestion) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, q := range questions {
		data, err := json.Marshal(q)
		if err != nil {
			t.Fatalf("marshal question: %v", err)
		}
		_, err = db.ExecContext(ctx,
			`INSERT INTO questions (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`,
			q.ID, string(data))
		if err != nil {
			t.Fatalf("insert question: %v", err)
		}
	}
}

func sampleBank() []domain.BankQuestion {
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

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
