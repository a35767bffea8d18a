package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/app"
	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/config"
	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/domain"
	memorystore "github.com/raunaksarawgi/quiz-game-multiplayer/internal/infra/memory"
	pginfra "github.com/raunaksarawgi/quiz-game-multiplayer/internal/infra/postgres"
	redisstore "github.com/raunaksarawgi/quiz-game-multiplayer/internal/infra/redis"
	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/store"
	transport "github.com/raunaksarawgi/quiz-game-multiplayer/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var docs store.Store
	if cfg.Redis.Addr != "" {
		client := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		docs = redisstore.NewStore(client, config.TTLDuration(cfg.Redis.TTL, 0))
	} else {
		docs = memorystore.NewStore()
	}

	var loader app.BankLoader
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pginfra.NewBankLoader(pool)
	} else {
		// No backing bank configured: seed demo questions into the
		// document store so rooms can be played out of the box.
		writer := app.NewBankWriter(docs)
		for _, q := range sampleQuestions() {
			if _, err := writer.AddQuestion(ctx, q); err != nil {
				log.Printf("seed sample question: %v", err)
			}
		}
		loader = app.NewStoreBankLoader(docs)
	}

	bankTTL := config.TTLDuration(cfg.Quiz.BankTTL, 10*time.Minute)
	bank := app.NewQuestionBank(loader, bankTTL)

	defaults := domain.RoomSettings{
		TimePerQuestion:   cfg.Quiz.TimePerQuestion,
		ShowCorrectAnswer: config.BoolOr(cfg.Quiz.ShowCorrectAnswer, true),
		AllowLateJoin:     config.BoolOr(cfg.Quiz.AllowLateJoin, true),
	}
	if defaults.TimePerQuestion <= 0 {
		defaults.TimePerQuestion = 30
	}

	rooms := app.NewRoomService(docs, bank, defaults)
	scores := app.NewScoreKeeper(docs)
	control := app.NewQuizControl(docs, scores)
	advance := app.NewAutoAdvance(control)
	wsHandler := transport.NewWSHandler(rooms, control, scores, advance)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/rooms", wsHandler.HandleCreateRoom)
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz room service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
