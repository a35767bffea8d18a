package cli

import (
	"encoding/json"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/config"
	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/domain"
)

// NewSeedCmd loads the sample question bank into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the question bank with sample questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}

			db := openBun(cfg.Postgres.URL)
			defer db.Close()

			seeded := 0
			for _, q := range sampleQuestions() {
				if err := domain.ValidateQuestion(q); err != nil {
					return err
				}
				id := q.ID
				if id == "" {
					id = uuid.NewString()
				}
				data, err := json.Marshal(q)
				if err != nil {
					return err
				}
				_, err = db.ExecContext(cmd.Context(),
					`INSERT INTO questions (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`,
					id, string(data))
				if err != nil {
					return err
				}
				seeded++
			}
			log.Printf("seeded %d questions", seeded)
			return nil
		},
	}
}

// sampleQuestions is the demo bank; swap in real content via the seed
// command against Postgres.
func sampleQuestions() []domain.BankQuestion {
	return []domain.BankQuestion{
		{
			ID:            "math-addition",
			Question:      "What is 15 + 27?",
			Options:       []string{"40", "42", "44", "46"},
			CorrectAnswer: 1,
			TimeLimit:     30,
			Category:      "Mathematics",
			Difficulty:    "easy",
		},
		{
			ID:            "math-prime",
			Question:      "Which of these is a prime number?",
			Options:       []string{"51", "57", "61", "63"},
			CorrectAnswer: 2,
			TimeLimit:     30,
			Category:      "Mathematics",
			Difficulty:    "medium",
		},
		{
			ID:            "math-derivative",
			Question:      "What is the derivative of x^2?",
			Options:       []string{"x", "2x", "x^2", "2"},
			CorrectAnswer: 1,
			TimeLimit:     20,
			Category:      "Mathematics",
			Difficulty:    "hard",
		},
		{
			ID:            "sci-planet",
			Question:      "Which planet is known as the Red Planet?",
			Options:       []string{"Venus", "Jupiter", "Mars", "Saturn"},
			CorrectAnswer: 2,
			TimeLimit:     20,
			Category:      "Science",
			Difficulty:    "easy",
		},
		{
			ID:            "sci-water",
			Question:      "What is the chemical formula of water?",
			Options:       []string{"CO2", "H2O", "NaCl", "O2"},
			CorrectAnswer: 1,
			TimeLimit:     15,
			Category:      "Science",
			Difficulty:    "easy",
		},
		{
			ID:            "geo-capital",
			Question:      "What is the capital of Australia?",
			Options:       []string{"Sydney", "Melbourne", "Canberra", "Perth"},
			CorrectAnswer: 2,
			TimeLimit:     25,
			Category:      "Geography",
			Difficulty:    "medium",
		},
		{
			ID:            "geo-river",
			Question:      "Which is the longest river in the world?",
			Options:       []string{"Amazon", "Nile", "Yangtze", "Mississippi"},
			CorrectAnswer: 1,
			TimeLimit:     25,
			Category:      "Geography",
			Difficulty:    "medium",
		},
		{
			ID:            "hist-moon",
			Question:      "In which year did humans first land on the Moon?",
			Options:       []string{"1965", "1967", "1969", "1971"},
			CorrectAnswer: 2,
			TimeLimit:     20,
			Category:      "History",
			Difficulty:    "easy",
		},
	}
}
