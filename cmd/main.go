package main

import (
	"os"

	"github.com/raunaksarawgi/quiz-game-multiplayer/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
