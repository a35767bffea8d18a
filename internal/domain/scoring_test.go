package domain

import "testing"

func TestScoreAnswer(t *testing.T) {
	cases := []struct {
		name      string
		correct   bool
		answer    int
		remaining int
		duration  int
		want      int
	}{
		{"full speed bonus", true, 1, 30, 30, 1200},
		{"no time left", true, 1, 0, 30, 1000},
		{"five seconds left of thirty", true, 1, 5, 30, 1033},
		{"half the clock", true, 0, 15, 30, 1100},
		{"incorrect answer", false, 2, 30, 30, 0},
		{"timed out", false, NoAnswer, 0, 30, 0},
		{"negative remaining clamps to base", true, 1, -3, 30, 1000},
		{"zero duration still pays base", true, 1, 10, 0, 1000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ScoreAnswer(tc.correct, tc.answer, tc.remaining, tc.duration)
			if got != tc.want {
				t.Fatalf("ScoreAnswer(%v, %d, %d, %d) = %d, want %d",
					tc.correct, tc.answer, tc.remaining, tc.duration, got, tc.want)
			}
		})
	}
}

func TestScoreAnswerRoundsBonus(t *testing.T) {
	// 7/30 of 200 is 46.67, which rounds up.
	if got := ScoreAnswer(true, 0, 7, 30); got != 1047 {
		t.Fatalf("expected 1047, got %d", got)
	}
	// 4/30 of 200 is 26.67, also rounds up.
	if got := ScoreAnswer(true, 0, 4, 30); got != 1027 {
		t.Fatalf("expected 1027, got %d", got)
	}
}
