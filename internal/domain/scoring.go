package domain

import "math"

const (
	// BasePoints is awarded for any correct answer.
	BasePoints = 1000
	// MaxSpeedBonus is the extra awarded for answering with the full
	// duration still on the clock; it scales linearly down to zero.
	MaxSpeedBonus = 200
)

// ScoreAnswer computes the points for one submission. remaining and duration
// are in seconds as observed by the submitting client; this design has no
// server-side timing authority, so the value is trusted as reported.
func ScoreAnswer(correct bool, answer, remaining, duration int) int {
	if !correct || answer == NoAnswer {
		return 0
	}
	if duration <= 0 {
		return BasePoints
	}
	if remaining < 0 {
		remaining = 0
	}
	bonus := float64(remaining) / float64(duration) * MaxSpeedBonus
	return int(math.Round(BasePoints + bonus))
}
