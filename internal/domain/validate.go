package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ValidateQuestion checks a bank question before it is written. Invalid
// documents are rejected here so the store never holds one.
func ValidateQuestion(q BankQuestion) error {
	if strings.TrimSpace(q.Question) == "" {
		return errors.New("question text is required")
	}
	if len(q.Options) < 2 {
		return errors.New("at least 2 options are required")
	}
	for i, opt := range q.Options {
		if strings.TrimSpace(opt) == "" {
			return fmt.Errorf("option %d must have text", i)
		}
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return errors.New("correct answer index is invalid")
	}
	if q.TimeLimit <= 0 {
		return errors.New("time limit must be positive")
	}
	return nil
}
