package services

import (
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// Deadline is startedAt plus the quiz duration
func Deadline(attempt *models.Attempt, quiz *models.Quiz) time.Time {
	return attempt.StartedAt.Add(quiz.Duration())
}

// IsExpired reports an attempt that is still open past its deadline. The
// deadline instant itself is still inside the time budget.
func IsExpired(attempt *models.Attempt, quiz *models.Quiz, now time.Time) bool {
	return attempt.CompletedAt == nil && now.After(Deadline(attempt, quiz))
}

// TimeRemaining is zero for completed or expired attempts
func TimeRemaining(attempt *models.Attempt, quiz *models.Quiz, now time.Time) time.Duration {
	if attempt.CompletedAt != nil {
		return 0
	}
	remaining := Deadline(attempt, quiz).Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}
