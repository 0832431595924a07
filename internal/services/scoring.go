package services

import (
	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// ScoreSummary is what finalization writes, plus the totals it was derived from
type ScoreSummary struct {
	CorrectAnswers int `json:"correct_answers"`
	TotalEarned    int `json:"total_earned"`
	MaxPoints      int `json:"max_points"`
	Score          int `json:"score"`
}

// CalculateScore scores the recorded answers against the quiz. Unanswered
// questions contribute nothing; essays count zero until graded elsewhere.
func CalculateScore(quiz *models.Quiz, answers []*models.Answer) ScoreSummary {
	summary := ScoreSummary{MaxPoints: quiz.MaxPoints()}

	for _, answer := range answers {
		if answer.IsCorrect != nil && *answer.IsCorrect {
			summary.CorrectAnswers++
		}
		summary.TotalEarned += answer.PointsEarned
	}

	summary.Score = PercentScore(summary.TotalEarned, summary.MaxPoints)
	return summary
}

// PercentScore is round-half-up of earned/max*100, clamped to [0, 100].
// A quiz worth zero points always scores 0.
func PercentScore(earned, maxPoints int) int {
	if maxPoints <= 0 || earned <= 0 {
		return 0
	}
	if earned >= maxPoints {
		return 100
	}
	return (200*earned + maxPoints) / (2 * maxPoints)
}
