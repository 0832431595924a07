package services

import (
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// AnswerPayload is the student's answer to one question
type AnswerPayload struct {
	SelectedOptionID *uint
	AnswerText       *string
}

// GradeAnswer builds the stored answer row for question. Only the payload
// field matching the question type is kept. An option id that is not one of the
// question's options is graded incorrect.
func GradeAnswer(attemptID uint, question *models.Question, payload AnswerPayload, now time.Time) *models.Answer {
	answer := &models.Answer{
		AttemptID:  attemptID,
		QuestionID: question.ID,
		AnsweredAt: now,
	}

	if !question.Type.IsAutoGradable() {
		if payload.AnswerText != nil {
			text := *payload.AnswerText
			answer.AnswerText = &text
		}
		return answer
	}

	correct := false
	if payload.SelectedOptionID != nil {
		optionID := *payload.SelectedOptionID
		answer.SelectedOptionID = &optionID
		if option := question.FindOption(optionID); option != nil && option.IsCorrect {
			correct = true
			answer.PointsEarned = question.Points
		}
	}
	answer.IsCorrect = &correct

	return answer
}
