package validator

import (
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// MaxAnswerTextLength bounds essay answers
const MaxAnswerTextLength = 20000

// StartAttemptRequest starts a new attempt or resumes the open one
type StartAttemptRequest struct {
	QuizID uint `json:"quiz_id" validate:"required"`
}

// SubmitAnswerRequest carries the answer to one question. Only the field
// matching the question type is kept.
type SubmitAnswerRequest struct {
	QuestionID       uint    `json:"question_id" validate:"required"`
	SelectedOptionID *uint   `json:"selected_option_id"`
	AnswerText       *string `json:"answer_text" validate:"omitempty,answer_text"`
}

// QuizDefinition is the catalog import format used to seed local runs
type QuizDefinition struct {
	ID              uint                 `json:"id"`
	Title           string               `json:"title" validate:"required,max=200"`
	DurationMinutes int                  `json:"duration_minutes" validate:"required,min=1"`
	PassingScore    int                  `json:"passing_score" validate:"passing_score"`
	MaxAttempts     int                  `json:"max_attempts" validate:"required,min=1"`
	StartTime       *time.Time           `json:"start_time"`
	EndTime         *time.Time           `json:"end_time"`
	IsActive        bool                 `json:"is_active"`
	CreatedBy       string               `json:"created_by"`
	Questions       []QuestionDefinition `json:"questions" validate:"required,min=1,dive"`
}

type QuestionDefinition struct {
	Type    models.QuestionType `json:"type" validate:"required,question_type"`
	Text    string              `json:"text" validate:"required"`
	Points  int                 `json:"points" validate:"points_range"`
	Options []OptionDefinition  `json:"options" validate:"dive"`
}

type OptionDefinition struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"is_correct"`
}

// ToModel converts the definition into catalog rows, keeping list order as position
func (d *QuizDefinition) ToModel() *models.Quiz {
	quiz := &models.Quiz{
		ID:              d.ID,
		Title:           d.Title,
		DurationMinutes: d.DurationMinutes,
		PassingScore:    d.PassingScore,
		MaxAttempts:     d.MaxAttempts,
		StartTime:       d.StartTime,
		EndTime:         d.EndTime,
		IsActive:        d.IsActive,
		CreatedBy:       d.CreatedBy,
	}
	for i, q := range d.Questions {
		question := models.Question{
			Type:   q.Type,
			Text:   q.Text,
			Points: q.Points,
			Order:  i + 1,
		}
		for j, o := range q.Options {
			question.Options = append(question.Options, models.Option{
				Text:      o.Text,
				IsCorrect: o.IsCorrect,
				Order:     j + 1,
			})
		}
		quiz.Questions = append(quiz.Questions, question)
	}
	return quiz
}
