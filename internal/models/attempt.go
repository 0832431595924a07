package models

import (
	"time"

	"gorm.io/datatypes"
)

// Attempt is one student's timed run through a quiz. StartedAt and TotalQuestions are
// fixed at creation; CompletedAt, CorrectAnswers and Score are written exactly once.
//
// idx_open_attempt is a partial unique index: at most one row per (student, quiz)
// may have completed_at IS NULL.
type Attempt struct {
	ID            uint   `json:"id" gorm:"primaryKey"`
	QuizID        uint   `json:"quiz_id" gorm:"not null;index;uniqueIndex:idx_open_attempt,where:completed_at IS NULL"`
	StudentID     string `json:"student_id" gorm:"not null;size:255;index;uniqueIndex:idx_open_attempt,where:completed_at IS NULL"`
	AttemptNumber int    `json:"attempt_number" gorm:"not null"`

	StartedAt   time.Time  `json:"started_at" gorm:"not null"`
	CompletedAt *time.Time `json:"completed_at" gorm:"index"`

	TotalQuestions int `json:"total_questions" gorm:"not null"`
	CorrectAnswers int `json:"correct_answers" gorm:"not null;default:0"`
	Score          int `json:"score" gorm:"not null;default:0"`

	// Browser info captured when the attempt was created
	SessionData datatypes.JSON `json:"session_data,omitempty" gorm:"type:jsonb"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOpen reports whether the attempt has not been finalized yet.
func (a *Attempt) IsOpen() bool {
	return a.CompletedAt == nil
}

func (Attempt) TableName() string {
	return "quiz_attempts"
}

// Answer is keyed uniquely by (attempt, question); re-answering overwrites the row.
type Answer struct {
	ID         uint `json:"id" gorm:"primaryKey"`
	AttemptID  uint `json:"attempt_id" gorm:"not null;uniqueIndex:idx_attempt_question"`
	QuestionID uint `json:"question_id" gorm:"not null;uniqueIndex:idx_attempt_question"`

	SelectedOptionID *uint   `json:"selected_option_id"`
	AnswerText       *string `json:"answer_text" gorm:"type:text"`

	// nil when the question type is not auto-gradable
	IsCorrect    *bool `json:"is_correct"`
	PointsEarned int   `json:"points_earned" gorm:"not null;default:0"`

	AnsweredAt time.Time `json:"answered_at" gorm:"not null"`
}

func (Answer) TableName() string {
	return "quiz_attempt_answers"
}
