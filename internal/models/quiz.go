package models

import (
	"time"

	"gorm.io/gorm"
)

type Quiz struct {
	ID              uint       `json:"id" gorm:"primaryKey"`
	Title           string     `json:"title" gorm:"not null;size:200"`
	DurationMinutes int        `json:"duration_minutes" gorm:"not null;check:duration_minutes > 0"`
	PassingScore    int        `json:"passing_score" gorm:"not null;check:passing_score >= 0 AND passing_score <= 100"`
	MaxAttempts     int        `json:"max_attempts" gorm:"not null;default:1;check:max_attempts >= 1"`
	StartTime       *time.Time `json:"start_time"`
	EndTime         *time.Time `json:"end_time"`
	IsActive        bool       `json:"is_active" gorm:"not null;default:false;index"`

	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	Questions []Question `json:"questions" gorm:"foreignKey:QuizID"`
}

// MaxPoints is the sum of points over every question of the quiz.
func (q *Quiz) MaxPoints() int {
	total := 0
	for _, question := range q.Questions {
		total += question.Points
	}
	return total
}

// Duration returns the time budget of a single attempt.
func (q *Quiz) Duration() time.Duration {
	return time.Duration(q.DurationMinutes) * time.Minute
}

// FindQuestion returns the question with the given id, or nil if it does not belong to the quiz.
func (q *Quiz) FindQuestion(questionID uint) *Question {
	for i := range q.Questions {
		if q.Questions[i].ID == questionID {
			return &q.Questions[i]
		}
	}
	return nil
}

// Passed reports whether a stored score meets the quiz's passing score.
func (q *Quiz) Passed(score int) bool {
	return score >= q.PassingScore
}

func (Quiz) TableName() string {
	return "quizzes"
}
