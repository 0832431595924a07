package models

import "time"

type QuestionType string

const (
	MultipleChoice QuestionType = "multiple_choice"
	TrueFalse      QuestionType = "true_false"
	Essay          QuestionType = "essay"
)

// IsAutoGradable reports whether answers to the question type are graded on submission.
func (t QuestionType) IsAutoGradable() bool {
	return t == MultipleChoice || t == TrueFalse
}

type Question struct {
	ID     uint         `json:"id" gorm:"primaryKey"`
	QuizID uint         `json:"quiz_id" gorm:"not null;index"`
	Type   QuestionType `json:"type" gorm:"not null;size:32"`
	Text   string       `json:"text" gorm:"type:text;not null"`
	Points int          `json:"points" gorm:"not null;default:1;check:points >= 1"`
	Order  int          `json:"order" gorm:"column:position;not null;default:0"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Options []Option `json:"options" gorm:"foreignKey:QuestionID"`
}

// Option is a catalog row. Student-facing responses use services.OptionView, which omits IsCorrect.
type Option struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	QuestionID uint   `json:"question_id" gorm:"not null;index"`
	Text       string `json:"text" gorm:"type:text;not null"`
	IsCorrect  bool   `json:"is_correct" gorm:"not null;default:false"`
	Order      int    `json:"order" gorm:"column:position;not null;default:0"`
}

// FindOption returns the option with the given id, or nil if it is not one of the question's options.
func (q *Question) FindOption(optionID uint) *Option {
	for i := range q.Options {
		if q.Options[i].ID == optionID {
			return &q.Options[i]
		}
	}
	return nil
}

func (Question) TableName() string {
	return "quiz_questions"
}

func (Option) TableName() string {
	return "quiz_question_options"
}
