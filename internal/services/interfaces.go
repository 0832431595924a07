package services

import (
	"context"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

type StartAttemptRequest = validator.StartAttemptRequest
type SubmitAnswerRequest = validator.SubmitAnswerRequest

// SessionInfo is stored with a new attempt
type SessionInfo struct {
	ClientIP  string `json:"client_ip,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
}

// OptionView never carries correctness
type OptionView struct {
	ID    uint   `json:"id"`
	Text  string `json:"text"`
	Order int    `json:"order"`
}

type QuestionView struct {
	ID      uint                `json:"id"`
	Type    models.QuestionType `json:"type"`
	Text    string              `json:"text"`
	Points  int                 `json:"points"`
	Order   int                 `json:"order"`
	Options []OptionView        `json:"options"`
}

// AttemptResponse is returned when an attempt is started or resumed
type AttemptResponse struct {
	*models.Attempt
	Resumed              bool           `json:"resumed"`
	Deadline             time.Time      `json:"deadline"`
	TimeRemainingSeconds int            `json:"time_remaining_seconds"`
	Questions            []QuestionView `json:"questions"`
}

// AnswerResult acknowledges a recorded answer. The grade stays hidden until
// the attempt is completed.
type AnswerResult struct {
	AttemptID            uint      `json:"attempt_id"`
	QuestionID           uint      `json:"question_id"`
	SelectedOptionID     *uint     `json:"selected_option_id"`
	AnswerText           *string   `json:"answer_text"`
	AnsweredAt           time.Time `json:"answered_at"`
	TimeRemainingSeconds int       `json:"time_remaining_seconds"`
}

// AnswerView is one stored answer. Graded fields are only set once the
// attempt is completed; IsCorrect stays nil for essays.
type AnswerView struct {
	QuestionID       uint      `json:"question_id"`
	SelectedOptionID *uint     `json:"selected_option_id"`
	AnswerText       *string   `json:"answer_text"`
	AnsweredAt       time.Time `json:"answered_at"`
	IsCorrect        *bool     `json:"is_correct,omitempty"`
	PointsEarned     *int      `json:"points_earned,omitempty"`
}

// AttemptResult is the attempt with its answers. Passed and TotalEarned are
// computed on read and only set when the attempt is completed.
type AttemptResult struct {
	*models.Attempt
	QuizTitle            string       `json:"quiz_title"`
	Completed            bool         `json:"completed"`
	Deadline             time.Time    `json:"deadline"`
	TimeRemainingSeconds int          `json:"time_remaining_seconds"`
	PassingScore         int          `json:"passing_score"`
	MaxPoints            int          `json:"max_points"`
	TotalEarned          *int         `json:"total_earned,omitempty"`
	Passed               *bool        `json:"passed,omitempty"`
	Answers              []AnswerView `json:"answers"`
}

type AttemptSummary struct {
	*models.Attempt
	Deadline time.Time `json:"deadline"`
	Passed   *bool     `json:"passed,omitempty"`
}

// AttemptHistory lists a student's attempts at one quiz
type AttemptHistory struct {
	QuizID            uint              `json:"quiz_id"`
	MaxAttempts       int               `json:"max_attempts"`
	AttemptsUsed      int               `json:"attempts_used"`
	AttemptsRemaining int               `json:"attempts_remaining"`
	OpenAttemptID     *uint             `json:"open_attempt_id,omitempty"`
	CanStart          bool              `json:"can_start"`
	DenialReason      DenialReason      `json:"denial_reason,omitempty"`
	Attempts          []*AttemptSummary `json:"attempts"`
}

// ===== SERVICE INTERFACES =====

// AttemptService exposes the attempt lifecycle. Every operation enforces
// expiry on the attempt it touches before doing anything else.
type AttemptService interface {
	// StartOrResume returns the open attempt, or creates a new one when the
	// quiz is available and the quota allows it
	StartOrResume(ctx context.Context, req *StartAttemptRequest, studentID string, session *SessionInfo) (*AttemptResponse, error)

	// SubmitAnswer records (or overwrites) the answer to one question
	SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, studentID string) (*AnswerResult, error)

	// Submit finalizes the attempt. Submitting a completed attempt returns its result unchanged.
	Submit(ctx context.Context, attemptID uint, studentID string) (*AttemptResult, error)

	// GetResult is available to the owning student and to reviewers
	GetResult(ctx context.Context, attemptID uint, userID string, role models.UserRole) (*AttemptResult, error)

	ListAttempts(ctx context.Context, quizID uint, studentID string) (*AttemptHistory, error)

	// EnforceExpiry auto-submits the attempt if its deadline has passed and
	// reports whether it did
	EnforceExpiry(ctx context.Context, attemptID uint) (bool, error)
}

type ReportService interface {
	// ExportQuizResults builds an xlsx workbook with one row per attempt
	ExportQuizResults(ctx context.Context, quizID uint, userID string, role models.UserRole) (*Report, error)
}

// Report is a generated file
type Report struct {
	FileName    string
	ContentType string
	Data        []byte
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Attempt() AttemptService
	Report() ReportService
	Sweeper() *ExpirySweeper

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
