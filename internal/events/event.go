package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventSource  = "attempt-engine"
	EventVersion = "1.0"
)

// EventType names a topic suffix
type EventType string

const (
	AttemptStarted   EventType = "attempt.started"
	AttemptResumed   EventType = "attempt.resumed"
	AnswerRecorded   EventType = "answer.recorded"
	AttemptCompleted EventType = "attempt.completed"
)

// Event is the envelope written to the broker
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Key       string      `json:"key"`
	Data      interface{} `json:"data"`
}

// NewEvent builds an envelope. key is used as the kafka partition key, so all
// events of one attempt land on the same partition in order.
func NewEvent(eventType EventType, key string, data interface{}, at time.Time) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: at,
		Key:       key,
		Data:      data,
	}
}

// AttemptStartedData is published for attempt.started and attempt.resumed
type AttemptStartedData struct {
	AttemptID     uint      `json:"attempt_id"`
	QuizID        uint      `json:"quiz_id"`
	StudentID     string    `json:"student_id"`
	AttemptNumber int       `json:"attempt_number"`
	StartedAt     time.Time `json:"started_at"`
	Deadline      time.Time `json:"deadline"`
}

type AnswerRecordedData struct {
	AttemptID    uint   `json:"attempt_id"`
	QuestionID   uint   `json:"question_id"`
	QuestionType string `json:"question_type"`
	IsCorrect    *bool  `json:"is_correct"`
	PointsEarned int    `json:"points_earned"`
}

// CompletionReason tells an explicit submit apart from an auto-submit
type CompletionReason string

const (
	ReasonSubmitted CompletionReason = "submitted"
	ReasonExpired   CompletionReason = "expired"
)

type AttemptCompletedData struct {
	AttemptID      uint             `json:"attempt_id"`
	QuizID         uint             `json:"quiz_id"`
	StudentID      string           `json:"student_id"`
	Score          int              `json:"score"`
	CorrectAnswers int              `json:"correct_answers"`
	Passed         bool             `json:"passed"`
	Reason         CompletionReason `json:"reason"`
	CompletedAt    time.Time        `json:"completed_at"`
}
