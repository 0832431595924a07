package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound is returned by every repository when the requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrOpenAttemptExists is returned by AttemptRepository.Create when another open
	// attempt for the same (student, quiz) was committed first.
	ErrOpenAttemptExists = errors.New("open attempt already exists")
)

// IsNotFoundError checks both the repository sentinel and gorm's own not-found error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// QuizRepository is the read-only quiz catalog
type QuizRepository interface {
	// GetByID returns the quiz with its questions and options ordered by position
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Quiz, error)
	// Create is used by seeding and tests; authoring lives in another service
	Create(ctx context.Context, tx *gorm.DB, quiz *models.Quiz) error
}

// AttemptFilters narrows attempt listings
type AttemptFilters struct {
	QuizID    *uint
	StudentID *string
	OpenOnly  bool

	// StartedBefore restricts the listing to attempts started strictly before the given time
	StartedBefore *time.Time

	// AfterID keeps only attempts with a larger id. Listings are ordered by id,
	// so it pages through a listing whose rows drop out while it is walked.
	AfterID uint

	Limit  int
	Offset int
}

// AttemptRepository is the attempt half of the ledger
type AttemptRepository interface {
	// Create inserts a new open attempt. Returns ErrOpenAttemptExists when the
	// open-attempt uniqueness guard rejects the row.
	Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error
	GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error)

	// GetByIDForUpdate reads the attempt and holds its write lock until the
	// surrounding transaction ends.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error)

	// GetOpenAttempt returns the single attempt with completed_at IS NULL, or ErrNotFound
	GetOpenAttempt(ctx context.Context, tx *gorm.DB, studentID string, quizID uint) (*models.Attempt, error)
	CountAttempts(ctx context.Context, tx *gorm.DB, studentID string, quizID uint) (int64, error)

	// LockStudentQuiz serializes attempt creation for one (student, quiz) pair
	// for the lifetime of the surrounding transaction.
	LockStudentQuiz(ctx context.Context, tx *gorm.DB, studentID string, quizID uint) error

	// CompleteAttempt is a compare-and-set on completed_at. It returns false when
	// the attempt was already completed, in which case nothing is written.
	CompleteAttempt(ctx context.Context, tx *gorm.DB, id uint, score, correctAnswers int, completedAt time.Time) (bool, error)

	List(ctx context.Context, tx *gorm.DB, filters AttemptFilters) ([]*models.Attempt, error)
}

// AnswerRepository is the answer half of the ledger
type AnswerRepository interface {
	// Upsert stores the answer keyed by (attempt_id, question_id). An existing
	// row with the same payload and grade is left untouched.
	Upsert(ctx context.Context, tx *gorm.DB, answer *models.Answer) error
	GetByAttempt(ctx context.Context, tx *gorm.DB, attemptID uint) ([]*models.Answer, error)
	GetByAttemptAndQuestion(ctx context.Context, tx *gorm.DB, attemptID, questionID uint) (*models.Answer, error)
}

// SameAnswer reports whether two answers carry the same payload and grade.
// Timestamps and ids are ignored.
func SameAnswer(a, b *models.Answer) bool {
	return equalUint(a.SelectedOptionID, b.SelectedOptionID) &&
		equalString(a.AnswerText, b.AnswerText) &&
		equalBool(a.IsCorrect, b.IsCorrect) &&
		a.PointsEarned == b.PointsEarned
}

func equalUint(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalBool(a, b *bool) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
