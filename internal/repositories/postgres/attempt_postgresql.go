package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AttemptPostgreSQL never caches: availability and expiry decisions need the
// latest committed state.
type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.Attempt) error {
	db := getDB(a.db, tx)
	if err := db.WithContext(ctx).Create(attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return repositories.ErrOpenAttemptExists
		}
		return fmt.Errorf("failed to create attempt: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	db := getDB(a.db, tx)
	var attempt models.Attempt
	if err := db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return nil, translateNotFound(err, "attempt")
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	db := getDB(a.db, tx)
	var attempt models.Attempt
	if err := db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&attempt, id).Error; err != nil {
		return nil, translateNotFound(err, "attempt")
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetOpenAttempt(ctx context.Context, tx *gorm.DB, studentID string, quizID uint) (*models.Attempt, error) {
	db := getDB(a.db, tx)
	var attempt models.Attempt
	if err := db.WithContext(ctx).
		Where("student_id = ? AND quiz_id = ? AND completed_at IS NULL", studentID, quizID).
		First(&attempt).Error; err != nil {
		return nil, translateNotFound(err, "open attempt")
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) CountAttempts(ctx context.Context, tx *gorm.DB, studentID string, quizID uint) (int64, error) {
	db := getDB(a.db, tx)
	var count int64
	err := db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("student_id = ? AND quiz_id = ?", studentID, quizID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

// LockStudentQuiz takes a transaction-scoped advisory lock, so it only has an
// effect on a repository obtained from WithTransaction.
func (a *AttemptPostgreSQL) LockStudentQuiz(ctx context.Context, tx *gorm.DB, studentID string, quizID uint) error {
	db := getDB(a.db, tx)
	key := fmt.Sprintf("attempt:%s:%d", studentID, quizID)
	if err := db.WithContext(ctx).Exec("SELECT pg_advisory_xact_lock(hashtext(?))", key).Error; err != nil {
		return fmt.Errorf("failed to lock student quiz: %w", err)
	}
	return nil
}

func (a *AttemptPostgreSQL) CompleteAttempt(ctx context.Context, tx *gorm.DB, id uint, score, correctAnswers int, completedAt time.Time) (bool, error) {
	db := getDB(a.db, tx)
	result := db.WithContext(ctx).
		Model(&models.Attempt{}).
		Where("id = ? AND completed_at IS NULL", id).
		Updates(map[string]interface{}{
			"completed_at":    completedAt,
			"score":           score,
			"correct_answers": correctAnswers,
			"updated_at":      completedAt,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to complete attempt: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (a *AttemptPostgreSQL) List(ctx context.Context, tx *gorm.DB, filters repositories.AttemptFilters) ([]*models.Attempt, error) {
	db := getDB(a.db, tx)
	var attempts []*models.Attempt

	query := db.WithContext(ctx).Model(&models.Attempt{})
	query = applyAttemptFilters(query, filters)
	query = applyPagination(query, filters)

	if err := query.Find(&attempts).Error; err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	return attempts, nil
}
