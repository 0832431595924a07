package postgres

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
	"gorm.io/gorm"
)

// getDB returns the transaction when one is given, the base connection otherwise
func getDB(base, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return base
}

// translateNotFound maps gorm's not-found error onto the repository sentinel
func translateNotFound(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", entity, repositories.ErrNotFound)
	}
	return err
}

// applyAttemptFilters applies common filters to attempt queries
func applyAttemptFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.QuizID != nil {
		query = query.Where("quiz_id = ?", *filters.QuizID)
	}
	if filters.StudentID != nil {
		query = query.Where("student_id = ?", *filters.StudentID)
	}
	if filters.OpenOnly {
		query = query.Where("completed_at IS NULL")
	}
	if filters.StartedBefore != nil {
		query = query.Where("started_at < ?", *filters.StartedBefore)
	}
	if filters.AfterID > 0 {
		query = query.Where("id > ?", filters.AfterID)
	}
	return query
}

// applyPagination orders by id, which follows creation order, plus limit/offset
func applyPagination(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	query = query.Order("id ASC")
	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}

// AutoMigrate creates or updates the catalog and ledger tables, including the
// partial unique index that allows a single open attempt per (student, quiz).
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Quiz{},
		&models.Question{},
		&models.Option{},
		&models.Attempt{},
		&models.Answer{},
	); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}
