package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/attempt-engine/internal/clock"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	resultsSheet    = "Results"
)

var resultsHeader = []interface{}{
	"Attempt ID", "Student ID", "Attempt #", "Started At", "Completed At",
	"Correct Answers", "Total Questions", "Score", "Passed", "Status",
}

type reportService struct {
	repo     repositories.Repository
	attempts AttemptService
	clock    clock.Clock
	logger   *slog.Logger
}

func NewReportService(repo repositories.Repository, attempts AttemptService, clk clock.Clock, logger *slog.Logger) ReportService {
	return &reportService{
		repo:     repo,
		attempts: attempts,
		clock:    clk,
		logger:   logger,
	}
}

func (s *reportService) ExportQuizResults(ctx context.Context, quizID uint, userID string, role models.UserRole) (*Report, error) {
	s.logger.Info("Exporting quiz results",
		"quiz_id", quizID,
		"user_id", userID)

	if role != models.RoleTeacher && role != models.RoleAdmin {
		return nil, NewPermissionError(userID, quizID, "quiz", "export_results", "requires teacher or admin role")
	}

	quiz, err := s.repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, storageError("get quiz", err)
	}

	attempts, err := s.repo.Attempt().List(ctx, nil, repositories.AttemptFilters{QuizID: &quizID})
	if err != nil {
		return nil, storageError("list attempts", err)
	}

	for i, attempt := range attempts {
		if !attempt.IsOpen() {
			continue
		}
		expired, err := s.attempts.EnforceExpiry(ctx, attempt.ID)
		if err != nil {
			return nil, err
		}
		if !expired {
			continue
		}
		refreshed, err := s.repo.Attempt().GetByID(ctx, nil, attempt.ID)
		if err != nil {
			return nil, storageError("reload attempt", err)
		}
		attempts[i] = refreshed
	}

	data, err := buildResultsWorkbook(quiz, attempts)
	if err != nil {
		return nil, fmt.Errorf("failed to build workbook: %w", err)
	}

	s.logger.Info("Quiz results exported",
		"quiz_id", quizID,
		"rows", len(attempts))

	return &Report{
		FileName:    fmt.Sprintf("quiz-%d-results-%s.xlsx", quiz.ID, s.clock.Now().UTC().Format("20060102-150405")),
		ContentType: xlsxContentType,
		Data:        data,
	}, nil
}

func buildResultsWorkbook(quiz *models.Quiz, attempts []*models.Attempt) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, err
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &resultsHeader); err != nil {
		return nil, err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	if err := f.SetRowStyle(resultsSheet, 1, 1, bold); err != nil {
		return nil, err
	}

	for i, attempt := range attempts {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(resultsSheet, cell, resultRow(quiz, attempt)); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func resultRow(quiz *models.Quiz, attempt *models.Attempt) *[]interface{} {
	completedAt, passed, status := "", "", "in_progress"
	if attempt.CompletedAt != nil {
		completedAt = attempt.CompletedAt.UTC().Format("2006-01-02 15:04:05")
		passed = "no"
		if quiz.Passed(attempt.Score) {
			passed = "yes"
		}
		status = "completed"
	}

	return &[]interface{}{
		attempt.ID,
		attempt.StudentID,
		attempt.AttemptNumber,
		attempt.StartedAt.UTC().Format("2006-01-02 15:04:05"),
		completedAt,
		attempt.CorrectAnswers,
		attempt.TotalQuestions,
		attempt.Score,
		passed,
		status,
	}
}
