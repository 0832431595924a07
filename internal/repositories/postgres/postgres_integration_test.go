package postgres

import (
	"context"
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

// newIntegrationRepo connects to DATABASE_URL, migrates the schema and seeds
// a one-question quiz
func newIntegrationRepo(t *testing.T) (repositories.Repository, *models.Quiz) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test")
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	db, err := gorm.Open(postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		t.Fatalf("gorm.Open() error = %v", err)
	}
	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate() error = %v", err)
	}

	repo := NewPostgreSQLRepository(RepositoryConfig{DB: db, QuizCacheTTL: time.Minute})
	t.Cleanup(func() { repo.Close() })

	quiz := &models.Quiz{
		Title:           "Fractions",
		DurationMinutes: 10,
		PassingScore:    50,
		MaxAttempts:     3,
		IsActive:        true,
		CreatedBy:       "t1",
		Questions: []models.Question{
			{Type: models.MultipleChoice, Text: "1/2 + 1/2", Points: 5, Order: 1, Options: []models.Option{
				{Text: "2", Order: 1},
				{Text: "1", IsCorrect: true, Order: 2},
			}},
		},
	}
	if err := repo.Quiz().Create(context.Background(), nil, quiz); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}
	return repo, quiz
}

func newOpenAttempt(quizID uint, studentID string) *models.Attempt {
	return &models.Attempt{QuizID: quizID, StudentID: studentID, AttemptNumber: 1, StartedAt: t0, TotalQuestions: 1}
}

func TestAttemptPostgreSQL_Integration(t *testing.T) {
	repo, quiz := newIntegrationRepo(t)
	ctx := context.Background()
	student := "it-" + uuid.NewString()

	first := newOpenAttempt(quiz.ID, student)
	if err := repo.Attempt().Create(ctx, nil, first); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	second := newOpenAttempt(quiz.ID, student)
	second.AttemptNumber = 2
	if err := repo.Attempt().Create(ctx, nil, second); !errors.Is(err, repositories.ErrOpenAttemptExists) {
		t.Fatalf("second open Create() error = %v, want ErrOpenAttemptExists", err)
	}

	applied, err := repo.Attempt().CompleteAttempt(ctx, nil, first.ID, 100, 1, t0.Add(time.Minute))
	if err != nil || !applied {
		t.Fatalf("CompleteAttempt() = %v, %v", applied, err)
	}
	applied, err = repo.Attempt().CompleteAttempt(ctx, nil, first.ID, 0, 0, t0.Add(2*time.Minute))
	if err != nil || applied {
		t.Fatalf("second CompleteAttempt() = %v, %v; want false", applied, err)
	}

	stored, err := repo.Attempt().GetByID(ctx, nil, first.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.Score != 100 || stored.CorrectAnswers != 1 || stored.CompletedAt == nil || !stored.CompletedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("stored = %+v", stored)
	}

	// the index only covers open attempts
	if err := repo.Attempt().Create(ctx, nil, second); err != nil {
		t.Fatalf("Create() after completion error = %v", err)
	}
	if count, err := repo.Attempt().CountAttempts(ctx, nil, student, quiz.ID); err != nil || count != 2 {
		t.Errorf("CountAttempts() = %d, %v", count, err)
	}
}

func TestAnswerPostgreSQL_UpsertIntegration(t *testing.T) {
	repo, quiz := newIntegrationRepo(t)
	ctx := context.Background()
	question := quiz.Questions[0]

	attempt := newOpenAttempt(quiz.ID, "it-"+uuid.NewString())
	if err := repo.Attempt().Create(ctx, nil, attempt); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	answerWith := func(option models.Option, at time.Time) *models.Answer {
		optionID := option.ID
		correct := option.IsCorrect
		points := 0
		if correct {
			points = question.Points
		}
		return &models.Answer{AttemptID: attempt.ID, QuestionID: question.ID, SelectedOptionID: &optionID, IsCorrect: &correct, PointsEarned: points, AnsweredAt: at}
	}

	if err := repo.Answer().Upsert(ctx, nil, answerWith(question.Options[1], t0)); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	before, err := repo.Answer().GetByAttempt(ctx, nil, attempt.ID)
	if err != nil {
		t.Fatalf("GetByAttempt() error = %v", err)
	}

	if err := repo.Answer().Upsert(ctx, nil, answerWith(question.Options[1], t0.Add(time.Minute))); err != nil {
		t.Fatalf("repeated Upsert() error = %v", err)
	}
	after, err := repo.Answer().GetByAttempt(ctx, nil, attempt.ID)
	if err != nil {
		t.Fatalf("GetByAttempt() error = %v", err)
	}
	if len(after) != 1 || !reflect.DeepEqual(before, after) {
		t.Fatalf("repeated Upsert changed the row: before %+v after %+v", before, after)
	}

	changed := answerWith(question.Options[0], t0.Add(2*time.Minute))
	if err := repo.Answer().Upsert(ctx, nil, changed); err != nil {
		t.Fatalf("overwriting Upsert() error = %v", err)
	}
	rows, _ := repo.Answer().GetByAttempt(ctx, nil, attempt.ID)
	if len(rows) != 1 || rows[0].ID != before[0].ID || changed.ID != before[0].ID {
		t.Fatalf("overwrite rows = %+v, returned id %d", rows, changed.ID)
	}
	if *rows[0].SelectedOptionID != question.Options[0].ID || *rows[0].IsCorrect || rows[0].PointsEarned != 0 {
		t.Errorf("overwritten answer = %+v", rows[0])
	}
}

func TestLockStudentQuiz_Integration(t *testing.T) {
	repo, quiz := newIntegrationRepo(t)
	ctx := context.Background()
	student := "it-" + uuid.NewString()

	err := repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		if err := tx.Attempt().LockStudentQuiz(ctx, nil, student, quiz.ID); err != nil {
			return err
		}

		// a second transaction blocks on the same key until this one ends
		waitCtx, cancel := context.WithTimeout(ctx, 200*time.Millisecond)
		defer cancel()
		blocked := repo.WithTransaction(waitCtx, func(other repositories.Repository) error {
			return other.Attempt().LockStudentQuiz(waitCtx, nil, student, quiz.ID)
		})
		if blocked == nil {
			t.Error("second transaction acquired a held lock")
		}

		return tx.Attempt().LockStudentQuiz(ctx, nil, "other-"+student, quiz.ID)
	})
	if err != nil {
		t.Fatalf("WithTransaction() error = %v", err)
	}

	err = repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		return tx.Attempt().LockStudentQuiz(ctx, nil, student, quiz.ID)
	})
	if err != nil {
		t.Errorf("lock not released at commit: %v", err)
	}
}
