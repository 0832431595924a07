package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
	"gorm.io/gorm"
)

var errClosed = errors.New("memory repository closed")

// FailWrites makes every subsequent ledger write return err. Pass nil to clear.
func (r *MemoryRepository) FailWrites(err error) {
	r.st.lock(r.inTx)
	defer r.st.unlock(r.inTx)
	r.st.writeErr = err
}

func (s *store) checkWrite() error {
	if s.closed {
		return errClosed
	}
	return s.writeErr
}

// QuizMemory is the in-memory catalog
type QuizMemory struct {
	st   *store
	inTx bool
}

func (q *QuizMemory) GetByID(ctx context.Context, _ *gorm.DB, id uint) (*models.Quiz, error) {
	q.st.lock(q.inTx)
	defer q.st.unlock(q.inTx)

	quiz, ok := q.st.quizzes[id]
	if !ok || quiz.DeletedAt.Valid {
		return nil, fmt.Errorf("quiz: %w", repositories.ErrNotFound)
	}
	return copyQuiz(quiz), nil
}

// Create assigns ids to the quiz, its questions and their options
func (q *QuizMemory) Create(ctx context.Context, _ *gorm.DB, quiz *models.Quiz) error {
	q.st.lock(q.inTx)
	defer q.st.unlock(q.inTx)

	if quiz.ID == 0 {
		q.st.nextQuizID++
		quiz.ID = q.st.nextQuizID
	} else if quiz.ID > q.st.nextQuizID {
		q.st.nextQuizID = quiz.ID
	}

	for i := range quiz.Questions {
		question := &quiz.Questions[i]
		if question.ID == 0 {
			q.st.nextQuestionID++
			question.ID = q.st.nextQuestionID
		} else if question.ID > q.st.nextQuestionID {
			q.st.nextQuestionID = question.ID
		}
		question.QuizID = quiz.ID

		for j := range question.Options {
			option := &question.Options[j]
			if option.ID == 0 {
				q.st.nextOptionID++
				option.ID = q.st.nextOptionID
			} else if option.ID > q.st.nextOptionID {
				q.st.nextOptionID = option.ID
			}
			option.QuestionID = question.ID
		}
	}

	q.st.quizzes[quiz.ID] = copyQuiz(quiz)
	return nil
}

// AttemptMemory is the in-memory attempt ledger
type AttemptMemory struct {
	st   *store
	inTx bool
}

func (a *AttemptMemory) Create(ctx context.Context, _ *gorm.DB, attempt *models.Attempt) error {
	a.st.lock(a.inTx)
	defer a.st.unlock(a.inTx)

	if err := a.st.checkWrite(); err != nil {
		return fmt.Errorf("failed to create attempt: %w", err)
	}

	if attempt.CompletedAt == nil {
		for _, existing := range a.st.attempts {
			if existing.CompletedAt == nil && existing.StudentID == attempt.StudentID && existing.QuizID == attempt.QuizID {
				return repositories.ErrOpenAttemptExists
			}
		}
	}

	a.st.nextAttemptID++
	attempt.ID = a.st.nextAttemptID
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = attempt.StartedAt
	}
	attempt.UpdatedAt = attempt.CreatedAt

	a.st.attempts[attempt.ID] = copyAttempt(attempt)
	return nil
}

func (a *AttemptMemory) GetByID(ctx context.Context, _ *gorm.DB, id uint) (*models.Attempt, error) {
	a.st.lock(a.inTx)
	defer a.st.unlock(a.inTx)

	attempt, ok := a.st.attempts[id]
	if !ok {
		return nil, fmt.Errorf("attempt: %w", repositories.ErrNotFound)
	}
	return copyAttempt(attempt), nil
}

// GetByIDForUpdate is GetByID: the transaction already holds the store lock
func (a *AttemptMemory) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Attempt, error) {
	return a.GetByID(ctx, tx, id)
}

func (a *AttemptMemory) GetOpenAttempt(ctx context.Context, _ *gorm.DB, studentID string, quizID uint) (*models.Attempt, error) {
	a.st.lock(a.inTx)
	defer a.st.unlock(a.inTx)

	for _, attempt := range a.st.attempts {
		if attempt.CompletedAt == nil && attempt.StudentID == studentID && attempt.QuizID == quizID {
			return copyAttempt(attempt), nil
		}
	}
	return nil, fmt.Errorf("open attempt: %w", repositories.ErrNotFound)
}

func (a *AttemptMemory) CountAttempts(ctx context.Context, _ *gorm.DB, studentID string, quizID uint) (int64, error) {
	a.st.lock(a.inTx)
	defer a.st.unlock(a.inTx)

	var count int64
	for _, attempt := range a.st.attempts {
		if attempt.StudentID == studentID && attempt.QuizID == quizID {
			count++
		}
	}
	return count, nil
}

// LockStudentQuiz is satisfied by the transaction's store lock
func (a *AttemptMemory) LockStudentQuiz(ctx context.Context, _ *gorm.DB, studentID string, quizID uint) error {
	return nil
}

func (a *AttemptMemory) CompleteAttempt(ctx context.Context, _ *gorm.DB, id uint, score, correctAnswers int, completedAt time.Time) (bool, error) {
	a.st.lock(a.inTx)
	defer a.st.unlock(a.inTx)

	if err := a.st.checkWrite(); err != nil {
		return false, fmt.Errorf("failed to complete attempt: %w", err)
	}

	attempt, ok := a.st.attempts[id]
	if !ok || attempt.CompletedAt != nil {
		return false, nil
	}

	completed := completedAt
	attempt.CompletedAt = &completed
	attempt.Score = score
	attempt.CorrectAnswers = correctAnswers
	attempt.UpdatedAt = completedAt
	return true, nil
}

func (a *AttemptMemory) List(ctx context.Context, _ *gorm.DB, filters repositories.AttemptFilters) ([]*models.Attempt, error) {
	a.st.lock(a.inTx)
	defer a.st.unlock(a.inTx)

	var result []*models.Attempt
	for _, attempt := range a.st.attempts {
		if filters.QuizID != nil && attempt.QuizID != *filters.QuizID {
			continue
		}
		if filters.StudentID != nil && attempt.StudentID != *filters.StudentID {
			continue
		}
		if filters.OpenOnly && attempt.CompletedAt != nil {
			continue
		}
		if filters.StartedBefore != nil && !attempt.StartedAt.Before(*filters.StartedBefore) {
			continue
		}
		if attempt.ID <= filters.AfterID {
			continue
		}
		result = append(result, copyAttempt(attempt))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})

	if filters.Offset > 0 {
		if filters.Offset >= len(result) {
			return nil, nil
		}
		result = result[filters.Offset:]
	}
	if filters.Limit > 0 && len(result) > filters.Limit {
		result = result[:filters.Limit]
	}
	return result, nil
}

// AnswerMemory is the in-memory answer ledger
type AnswerMemory struct {
	st   *store
	inTx bool
}

func (ar *AnswerMemory) Upsert(ctx context.Context, _ *gorm.DB, answer *models.Answer) error {
	ar.st.lock(ar.inTx)
	defer ar.st.unlock(ar.inTx)

	if err := ar.st.checkWrite(); err != nil {
		return fmt.Errorf("failed to upsert answer: %w", err)
	}

	if existing := ar.find(answer.AttemptID, answer.QuestionID); existing != nil {
		if repositories.SameAnswer(existing, answer) {
			*answer = *copyAnswer(existing)
			return nil
		}
		answer.ID = existing.ID
		ar.st.answers[existing.ID] = copyAnswer(answer)
		return nil
	}

	ar.st.nextAnswerID++
	answer.ID = ar.st.nextAnswerID
	ar.st.answers[answer.ID] = copyAnswer(answer)
	return nil
}

func (ar *AnswerMemory) GetByAttempt(ctx context.Context, _ *gorm.DB, attemptID uint) ([]*models.Answer, error) {
	ar.st.lock(ar.inTx)
	defer ar.st.unlock(ar.inTx)

	var result []*models.Answer
	for _, answer := range ar.st.answers {
		if answer.AttemptID == attemptID {
			result = append(result, copyAnswer(answer))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].QuestionID < result[j].QuestionID
	})
	return result, nil
}

func (ar *AnswerMemory) GetByAttemptAndQuestion(ctx context.Context, _ *gorm.DB, attemptID, questionID uint) (*models.Answer, error) {
	ar.st.lock(ar.inTx)
	defer ar.st.unlock(ar.inTx)

	if existing := ar.find(attemptID, questionID); existing != nil {
		return copyAnswer(existing), nil
	}
	return nil, fmt.Errorf("answer: %w", repositories.ErrNotFound)
}

func (ar *AnswerMemory) find(attemptID, questionID uint) *models.Answer {
	for _, answer := range ar.st.answers {
		if answer.AttemptID == attemptID && answer.QuestionID == questionID {
			return answer
		}
	}
	return nil
}

func copyQuiz(q *models.Quiz) *models.Quiz {
	c := *q
	if q.StartTime != nil {
		t := *q.StartTime
		c.StartTime = &t
	}
	if q.EndTime != nil {
		t := *q.EndTime
		c.EndTime = &t
	}
	c.Questions = make([]models.Question, len(q.Questions))
	for i, question := range q.Questions {
		c.Questions[i] = question
		c.Questions[i].Options = append([]models.Option(nil), question.Options...)
	}
	return &c
}

func copyAttempt(a *models.Attempt) *models.Attempt {
	c := *a
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		c.CompletedAt = &t
	}
	if a.SessionData != nil {
		c.SessionData = append([]byte(nil), a.SessionData...)
	}
	return &c
}

func copyAnswer(a *models.Answer) *models.Answer {
	c := *a
	if a.SelectedOptionID != nil {
		v := *a.SelectedOptionID
		c.SelectedOptionID = &v
	}
	if a.AnswerText != nil {
		v := *a.AnswerText
		c.AnswerText = &v
	}
	if a.IsCorrect != nil {
		v := *a.IsCorrect
		c.IsCorrect = &v
	}
	return &c
}
