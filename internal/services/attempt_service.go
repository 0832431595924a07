package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/datatypes"

	"github.com/SAP-F-2025/attempt-engine/internal/clock"
	"github.com/SAP-F-2025/attempt-engine/internal/events"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
	"github.com/SAP-F-2025/attempt-engine/internal/validator"
	"github.com/SAP-F-2025/attempt-engine/pkg/monitoring"
)

// createRetries bounds how often StartOrResume retries after losing the
// open-attempt uniqueness race
const createRetries = 2

type attemptService struct {
	repo      repositories.Repository
	clock     clock.Clock
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator
}

func NewAttemptService(repo repositories.Repository, clk clock.Clock, publisher events.EventPublisher, logger *slog.Logger, validator *validator.Validator) AttemptService {
	return &attemptService{
		repo:      repo,
		clock:     clk,
		publisher: publisher,
		logger:    logger,
		validator: validator,
	}
}

// outcome collects what a committed transaction produced. err is a domain
// error decided after writes that must still be committed, e.g. an answer
// rejected because the attempt was just auto-submitted.
type outcome struct {
	events []events.Event
	err    error
}

// ===== CORE ATTEMPT OPERATIONS =====

func (s *attemptService) StartOrResume(ctx context.Context, req *StartAttemptRequest, studentID string, session *SessionInfo) (*AttemptResponse, error) {
	s.logger.Info("Starting or resuming attempt",
		"quiz_id", req.QuizID,
		"student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	quiz, err := s.getQuiz(ctx, s.repo, req.QuizID)
	if err != nil {
		return nil, err
	}

	for try := 0; ; try++ {
		resp, err := s.startOrResumeOnce(ctx, quiz, studentID, session)
		if errors.Is(err, repositories.ErrOpenAttemptExists) && try < createRetries {
			s.logger.Warn("Concurrent attempt creation detected, retrying",
				"quiz_id", quiz.ID,
				"student_id", studentID)
			continue
		}
		if errors.Is(err, repositories.ErrOpenAttemptExists) {
			return nil, storageError("start attempt", err)
		}
		return resp, err
	}
}

func (s *attemptService) startOrResumeOnce(ctx context.Context, quiz *models.Quiz, studentID string, session *SessionInfo) (*AttemptResponse, error) {
	var resp *AttemptResponse
	var out outcome

	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		out = outcome{}

		if err := tx.Attempt().LockStudentQuiz(ctx, nil, studentID, quiz.ID); err != nil {
			return storageError("lock student attempts", err)
		}
		now := s.clock.Now()

		open, err := tx.Attempt().GetOpenAttempt(ctx, nil, studentID, quiz.ID)
		if err != nil && !repositories.IsNotFoundError(err) {
			return storageError("get open attempt", err)
		}

		if open != nil {
			open, err = tx.Attempt().GetByIDForUpdate(ctx, nil, open.ID)
			if err != nil {
				return storageError("lock attempt", err)
			}

			expired, err := s.enforce(ctx, tx, open, quiz, now, &out)
			if err != nil {
				return err
			}
			if !expired {
				resp = s.buildAttemptResponse(open, quiz, now, true)
				out.events = append(out.events, s.startedEvent(events.AttemptResumed, open, quiz, now))
				return nil
			}
		}

		count, err := tx.Attempt().CountAttempts(ctx, nil, studentID, quiz.ID)
		if err != nil {
			return storageError("count attempts", err)
		}

		decision := CanStartOrResume(quiz, count, false, now)
		if !decision.Allowed {
			monitoring.AttemptDenials.WithLabelValues(string(decision.Reason)).Inc()
			out.err = decision.Err()
			return nil
		}

		attempt := &models.Attempt{
			QuizID:         quiz.ID,
			StudentID:      studentID,
			AttemptNumber:  int(count) + 1,
			StartedAt:      now,
			TotalQuestions: len(quiz.Questions),
			SessionData:    sessionData(session),
		}
		if err := tx.Attempt().Create(ctx, nil, attempt); err != nil {
			if errors.Is(err, repositories.ErrOpenAttemptExists) {
				return err
			}
			return storageError("create attempt", err)
		}

		s.logger.Info("Attempt created",
			"attempt_id", attempt.ID,
			"quiz_id", quiz.ID,
			"student_id", studentID,
			"attempt_number", attempt.AttemptNumber)

		resp = s.buildAttemptResponse(attempt, quiz, now, false)
		out.events = append(out.events, s.startedEvent(events.AttemptStarted, attempt, quiz, now))
		return nil
	})
	if err != nil {
		return nil, s.transactionError("start attempt", err)
	}

	s.commit(ctx, out.events)
	if out.err != nil {
		return nil, out.err
	}
	return resp, nil
}

func (s *attemptService) SubmitAnswer(ctx context.Context, attemptID uint, req *SubmitAnswerRequest, studentID string) (*AnswerResult, error) {
	s.logger.Info("Submitting answer",
		"attempt_id", attemptID,
		"question_id", req.QuestionID,
		"student_id", studentID)

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	var result *AnswerResult
	err := s.withLockedAttempt(ctx, attemptID, s.ownedBy(studentID, "submit_answer"),
		func(tx repositories.Repository, attempt *models.Attempt, quiz *models.Quiz, now time.Time, out *outcome) error {
			if !attempt.IsOpen() {
				return ErrAttemptAlreadyCompleted
			}

			expired, err := s.enforce(ctx, tx, attempt, quiz, now, out)
			if err != nil {
				return err
			}
			if expired {
				out.err = ErrAttemptTimeExpired
				return nil
			}

			question := quiz.FindQuestion(req.QuestionID)
			if question == nil {
				return ErrInvalidQuestion
			}

			answer := GradeAnswer(attempt.ID, question, AnswerPayload{
				SelectedOptionID: req.SelectedOptionID,
				AnswerText:       req.AnswerText,
			}, now)
			if err := tx.Answer().Upsert(ctx, nil, answer); err != nil {
				return storageError("record answer", err)
			}

			result = &AnswerResult{
				AttemptID:            attempt.ID,
				QuestionID:           question.ID,
				SelectedOptionID:     answer.SelectedOptionID,
				AnswerText:           answer.AnswerText,
				AnsweredAt:           answer.AnsweredAt,
				TimeRemainingSeconds: secondsRemaining(attempt, quiz, now),
			}
			out.events = append(out.events, events.NewEvent(events.AnswerRecorded, attemptKey(attempt.ID), events.AnswerRecordedData{
				AttemptID:    attempt.ID,
				QuestionID:   question.ID,
				QuestionType: string(question.Type),
				IsCorrect:    answer.IsCorrect,
				PointsEarned: answer.PointsEarned,
			}, now))
			return nil
		})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Answer recorded",
		"attempt_id", attemptID,
		"question_id", req.QuestionID)

	return result, nil
}

func (s *attemptService) Submit(ctx context.Context, attemptID uint, studentID string) (*AttemptResult, error) {
	s.logger.Info("Submitting attempt",
		"attempt_id", attemptID,
		"student_id", studentID)

	var result *AttemptResult
	err := s.withLockedAttempt(ctx, attemptID, s.ownedBy(studentID, "submit"),
		func(tx repositories.Repository, attempt *models.Attempt, quiz *models.Quiz, now time.Time, out *outcome) error {
			expired, err := s.enforce(ctx, tx, attempt, quiz, now, out)
			if err != nil {
				return err
			}
			if !expired {
				if err := s.finalize(ctx, tx, attempt, quiz, now, events.ReasonSubmitted, out); err != nil {
					return err
				}
			}

			result, err = s.loadResult(ctx, tx, attempt, quiz, now)
			return err
		})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Attempt submitted",
		"attempt_id", attemptID,
		"score", result.Score)

	return result, nil
}

// ===== GET OPERATIONS =====

func (s *attemptService) GetResult(ctx context.Context, attemptID uint, userID string, role models.UserRole) (*AttemptResult, error) {
	authorize := func(attempt *models.Attempt) error {
		if attempt.StudentID == userID || role.CanReviewAttempts() {
			return nil
		}
		return NewPermissionError(userID, attempt.ID, "attempt", "read", "not owner or insufficient permissions")
	}

	var result *AttemptResult
	err := s.withLockedAttempt(ctx, attemptID, authorize,
		func(tx repositories.Repository, attempt *models.Attempt, quiz *models.Quiz, now time.Time, out *outcome) error {
			if _, err := s.enforce(ctx, tx, attempt, quiz, now, out); err != nil {
				return err
			}
			var err error
			result, err = s.loadResult(ctx, tx, attempt, quiz, now)
			return err
		})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *attemptService) ListAttempts(ctx context.Context, quizID uint, studentID string) (*AttemptHistory, error) {
	quiz, err := s.getQuiz(ctx, s.repo, quizID)
	if err != nil {
		return nil, err
	}

	var history *AttemptHistory
	var out outcome
	err = s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		out = outcome{}

		if err := tx.Attempt().LockStudentQuiz(ctx, nil, studentID, quizID); err != nil {
			return storageError("lock student attempts", err)
		}
		now := s.clock.Now()

		attempts, err := tx.Attempt().List(ctx, nil, repositories.AttemptFilters{
			QuizID:    &quizID,
			StudentID: &studentID,
		})
		if err != nil {
			return storageError("list attempts", err)
		}

		history = &AttemptHistory{
			QuizID:       quiz.ID,
			MaxAttempts:  quiz.MaxAttempts,
			AttemptsUsed: len(attempts),
			Attempts:     make([]*AttemptSummary, 0, len(attempts)),
		}

		for _, attempt := range attempts {
			if attempt.IsOpen() {
				locked, err := tx.Attempt().GetByIDForUpdate(ctx, nil, attempt.ID)
				if err != nil {
					return storageError("lock attempt", err)
				}
				if _, err := s.enforce(ctx, tx, locked, quiz, now, &out); err != nil {
					return err
				}
				attempt = locked
			}
			if attempt.IsOpen() {
				id := attempt.ID
				history.OpenAttemptID = &id
			}
			history.Attempts = append(history.Attempts, &AttemptSummary{
				Attempt:  attempt,
				Deadline: Deadline(attempt, quiz),
				Passed:   passedFor(attempt, quiz),
			})
		}

		if remaining := quiz.MaxAttempts - len(attempts); remaining > 0 {
			history.AttemptsRemaining = remaining
		}
		decision := CanStartOrResume(quiz, int64(len(attempts)), history.OpenAttemptID != nil, now)
		history.CanStart = decision.Allowed
		history.DenialReason = decision.Reason
		return nil
	})
	if err != nil {
		return nil, s.transactionError("list attempts", err)
	}

	s.commit(ctx, out.events)
	return history, nil
}

func (s *attemptService) EnforceExpiry(ctx context.Context, attemptID uint) (bool, error) {
	var expired bool
	err := s.withLockedAttempt(ctx, attemptID, nil,
		func(tx repositories.Repository, attempt *models.Attempt, quiz *models.Quiz, now time.Time, out *outcome) error {
			var err error
			expired, err = s.enforce(ctx, tx, attempt, quiz, now, out)
			return err
		})
	return expired, err
}

// ===== EXPIRY AND FINALIZATION =====

// enforce auto-submits an expired attempt in place and reports whether it did
func (s *attemptService) enforce(ctx context.Context, tx repositories.Repository, attempt *models.Attempt, quiz *models.Quiz, now time.Time, out *outcome) (bool, error) {
	if !IsExpired(attempt, quiz, now) {
		return false, nil
	}

	s.logger.Info("Attempt deadline passed, auto-submitting",
		"attempt_id", attempt.ID,
		"deadline", Deadline(attempt, quiz))

	if err := s.finalize(ctx, tx, attempt, quiz, now, events.ReasonExpired, out); err != nil {
		return false, err
	}
	return true, nil
}

// finalize scores the attempt and completes it. It is a no-op on a completed
// attempt; if another writer completes it first, attempt is refreshed with the
// stored result instead.
func (s *attemptService) finalize(ctx context.Context, tx repositories.Repository, attempt *models.Attempt, quiz *models.Quiz, now time.Time, reason events.CompletionReason, out *outcome) error {
	if !attempt.IsOpen() {
		return nil
	}

	answers, err := tx.Answer().GetByAttempt(ctx, nil, attempt.ID)
	if err != nil {
		return storageError("get answers", err)
	}
	summary := CalculateScore(quiz, answers)

	applied, err := tx.Attempt().CompleteAttempt(ctx, nil, attempt.ID, summary.Score, summary.CorrectAnswers, now)
	if err != nil {
		return storageError("complete attempt", err)
	}
	if !applied {
		current, err := tx.Attempt().GetByID(ctx, nil, attempt.ID)
		if err != nil {
			return storageError("reload attempt", err)
		}
		*attempt = *current
		return nil
	}

	completedAt := now
	attempt.CompletedAt = &completedAt
	attempt.Score = summary.Score
	attempt.CorrectAnswers = summary.CorrectAnswers
	attempt.UpdatedAt = now

	s.logger.Info("Attempt finalized",
		"attempt_id", attempt.ID,
		"reason", reason,
		"score", summary.Score,
		"correct_answers", summary.CorrectAnswers,
		"total_earned", summary.TotalEarned,
		"max_points", summary.MaxPoints)

	out.events = append(out.events, events.NewEvent(events.AttemptCompleted, attemptKey(attempt.ID), events.AttemptCompletedData{
		AttemptID:      attempt.ID,
		QuizID:         attempt.QuizID,
		StudentID:      attempt.StudentID,
		Score:          attempt.Score,
		CorrectAnswers: attempt.CorrectAnswers,
		Passed:         quiz.Passed(attempt.Score),
		Reason:         reason,
		CompletedAt:    now,
	}, now))
	return nil
}

// ===== HELPERS =====

type attemptFunc func(tx repositories.Repository, attempt *models.Attempt, quiz *models.Quiz, now time.Time, out *outcome) error

// withLockedAttempt runs fn in a transaction holding the attempt's write lock.
// The clock is read after the lock is acquired.
func (s *attemptService) withLockedAttempt(ctx context.Context, attemptID uint, authorize func(*models.Attempt) error, fn attemptFunc) error {
	var out outcome
	err := s.repo.WithTransaction(ctx, func(tx repositories.Repository) error {
		out = outcome{}

		attempt, err := tx.Attempt().GetByIDForUpdate(ctx, nil, attemptID)
		if err != nil {
			if repositories.IsNotFoundError(err) {
				return ErrAttemptNotFound
			}
			return storageError("get attempt", err)
		}

		if authorize != nil {
			if err := authorize(attempt); err != nil {
				return err
			}
		}

		quiz, err := s.getQuiz(ctx, tx, attempt.QuizID)
		if err != nil {
			return err
		}

		return fn(tx, attempt, quiz, s.clock.Now(), &out)
	})
	if err != nil {
		return s.transactionError("attempt operation", err)
	}

	s.commit(ctx, out.events)
	return out.err
}

func (s *attemptService) ownedBy(studentID, action string) func(*models.Attempt) error {
	return func(attempt *models.Attempt) error {
		if attempt.StudentID != studentID {
			return NewPermissionError(studentID, attempt.ID, "attempt", action, "not owned by student")
		}
		return nil
	}
}

func (s *attemptService) getQuiz(ctx context.Context, repo repositories.Repository, quizID uint) (*models.Quiz, error) {
	quiz, err := repo.Quiz().GetByID(ctx, nil, quizID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrQuizNotFound
		}
		return nil, storageError("get quiz", err)
	}
	return quiz, nil
}

func (s *attemptService) transactionError(op string, err error) error {
	if isDomainError(err) || errors.Is(err, repositories.ErrOpenAttemptExists) {
		return err
	}
	s.logger.Error("Attempt transaction failed", "operation", op, "error", err)
	return storageError(op, err)
}

// commit publishes the events of a committed transaction and counts them
func (s *attemptService) commit(ctx context.Context, committed []events.Event) {
	for _, event := range committed {
		switch data := event.Data.(type) {
		case events.AttemptStartedData:
			if event.Type == events.AttemptResumed {
				monitoring.AttemptsResumed.Inc()
			} else {
				monitoring.AttemptsStarted.Inc()
			}
		case events.AnswerRecordedData:
			monitoring.AnswersRecorded.WithLabelValues(data.QuestionType).Inc()
		case events.AttemptCompletedData:
			monitoring.AttemptsFinalized.WithLabelValues(string(data.Reason)).Inc()
		}

		if s.publisher == nil {
			continue
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Error("Failed to publish event",
				"event_type", event.Type,
				"event_id", event.ID,
				"error", err)
		}
	}
}

func (s *attemptService) startedEvent(eventType events.EventType, attempt *models.Attempt, quiz *models.Quiz, now time.Time) events.Event {
	return events.NewEvent(eventType, attemptKey(attempt.ID), events.AttemptStartedData{
		AttemptID:     attempt.ID,
		QuizID:        attempt.QuizID,
		StudentID:     attempt.StudentID,
		AttemptNumber: attempt.AttemptNumber,
		StartedAt:     attempt.StartedAt,
		Deadline:      Deadline(attempt, quiz),
	}, now)
}

func (s *attemptService) buildAttemptResponse(attempt *models.Attempt, quiz *models.Quiz, now time.Time, resumed bool) *AttemptResponse {
	return &AttemptResponse{
		Attempt:              attempt,
		Resumed:              resumed,
		Deadline:             Deadline(attempt, quiz),
		TimeRemainingSeconds: secondsRemaining(attempt, quiz, now),
		Questions:            questionViews(quiz),
	}
}

func (s *attemptService) loadResult(ctx context.Context, tx repositories.Repository, attempt *models.Attempt, quiz *models.Quiz, now time.Time) (*AttemptResult, error) {
	answers, err := tx.Answer().GetByAttempt(ctx, nil, attempt.ID)
	if err != nil {
		return nil, storageError("get answers", err)
	}
	return buildAttemptResult(attempt, quiz, answers, now), nil
}

func buildAttemptResult(attempt *models.Attempt, quiz *models.Quiz, answers []*models.Answer, now time.Time) *AttemptResult {
	result := &AttemptResult{
		Attempt:              attempt,
		QuizTitle:            quiz.Title,
		Completed:            !attempt.IsOpen(),
		Deadline:             Deadline(attempt, quiz),
		TimeRemainingSeconds: secondsRemaining(attempt, quiz, now),
		PassingScore:         quiz.PassingScore,
		MaxPoints:            quiz.MaxPoints(),
		Passed:               passedFor(attempt, quiz),
		Answers:              make([]AnswerView, 0, len(answers)),
	}

	totalEarned := 0
	for _, answer := range answers {
		view := AnswerView{
			QuestionID:       answer.QuestionID,
			SelectedOptionID: answer.SelectedOptionID,
			AnswerText:       answer.AnswerText,
			AnsweredAt:       answer.AnsweredAt,
		}
		if result.Completed {
			points := answer.PointsEarned
			view.IsCorrect = answer.IsCorrect
			view.PointsEarned = &points
			totalEarned += points
		}
		result.Answers = append(result.Answers, view)
	}

	if result.Completed {
		result.TotalEarned = &totalEarned
	}
	return result
}

func questionViews(quiz *models.Quiz) []QuestionView {
	views := make([]QuestionView, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		view := QuestionView{
			ID:      q.ID,
			Type:    q.Type,
			Text:    q.Text,
			Points:  q.Points,
			Order:   q.Order,
			Options: make([]OptionView, 0, len(q.Options)),
		}
		for _, o := range q.Options {
			view.Options = append(view.Options, OptionView{ID: o.ID, Text: o.Text, Order: o.Order})
		}
		views = append(views, view)
	}
	return views
}

func passedFor(attempt *models.Attempt, quiz *models.Quiz) *bool {
	if attempt.IsOpen() {
		return nil
	}
	passed := quiz.Passed(attempt.Score)
	return &passed
}

func secondsRemaining(attempt *models.Attempt, quiz *models.Quiz, now time.Time) int {
	return int(TimeRemaining(attempt, quiz, now) / time.Second)
}

func sessionData(session *SessionInfo) datatypes.JSON {
	if session == nil {
		return nil
	}
	data, err := json.Marshal(session)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

func attemptKey(attemptID uint) string {
	return fmt.Sprintf("attempt:%d", attemptID)
}
