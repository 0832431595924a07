package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/clock"
	"github.com/SAP-F-2025/attempt-engine/internal/events"
	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories/memory"
	"github.com/SAP-F-2025/attempt-engine/internal/validator"
)

type testEnv struct {
	repo      *memory.MemoryRepository
	clock     *clock.Mock
	publisher *events.MockEventPublisher
	logger    *slog.Logger
	service   AttemptService
	quiz      *models.Quiz
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEnv seeds a quiz with two multiple choice questions worth 5 points
// each, a 10 minute budget and a passing score of 70
func newTestEnv(t *testing.T, mutate func(*models.Quiz)) *testEnv {
	t.Helper()

	quiz := &models.Quiz{
		Title:           "Fractions",
		DurationMinutes: 10,
		PassingScore:    70,
		MaxAttempts:     2,
		IsActive:        true,
		CreatedBy:       "teacher-1",
		Questions: []models.Question{
			{Type: models.MultipleChoice, Text: "1/2 + 1/2", Points: 5, Order: 1, Options: []models.Option{
				{Text: "2", Order: 1},
				{Text: "1", IsCorrect: true, Order: 2},
			}},
			{Type: models.MultipleChoice, Text: "1/4 + 1/4", Points: 5, Order: 2, Options: []models.Option{
				{Text: "1/2", IsCorrect: true, Order: 1},
				{Text: "2/8", Order: 2},
			}},
		},
	}
	if mutate != nil {
		mutate(quiz)
	}

	repo := memory.NewMemoryRepository()
	if err := repo.Quiz().Create(context.Background(), nil, quiz); err != nil {
		t.Fatalf("seed quiz: %v", err)
	}

	logger := discardLogger()
	clk := clock.NewMock(t0)
	publisher := events.NewMockEventPublisher(logger)

	return &testEnv{
		repo:      repo,
		clock:     clk,
		publisher: publisher,
		logger:    logger,
		service:   NewAttemptService(repo, clk, publisher, logger, validator.New()),
		quiz:      quiz,
	}
}

func (e *testEnv) start(t *testing.T, studentID string) *AttemptResponse {
	t.Helper()
	resp, err := e.service.StartOrResume(context.Background(), &StartAttemptRequest{QuizID: e.quiz.ID}, studentID, &SessionInfo{ClientIP: "10.0.0.1"})
	if err != nil {
		t.Fatalf("StartOrResume(%s) error = %v", studentID, err)
	}
	return resp
}

func (e *testEnv) answer(t *testing.T, attemptID uint, studentID string, question int, correct bool) {
	t.Helper()
	if _, err := e.service.SubmitAnswer(context.Background(), attemptID, e.optionAnswer(question, correct), studentID); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}
}

func (e *testEnv) optionAnswer(question int, correct bool) *SubmitAnswerRequest {
	q := e.quiz.Questions[question]
	for _, o := range q.Options {
		if o.IsCorrect == correct {
			return &SubmitAnswerRequest{QuestionID: q.ID, SelectedOptionID: uintPtr(o.ID)}
		}
	}
	panic("no matching option")
}

func TestStartOrResume_CreatesThenResumes(t *testing.T) {
	env := newTestEnv(t, nil)

	first := env.start(t, "s1")
	if first.Resumed || first.AttemptNumber != 1 || first.TotalQuestions != 2 {
		t.Fatalf("first start = %+v", first)
	}
	if !first.Deadline.Equal(t0.Add(10*time.Minute)) || first.TimeRemainingSeconds != 600 {
		t.Errorf("deadline = %v remaining = %d", first.Deadline, first.TimeRemainingSeconds)
	}
	if len(first.Questions) != 2 || len(first.Questions[0].Options) != 2 {
		t.Errorf("questions = %+v", first.Questions)
	}
	if len(first.SessionData) == 0 {
		t.Error("session data not stored")
	}

	env.clock.Advance(3 * time.Minute)
	second := env.start(t, "s1")
	if !second.Resumed || second.ID != first.ID {
		t.Fatalf("second start = %+v, want resume of %d", second, first.ID)
	}
	if second.TimeRemainingSeconds != 420 {
		t.Errorf("remaining after resume = %d, want 420", second.TimeRemainingSeconds)
	}

	if n := len(env.publisher.EventsOfType(events.AttemptStarted)); n != 1 {
		t.Errorf("started events = %d, want 1", n)
	}
	if n := len(env.publisher.EventsOfType(events.AttemptResumed)); n != 1 {
		t.Errorf("resumed events = %d, want 1", n)
	}
}

func TestSubmit_Scenarios(t *testing.T) {
	tests := []struct {
		name        string
		correct     []bool
		wantScore   int
		wantPassed  bool
		wantCorrect int
	}{
		{name: "one of two correct fails", correct: []bool{true, false}, wantScore: 50, wantPassed: false, wantCorrect: 1},
		{name: "both correct passes", correct: []bool{true, true}, wantScore: 100, wantPassed: true, wantCorrect: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			attempt := env.start(t, "s1")
			for i, correct := range tt.correct {
				env.answer(t, attempt.ID, "s1", i, correct)
			}

			env.clock.Advance(4 * time.Minute)
			result, err := env.service.Submit(context.Background(), attempt.ID, "s1")
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}

			if !result.Completed || result.CompletedAt == nil || !result.CompletedAt.Equal(t0.Add(4*time.Minute)) {
				t.Errorf("completion = %+v", result.Attempt)
			}
			if result.Score != tt.wantScore || result.CorrectAnswers != tt.wantCorrect {
				t.Errorf("score = %d correct = %d, want %d %d", result.Score, result.CorrectAnswers, tt.wantScore, tt.wantCorrect)
			}
			if result.Passed == nil || *result.Passed != tt.wantPassed {
				t.Errorf("passed = %v, want %v", result.Passed, tt.wantPassed)
			}
			if result.MaxPoints != 10 || result.TotalEarned == nil || *result.TotalEarned != tt.wantCorrect*5 {
				t.Errorf("points = %d/%v", result.MaxPoints, result.TotalEarned)
			}

			completed := env.publisher.EventsOfType(events.AttemptCompleted)
			if len(completed) != 1 {
				t.Fatalf("completed events = %d, want 1", len(completed))
			}
			data := completed[0].Data.(events.AttemptCompletedData)
			if data.Reason != events.ReasonSubmitted || data.Passed != tt.wantPassed {
				t.Errorf("completed event = %+v", data)
			}
		})
	}
}

func TestStartOrResume_Quota(t *testing.T) {
	for _, maxAttempts := range []int{1, 2, 3} {
		env := newTestEnv(t, func(q *models.Quiz) { q.MaxAttempts = maxAttempts })

		for i := 1; i <= maxAttempts; i++ {
			attempt := env.start(t, "s1")
			if attempt.AttemptNumber != i {
				t.Fatalf("max=%d: attempt number = %d, want %d", maxAttempts, attempt.AttemptNumber, i)
			}
			if _, err := env.service.Submit(context.Background(), attempt.ID, "s1"); err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
		}

		_, err := env.service.StartOrResume(context.Background(), &StartAttemptRequest{QuizID: env.quiz.ID}, "s1", nil)
		if !errors.Is(err, ErrAttemptLimitExceeded) {
			t.Errorf("max=%d: attempt %d error = %v, want ErrAttemptLimitExceeded", maxAttempts, maxAttempts+1, err)
		}

		// another student is unaffected
		env.start(t, "s2")
	}
}

func TestStartOrResume_Availability(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*models.Quiz)
		wantErr error
	}{
		{name: "inactive", mutate: func(q *models.Quiz) { q.IsActive = false }, wantErr: ErrQuizNotActive},
		{name: "not yet open", mutate: func(q *models.Quiz) { q.StartTime = timePtr(t0.Add(time.Hour)) }, wantErr: ErrQuizNotYetOpen},
		{name: "closed", mutate: func(q *models.Quiz) { q.EndTime = timePtr(t0.Add(-time.Hour)) }, wantErr: ErrQuizClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.mutate)
			_, err := env.service.StartOrResume(context.Background(), &StartAttemptRequest{QuizID: env.quiz.ID}, "s1", nil)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("StartOrResume() error = %v, want %v", err, tt.wantErr)
			}
			if got := env.publisher.GetPublishedEvents(); len(got) != 0 {
				t.Errorf("events = %d, want none", len(got))
			}
		})
	}
}

func TestStartOrResume_UnknownQuizAndValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	if _, err := env.service.StartOrResume(ctx, &StartAttemptRequest{QuizID: 999}, "s1", nil); !errors.Is(err, ErrQuizNotFound) {
		t.Errorf("unknown quiz error = %v", err)
	}

	_, err := env.service.StartOrResume(ctx, &StartAttemptRequest{}, "s1", nil)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) || verrs[0].Field != "quiz_id" {
		t.Errorf("missing quiz id error = %v", err)
	}
}

func TestSubmitAnswer_AfterDeadline(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	attempt := env.start(t, "s1")
	env.answer(t, attempt.ID, "s1", 0, true)

	// the deadline instant is still inside the budget
	env.clock.Set(t0.Add(10 * time.Minute))
	env.answer(t, attempt.ID, "s1", 0, true)

	env.clock.Set(t0.Add(10*time.Minute + time.Second))
	if _, err := env.service.SubmitAnswer(ctx, attempt.ID, env.optionAnswer(1, true), "s1"); !errors.Is(err, ErrAttemptTimeExpired) {
		t.Fatalf("late answer error = %v, want ErrAttemptTimeExpired", err)
	}

	stored, err := env.repo.Attempt().GetByID(ctx, nil, attempt.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if stored.CompletedAt == nil || !stored.CompletedAt.Equal(env.clock.Now()) || stored.Score != 50 {
		t.Errorf("expired attempt = %+v", stored)
	}

	answers, _ := env.repo.Answer().GetByAttempt(ctx, nil, attempt.ID)
	if len(answers) != 1 {
		t.Errorf("answers = %d, late answer must not be stored", len(answers))
	}

	if _, err := env.service.SubmitAnswer(ctx, attempt.ID, env.optionAnswer(1, true), "s1"); !errors.Is(err, ErrAttemptAlreadyCompleted) {
		t.Errorf("answer after auto-submit error = %v, want ErrAttemptAlreadyCompleted", err)
	}

	completed := env.publisher.EventsOfType(events.AttemptCompleted)
	if len(completed) != 1 || completed[0].Data.(events.AttemptCompletedData).Reason != events.ReasonExpired {
		t.Errorf("completed events = %+v", completed)
	}
}

func TestStartOrResume_ExpiredOpenAttempt(t *testing.T) {
	t.Run("starts a new attempt", func(t *testing.T) {
		env := newTestEnv(t, nil)
		first := env.start(t, "s1")

		env.clock.Advance(11 * time.Minute)
		second := env.start(t, "s1")
		if second.Resumed || second.ID == first.ID || second.AttemptNumber != 2 {
			t.Fatalf("second = %+v", second)
		}

		stored, _ := env.repo.Attempt().GetByID(context.Background(), nil, first.ID)
		if stored.IsOpen() {
			t.Error("expired attempt not finalized")
		}
	})

	t.Run("quota used up still finalizes", func(t *testing.T) {
		env := newTestEnv(t, func(q *models.Quiz) { q.MaxAttempts = 1 })
		first := env.start(t, "s1")

		env.clock.Advance(11 * time.Minute)
		_, err := env.service.StartOrResume(context.Background(), &StartAttemptRequest{QuizID: env.quiz.ID}, "s1", nil)
		if !errors.Is(err, ErrAttemptLimitExceeded) {
			t.Fatalf("error = %v, want ErrAttemptLimitExceeded", err)
		}

		stored, _ := env.repo.Attempt().GetByID(context.Background(), nil, first.ID)
		if stored.IsOpen() {
			t.Error("auto-submit must be committed even when the start is denied")
		}
		if n := len(env.publisher.EventsOfType(events.AttemptCompleted)); n != 1 {
			t.Errorf("completed events = %d, want 1", n)
		}
	})
}

func TestSubmit_Idempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	attempt := env.start(t, "s1")
	env.answer(t, attempt.ID, "s1", 0, true)

	first, err := env.service.Submit(ctx, attempt.ID, "s1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	env.clock.Advance(time.Hour)
	second, err := env.service.Submit(ctx, attempt.ID, "s1")
	if err != nil {
		t.Fatalf("second Submit() error = %v", err)
	}

	if second.Score != first.Score || second.CorrectAnswers != first.CorrectAnswers || !second.CompletedAt.Equal(*first.CompletedAt) {
		t.Errorf("second submit changed the result: %+v vs %+v", second.Attempt, first.Attempt)
	}
	if n := len(env.publisher.EventsOfType(events.AttemptCompleted)); n != 1 {
		t.Errorf("completed events = %d, want 1", n)
	}
}

func TestSubmitAnswer_Idempotent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	attempt := env.start(t, "s1")
	env.answer(t, attempt.ID, "s1", 0, true)
	before, _ := env.repo.Answer().GetByAttempt(ctx, nil, attempt.ID)

	env.clock.Advance(time.Minute)
	env.answer(t, attempt.ID, "s1", 0, true)
	after, _ := env.repo.Answer().GetByAttempt(ctx, nil, attempt.ID)

	if len(after) != 1 {
		t.Fatalf("answers = %d, want 1", len(after))
	}
	if !reflect.DeepEqual(before, after) {
		t.Errorf("repeated answer changed the row: %+v -> %+v", before[0], after[0])
	}

	// a different option overwrites the same row
	env.answer(t, attempt.ID, "s1", 0, false)
	changed, _ := env.repo.Answer().GetByAttempt(ctx, nil, attempt.ID)
	if len(changed) != 1 || changed[0].ID != before[0].ID || *changed[0].IsCorrect {
		t.Errorf("overwrite = %+v", changed)
	}
}

func TestSubmitAnswer_Rejections(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	attempt := env.start(t, "s1")

	tests := []struct {
		name      string
		attemptID uint
		studentID string
		req       *SubmitAnswerRequest
		check     func(error) bool
	}{
		{
			name:      "question from another quiz",
			attemptID: attempt.ID,
			studentID: "s1",
			req:       &SubmitAnswerRequest{QuestionID: 999, SelectedOptionID: uintPtr(1)},
			check:     func(err error) bool { return errors.Is(err, ErrInvalidQuestion) },
		},
		{
			name:      "unknown attempt",
			attemptID: 999,
			studentID: "s1",
			req:       env.optionAnswer(0, true),
			check:     func(err error) bool { return errors.Is(err, ErrAttemptNotFound) },
		},
		{
			name:      "not the owner",
			attemptID: attempt.ID,
			studentID: "s2",
			req:       env.optionAnswer(0, true),
			check:     IsPermissionError,
		},
		{
			name:      "missing question id",
			attemptID: attempt.ID,
			studentID: "s1",
			req:       &SubmitAnswerRequest{},
			check: func(err error) bool {
				var verrs ValidationErrors
				return errors.As(err, &verrs)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.service.SubmitAnswer(ctx, tt.attemptID, tt.req, tt.studentID)
			if err == nil || !tt.check(err) {
				t.Errorf("SubmitAnswer() error = %v", err)
			}
		})
	}

	answers, _ := env.repo.Answer().GetByAttempt(ctx, nil, attempt.ID)
	if len(answers) != 0 {
		t.Errorf("rejected answers were stored: %+v", answers)
	}
}

func TestSubmitAnswer_UnknownOptionGradedIncorrect(t *testing.T) {
	for _, optionID := range []uint{0, 4242} {
		t.Run(fmt.Sprintf("option %d", optionID), func(t *testing.T) {
			env := newTestEnv(t, nil)
			ctx := context.Background()
			attempt := env.start(t, "s1")

			req := &SubmitAnswerRequest{QuestionID: env.quiz.Questions[0].ID, SelectedOptionID: uintPtr(optionID)}
			if _, err := env.service.SubmitAnswer(ctx, attempt.ID, req, "s1"); err != nil {
				t.Fatalf("SubmitAnswer() error = %v", err)
			}

			result, err := env.service.Submit(ctx, attempt.ID, "s1")
			if err != nil {
				t.Fatalf("Submit() error = %v", err)
			}
			if result.Score != 0 || len(result.Answers) != 1 || result.Answers[0].IsCorrect == nil || *result.Answers[0].IsCorrect {
				t.Errorf("result = %+v", result)
			}
			if got := result.Answers[0].SelectedOptionID; got == nil || *got != optionID {
				t.Errorf("stored option = %v, want %d", got, optionID)
			}
		})
	}
}

func TestSubmit_AllEssayQuiz(t *testing.T) {
	env := newTestEnv(t, func(q *models.Quiz) {
		q.Questions = []models.Question{{Type: models.Essay, Text: "Explain fractions", Points: 10}}
	})
	ctx := context.Background()
	attempt := env.start(t, "s1")

	req := &SubmitAnswerRequest{
		QuestionID:       env.quiz.Questions[0].ID,
		SelectedOptionID: uintPtr(1),
		AnswerText:       strPtr("parts of a whole"),
	}
	if _, err := env.service.SubmitAnswer(ctx, attempt.ID, req, "s1"); err != nil {
		t.Fatalf("SubmitAnswer() error = %v", err)
	}

	result, err := env.service.Submit(ctx, attempt.ID, "s1")
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if result.Score != 0 || result.CorrectAnswers != 0 || *result.Passed {
		t.Errorf("result = %+v", result.Attempt)
	}
	answer := result.Answers[0]
	if answer.IsCorrect != nil || answer.SelectedOptionID != nil || answer.AnswerText == nil {
		t.Errorf("essay answer = %+v", answer)
	}
}

func TestGetResult(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	attempt := env.start(t, "s1")
	env.answer(t, attempt.ID, "s1", 0, true)

	open, err := env.service.GetResult(ctx, attempt.ID, "s1", models.RoleStudent)
	if err != nil {
		t.Fatalf("GetResult() error = %v", err)
	}
	if open.Completed || open.Passed != nil || open.TotalEarned != nil {
		t.Errorf("open result exposes grading: %+v", open)
	}
	if len(open.Answers) != 1 || open.Answers[0].IsCorrect != nil || open.Answers[0].PointsEarned != nil {
		t.Errorf("open answers expose grading: %+v", open.Answers)
	}

	if _, err := env.service.GetResult(ctx, attempt.ID, "s2", models.RoleStudent); !IsPermissionError(err) {
		t.Errorf("other student error = %v", err)
	}

	env.clock.Advance(10*time.Minute + time.Second)
	reviewed, err := env.service.GetResult(ctx, attempt.ID, "t1", models.RoleTeacher)
	if err != nil {
		t.Fatalf("teacher GetResult() error = %v", err)
	}
	if !reviewed.Completed || reviewed.Score != 50 || reviewed.TimeRemainingSeconds != 0 {
		t.Errorf("reading past the deadline must auto-submit: %+v", reviewed.Attempt)
	}
	if reviewed.Answers[0].PointsEarned == nil || *reviewed.Answers[0].PointsEarned != 5 {
		t.Errorf("completed answers = %+v", reviewed.Answers)
	}
}

func TestListAttempts(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	first := env.start(t, "s1")
	if _, err := env.service.Submit(ctx, first.ID, "s1"); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	second := env.start(t, "s1")

	history, err := env.service.ListAttempts(ctx, env.quiz.ID, "s1")
	if err != nil {
		t.Fatalf("ListAttempts() error = %v", err)
	}
	if history.AttemptsUsed != 2 || history.AttemptsRemaining != 0 || len(history.Attempts) != 2 {
		t.Errorf("history = %+v", history)
	}
	if history.OpenAttemptID == nil || *history.OpenAttemptID != second.ID || !history.CanStart {
		t.Errorf("open attempt must be resumable: %+v", history)
	}

	env.clock.Advance(11 * time.Minute)
	history, err = env.service.ListAttempts(ctx, env.quiz.ID, "s1")
	if err != nil {
		t.Fatalf("ListAttempts() error = %v", err)
	}
	if history.OpenAttemptID != nil || history.CanStart || history.DenialReason != DenialQuotaExceeded {
		t.Errorf("history after expiry = %+v", history)
	}
	for _, summary := range history.Attempts {
		if summary.IsOpen() || summary.Passed == nil {
			t.Errorf("attempt %d not finalized", summary.ID)
		}
	}
}

func TestStorageFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	diskFull := errors.New("disk full")

	attempt := env.start(t, "s1")
	env.publisher.ClearEvents()
	env.repo.FailWrites(diskFull)

	_, err := env.service.SubmitAnswer(ctx, attempt.ID, env.optionAnswer(0, true), "s1")
	if !errors.Is(err, ErrStorage) || !errors.Is(err, diskFull) {
		t.Errorf("SubmitAnswer() error = %v, want storage error", err)
	}
	if isDomainError(err) {
		t.Error("storage failure reported as a domain error")
	}

	if _, err := env.service.StartOrResume(ctx, &StartAttemptRequest{QuizID: env.quiz.ID}, "s2", nil); !errors.Is(err, ErrStorage) {
		t.Errorf("StartOrResume() error = %v, want storage error", err)
	}

	if got := env.publisher.GetPublishedEvents(); len(got) != 0 {
		t.Errorf("events published for failed writes: %+v", got)
	}

	env.repo.FailWrites(nil)
	env.answer(t, attempt.ID, "s1", 0, true)
}

func TestPublishFailureDoesNotFailOperation(t *testing.T) {
	env := newTestEnv(t, nil)
	env.publisher.FailWith(errors.New("broker down"))

	attempt := env.start(t, "s1")
	if _, err := env.service.Submit(context.Background(), attempt.ID, "s1"); err != nil {
		t.Errorf("Submit() error = %v", err)
	}
}

func TestStartOrResume_Concurrent(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	const workers = 16
	ids := make([]uint, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := env.service.StartOrResume(ctx, &StartAttemptRequest{QuizID: env.quiz.ID}, "s1", nil)
			errs[i] = err
			if resp != nil {
				ids[i] = resp.ID
			}
		}(i)
	}
	wg.Wait()

	for i := range ids {
		if errs[i] != nil {
			t.Fatalf("worker %d error = %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Errorf("worker %d got attempt %d, want %d", i, ids[i], ids[0])
		}
	}

	count, _ := env.repo.Attempt().CountAttempts(ctx, nil, "s1", env.quiz.ID)
	if count != 1 {
		t.Errorf("attempts = %d, want 1", count)
	}
	if n := len(env.publisher.EventsOfType(events.AttemptStarted)); n != 1 {
		t.Errorf("started events = %d, want 1", n)
	}
}

func TestEnforceExpiry(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()
	attempt := env.start(t, "s1")

	expired, err := env.service.EnforceExpiry(ctx, attempt.ID)
	if err != nil || expired {
		t.Fatalf("EnforceExpiry() = %v, %v before deadline", expired, err)
	}

	env.clock.Advance(time.Hour)
	if expired, err = env.service.EnforceExpiry(ctx, attempt.ID); err != nil || !expired {
		t.Fatalf("EnforceExpiry() = %v, %v after deadline", expired, err)
	}
	if expired, err = env.service.EnforceExpiry(ctx, attempt.ID); err != nil || expired {
		t.Errorf("EnforceExpiry() = %v, %v on a completed attempt", expired, err)
	}

	if _, err := env.service.EnforceExpiry(ctx, 999); !errors.Is(err, ErrAttemptNotFound) {
		t.Errorf("unknown attempt error = %v", err)
	}
}
