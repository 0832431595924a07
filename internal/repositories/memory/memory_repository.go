// Package memory is an in-process catalog and ledger. It backs the "memory"
// storage driver and the service tests.
package memory

import (
	"context"
	"sync"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

// store holds every row. One mutex guards it; a transaction holds the mutex
// from begin to commit, which gives the same single-writer guarantees the
// postgres row and advisory locks give.
type store struct {
	mu sync.Mutex

	quizzes  map[uint]*models.Quiz
	attempts map[uint]*models.Attempt
	answers  map[uint]*models.Answer

	nextQuizID     uint
	nextQuestionID uint
	nextOptionID   uint
	nextAttemptID  uint
	nextAnswerID   uint

	closed   bool
	writeErr error
}

type snapshot struct {
	quizzes  map[uint]*models.Quiz
	attempts map[uint]*models.Attempt
	answers  map[uint]*models.Answer

	nextQuizID     uint
	nextQuestionID uint
	nextOptionID   uint
	nextAttemptID  uint
	nextAnswerID   uint
}

func (s *store) snapshot() snapshot {
	snap := snapshot{
		quizzes:        make(map[uint]*models.Quiz, len(s.quizzes)),
		attempts:       make(map[uint]*models.Attempt, len(s.attempts)),
		answers:        make(map[uint]*models.Answer, len(s.answers)),
		nextQuizID:     s.nextQuizID,
		nextQuestionID: s.nextQuestionID,
		nextOptionID:   s.nextOptionID,
		nextAttemptID:  s.nextAttemptID,
		nextAnswerID:   s.nextAnswerID,
	}
	for id, q := range s.quizzes {
		snap.quizzes[id] = copyQuiz(q)
	}
	for id, a := range s.attempts {
		snap.attempts[id] = copyAttempt(a)
	}
	for id, a := range s.answers {
		snap.answers[id] = copyAnswer(a)
	}
	return snap
}

func (s *store) restore(snap snapshot) {
	s.quizzes = snap.quizzes
	s.attempts = snap.attempts
	s.answers = snap.answers
	s.nextQuizID = snap.nextQuizID
	s.nextQuestionID = snap.nextQuestionID
	s.nextOptionID = snap.nextOptionID
	s.nextAttemptID = snap.nextAttemptID
	s.nextAnswerID = snap.nextAnswerID
}

// MemoryRepository implements repositories.Repository for tests and
// single-process local runs. Every operation holds one store-wide lock and
// every transaction copies the whole store so it can roll back, making writes
// serial and O(rows). Config refuses it in production.
type MemoryRepository struct {
	st   *store
	inTx bool

	quiz    *QuizMemory
	attempt *AttemptMemory
	answer  *AnswerMemory
}

// NewMemoryRepository creates an empty repository
func NewMemoryRepository() *MemoryRepository {
	st := &store{
		quizzes:  make(map[uint]*models.Quiz),
		attempts: make(map[uint]*models.Attempt),
		answers:  make(map[uint]*models.Answer),
	}
	return newRepository(st, false)
}

func newRepository(st *store, inTx bool) *MemoryRepository {
	return &MemoryRepository{
		st:      st,
		inTx:    inTx,
		quiz:    &QuizMemory{st: st, inTx: inTx},
		attempt: &AttemptMemory{st: st, inTx: inTx},
		answer:  &AnswerMemory{st: st, inTx: inTx},
	}
}

func (r *MemoryRepository) Quiz() repositories.QuizRepository {
	return r.quiz
}

func (r *MemoryRepository) Attempt() repositories.AttemptRepository {
	return r.attempt
}

func (r *MemoryRepository) Answer() repositories.AnswerRepository {
	return r.answer
}

// WithTransaction runs fn with the store locked. Any error returned by fn, or a
// panic inside it, rolls every change back.
func (r *MemoryRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) (err error) {
	if r.inTx {
		return fn(r)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.st.mu.Lock()
	defer r.st.mu.Unlock()

	snap := r.st.snapshot()
	defer func() {
		if p := recover(); p != nil {
			r.st.restore(snap)
			panic(p)
		}
		if err != nil {
			r.st.restore(snap)
		}
	}()

	return fn(newRepository(r.st, true))
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	r.st.lock(r.inTx)
	defer r.st.unlock(r.inTx)
	if r.st.closed {
		return errClosed
	}
	return ctx.Err()
}

func (r *MemoryRepository) Close() error {
	r.st.lock(r.inTx)
	defer r.st.unlock(r.inTx)
	r.st.closed = true
	return nil
}

// lock is a no-op inside a transaction, where the mutex is already held
func (s *store) lock(inTx bool) {
	if !inTx {
		s.mu.Lock()
	}
}

func (s *store) unlock(inTx bool) {
	if !inTx {
		s.mu.Unlock()
	}
}
