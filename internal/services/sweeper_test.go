package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/events"
)

func TestExpirySweeper_SweepOnce(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	s1 := env.start(t, "s1")
	s2 := env.start(t, "s2")
	env.clock.Advance(5 * time.Minute)
	s3 := env.start(t, "s3")
	env.clock.Advance(6 * time.Minute)
	s4 := env.start(t, "s4")

	// batch size 1 walks the listing one attempt at a time
	sweeper := NewExpirySweeper(env.repo, env.service, env.clock, env.logger, time.Minute, 1)
	count, err := sweeper.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce() error = %v", err)
	}
	if count != 2 {
		t.Errorf("SweepOnce() = %d, want 2", count)
	}

	for _, tc := range []struct {
		id       uint
		wantOpen bool
	}{
		{s1.ID, false},
		{s2.ID, false},
		{s3.ID, true},
		{s4.ID, true},
	} {
		stored, err := env.repo.Attempt().GetByID(ctx, nil, tc.id)
		if err != nil {
			t.Fatalf("GetByID(%d) error = %v", tc.id, err)
		}
		if stored.IsOpen() != tc.wantOpen {
			t.Errorf("attempt %d open = %v, want %v", tc.id, stored.IsOpen(), tc.wantOpen)
		}
	}

	for _, e := range env.publisher.EventsOfType(events.AttemptCompleted) {
		if e.Data.(events.AttemptCompletedData).Reason != events.ReasonExpired {
			t.Errorf("sweeper completion reason = %v", e.Data)
		}
	}

	if count, _ := sweeper.SweepOnce(ctx); count != 0 {
		t.Errorf("second sweep = %d, want 0", count)
	}
}

// interleavedService runs before once, ahead of the first expiry check, to
// stand in for a request that lands between the sweeper's list and its checks
type interleavedService struct {
	AttemptService
	before func()
	once   sync.Once
}

func (s *interleavedService) EnforceExpiry(ctx context.Context, attemptID uint) (bool, error) {
	s.once.Do(s.before)
	return s.AttemptService.EnforceExpiry(ctx, attemptID)
}

func TestExpirySweeper_ConcurrentSubmitDoesNotSkip(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	s1 := env.start(t, "s1")
	s2 := env.start(t, "s2")
	s3 := env.start(t, "s3")
	env.clock.Advance(11 * time.Minute)

	attempts := &interleavedService{AttemptService: env.service, before: func() {
		if _, err := env.service.Submit(ctx, s1.ID, "s1"); err != nil {
			t.Errorf("Submit() error = %v", err)
		}
	}}
	sweeper := NewExpirySweeper(env.repo, attempts, env.clock, env.logger, time.Minute, 1)

	count, err := sweeper.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("SweepOnce() error = %v", err)
	}
	if count != 2 {
		t.Errorf("SweepOnce() = %d, want 2", count)
	}

	for _, id := range []uint{s1.ID, s2.ID, s3.ID} {
		stored, err := env.repo.Attempt().GetByID(ctx, nil, id)
		if err != nil {
			t.Fatalf("GetByID(%d) error = %v", id, err)
		}
		if stored.IsOpen() {
			t.Errorf("attempt %d still open after sweep", id)
		}
	}
}

func TestExpirySweeper_Run(t *testing.T) {
	env := newTestEnv(t, nil)

	disabled := NewExpirySweeper(env.repo, env.service, env.clock, env.logger, 0, 0)
	if disabled.Enabled() {
		t.Error("zero interval must disable the sweeper")
	}
	disabled.Run(context.Background())

	attempt := env.start(t, "s1")
	env.clock.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	sweeper := NewExpirySweeper(env.repo, env.service, env.clock, env.logger, 5*time.Millisecond, 10)
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		stored, _ := env.repo.Attempt().GetByID(context.Background(), nil, attempt.ID)
		if !stored.IsOpen() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	stored, _ := env.repo.Attempt().GetByID(context.Background(), nil, attempt.ID)
	if stored.IsOpen() {
		t.Error("Run() did not auto-submit the expired attempt")
	}
}
