package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/clock"
	"github.com/SAP-F-2025/attempt-engine/internal/repositories"
)

const (
	DefaultSweepBatchSize = 100

	// No quiz is shorter than a minute, so younger attempts are never expired
	sweepMinAge = time.Minute
)

// ExpirySweeper auto-submits open attempts nobody revisits after their
// deadline. It runs the same enforcement as the request path.
type ExpirySweeper struct {
	repo      repositories.Repository
	attempts  AttemptService
	clock     clock.Clock
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewExpirySweeper(repo repositories.Repository, attempts AttemptService, clk clock.Clock, logger *slog.Logger, interval time.Duration, batchSize int) *ExpirySweeper {
	if batchSize <= 0 {
		batchSize = DefaultSweepBatchSize
	}
	return &ExpirySweeper{
		repo:      repo,
		attempts:  attempts,
		clock:     clk,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Enabled is false when the sweep interval is zero
func (s *ExpirySweeper) Enabled() bool {
	return s != nil && s.interval > 0
}

// Run sweeps every interval until ctx is cancelled
func (s *ExpirySweeper) Run(ctx context.Context) {
	if !s.Enabled() {
		return
	}

	s.logger.Info("Expiry sweeper started", "interval", s.interval, "batch_size", s.batchSize)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Expiry sweeper stopped")
			return
		case <-ticker.C:
			count, err := s.SweepOnce(ctx)
			if err != nil {
				s.logger.Error("Expiry sweep failed", "error", err)
				continue
			}
			if count > 0 {
				s.logger.Info("Expiry sweep completed", "auto_submitted", count)
			}
		}
	}
}

// SweepOnce enforces expiry on every open attempt old enough to be expired
// and returns how many were auto-submitted
func (s *ExpirySweeper) SweepOnce(ctx context.Context) (int, error) {
	cutoff := s.clock.Now().Add(-sweepMinAge)
	completed := 0
	var lastID uint

	for {
		if err := ctx.Err(); err != nil {
			return completed, err
		}

		batch, err := s.repo.Attempt().List(ctx, nil, repositories.AttemptFilters{
			OpenOnly:      true,
			StartedBefore: &cutoff,
			AfterID:       lastID,
			Limit:         s.batchSize,
		})
		if err != nil {
			return completed, storageError("list open attempts", err)
		}

		closedInBatch := 0
		for _, attempt := range batch {
			lastID = attempt.ID
			expired, err := s.attempts.EnforceExpiry(ctx, attempt.ID)
			if err != nil {
				s.logger.Error("Failed to enforce expiry",
					"attempt_id", attempt.ID,
					"error", err)
				continue
			}
			if expired {
				closedInBatch++
			}
		}
		completed += closedInBatch

		if len(batch) < s.batchSize {
			return completed, nil
		}
	}
}
