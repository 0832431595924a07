package services

import (
	"time"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// DenialReason is the user-facing reason a start request was refused
type DenialReason string

const (
	DenialNotActive     DenialReason = "not_active"
	DenialNotYetOpen    DenialReason = "not_yet_open"
	DenialClosed        DenialReason = "closed"
	DenialQuotaExceeded DenialReason = "quota_exceeded"
)

// Decision is the outcome of the availability and quota policy
type Decision struct {
	Allowed bool
	Reason  DenialReason
}

func allow() Decision {
	return Decision{Allowed: true}
}

func deny(reason DenialReason) Decision {
	return Decision{Reason: reason}
}

// Err converts a denial into its domain error, nil when allowed
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	switch d.Reason {
	case DenialNotActive:
		return ErrQuizNotActive
	case DenialNotYetOpen:
		return ErrQuizNotYetOpen
	case DenialClosed:
		return ErrQuizClosed
	default:
		return ErrAttemptLimitExceeded
	}
}

// CanStartOrResume decides whether the student may start (or resume) an
// attempt at now. attemptCount counts every attempt, open or completed; an open
// attempt bypasses the quota because quota is consumed at creation.
// The window bounds are inclusive.
func CanStartOrResume(quiz *models.Quiz, attemptCount int64, hasOpenAttempt bool, now time.Time) Decision {
	if !quiz.IsActive {
		return deny(DenialNotActive)
	}
	if quiz.StartTime != nil && now.Before(*quiz.StartTime) {
		return deny(DenialNotYetOpen)
	}
	if quiz.EndTime != nil && now.After(*quiz.EndTime) {
		return deny(DenialClosed)
	}
	if hasOpenAttempt {
		return allow()
	}
	if attemptCount >= int64(quiz.MaxAttempts) {
		return deny(DenialQuotaExceeded)
	}
	return allow()
}
