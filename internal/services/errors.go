package services

import (
	"errors"
	"fmt"

	"github.com/SAP-F-2025/attempt-engine/internal/validator"
)

// Domain errors. Start-time denials map one-to-one to DenialReason.
var (
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrQuizNotActive        = errors.New("quiz is not active")
	ErrQuizNotYetOpen       = errors.New("quiz is not open yet")
	ErrQuizClosed           = errors.New("quiz is closed")
	ErrAttemptLimitExceeded = errors.New("maximum attempts exceeded")

	ErrAttemptNotFound         = errors.New("attempt not found")
	ErrAttemptAlreadyCompleted = errors.New("attempt already completed")
	ErrAttemptTimeExpired      = errors.New("attempt time expired")
	ErrInvalidQuestion         = errors.New("question does not belong to the attempt's quiz")

	// ErrStorage matches every *StorageError
	ErrStorage = errors.New("storage error")
)

// ValidationErrors is returned when a request DTO is rejected
type ValidationErrors = validator.ValidationErrors

// PermissionError is returned when the caller does not own the resource
type PermissionError struct {
	UserID     string
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func NewPermissionError(userID string, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %s cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}

// StorageError wraps a ledger or catalog failure. It is never a domain error.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

// storageError wraps err unless it is nil or already wrapped
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Err: err}
}

// isDomainError reports errors that must pass through the transaction
// boundary unchanged
func isDomainError(err error) bool {
	var verrs ValidationErrors
	return errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrQuizNotActive) ||
		errors.Is(err, ErrQuizNotYetOpen) ||
		errors.Is(err, ErrQuizClosed) ||
		errors.Is(err, ErrAttemptLimitExceeded) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrAttemptAlreadyCompleted) ||
		errors.Is(err, ErrAttemptTimeExpired) ||
		errors.Is(err, ErrInvalidQuestion) ||
		IsPermissionError(err) ||
		errors.As(err, &verrs)
}
