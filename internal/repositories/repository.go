package repositories

import "context"

// Repository aggregates the catalog and the attempt ledger
type Repository interface {
	// Quiz catalog (read-only)
	Quiz() QuizRepository

	// Attempt ledger
	Attempt() AttemptRepository
	Answer() AnswerRepository

	// Transaction support. Repositories handed to fn share one transaction;
	// calling WithTransaction on them again joins the same transaction.
	WithTransaction(ctx context.Context, fn func(Repository) error) error

	// Health check
	Ping(ctx context.Context) error

	// Close connections
	Close() error
}

// RepositoryManager interface for managing repository lifecycle
type RepositoryManager interface {
	// Initialize repositories with database connections
	Initialize() error

	// Get repository instance
	GetRepository() Repository

	// Health check for all repositories
	HealthCheck(ctx context.Context) error

	// Graceful shutdown
	Shutdown(ctx context.Context) error
}
