package repositories

import (
	"context"

	"github.com/SAP-F-2025/attempt-engine/internal/models"
)

// UserRepository resolves identities from the identity provider. The engine
// does not own user data; it only needs an id and a role.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}
