package repositories

import (
	"context"

	"vofo/internal/models"
)

// AccountRepository defines the interface for account data access.
type AccountRepository interface {
	// Create inserts a new account. It returns ErrConflict when the username is taken.
	Create(ctx context.Context, account *models.Account) error
	GetByUsername(ctx context.Context, username string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)
	// Delete removes the account together with its liked tracks as one unit.
	Delete(ctx context.Context, id string) error
}
