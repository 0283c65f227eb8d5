package user

import (
	"context"

	"github.com/google/uuid"

	"github.com/kislikjeka/agrovest/internal/platform/wallet"
)

// Repository defines the interface for user persistence operations
type Repository interface {
	// Create creates a new user
	Create(ctx context.Context, user *User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update updates a user
	Update(ctx context.Context, user *User) error

	// Exists checks if a user with the given email exists
	Exists(ctx context.Context, email string) (bool, error)
}

// Transactor runs fn inside one database transaction
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// WalletCreator opens the wallet of a newly registered user
type WalletCreator interface {
	Create(ctx context.Context, userID uuid.UUID) (*wallet.Wallet, error)
}

// DeletionGuard decides whether a user's money state allows deletion.
// It returns ErrUserHasHoldings (or a wrapped storage error) when it does not.
type DeletionGuard interface {
	CheckDeletable(ctx context.Context, userID uuid.UUID) error
}
