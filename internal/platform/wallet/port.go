package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for wallet data access
type Repository interface {
	// Create stores a zero-balance wallet; ErrWalletExists if the user has one
	Create(ctx context.Context, wallet *Wallet) error

	// GetByUserID retrieves the wallet of a user
	GetByUserID(ctx context.Context, userID uuid.UUID) (*Wallet, error)

	// GetForUpdate reads the wallet and holds its row lock until the
	// surrounding transaction ends
	GetForUpdate(ctx context.Context, userID uuid.UUID) (*Wallet, error)

	// Adjust adds delta to the balance as one conditional update and returns
	// the new balance. A debit that would leave the balance negative fails
	// with ErrInsufficientFunds and changes nothing.
	Adjust(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)

	// List returns wallets ordered by user id, for reconciliation scans
	List(ctx context.Context, limit, offset int) ([]*Wallet, error)
}
