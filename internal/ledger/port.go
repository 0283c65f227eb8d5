package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for ledger persistence operations.
// Entries are never deleted; only the status of a pending entry changes.
type Repository interface {
	// Append stores a new entry. A reference that already exists yields
	// ErrDuplicateReference; uniqueness is enforced by the store itself.
	Append(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, id uuid.UUID) (*Entry, error)
	GetByReference(ctx context.Context, reference string) (*Entry, error)
	// Find returns entries newest-first
	Find(ctx context.Context, filter Filter) ([]*Entry, error)

	// UpdateStatus moves an entry from one status to another atomically.
	// When the entry is not in from, it returns ErrInvalidTransition.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to Status) (*Entry, error)

	// BalanceSum returns the reconciling sum for a user (see Entry.CountsTowardBalance)
	BalanceSum(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	CountPending(ctx context.Context, userID uuid.UUID) (int, error)
}
