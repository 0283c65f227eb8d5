package position

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for position persistence operations
type Repository interface {
	Create(ctx context.Context, position *Position) error
	Get(ctx context.Context, id uuid.UUID) (*Position, error)
	// ListByUser returns the user's positions newest-first
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*Position, error)
	ListActive(ctx context.Context, filter ActiveFilter) ([]*Position, error)
	CountActiveByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// MarkCompleted moves an active position to completed; any other
	// current status yields ErrAlreadyCompleted.
	MarkCompleted(ctx context.Context, id uuid.UUID) (*Position, error)
	// MarkCancelled moves an active position to cancelled; ErrNotActive otherwise.
	MarkCancelled(ctx context.Context, id uuid.UUID) (*Position, error)
}
