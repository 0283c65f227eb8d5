package offering

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for offering persistence operations
type Repository interface {
	Create(ctx context.Context, offering *Offering) error
	Get(ctx context.Context, id uuid.UUID) (*Offering, error)
	List(ctx context.Context, filter ListFilter) ([]*Offering, error)

	// ReserveUnits decrements remaining capacity as one conditional update,
	// flipping the status to sold_out when it reaches zero. Fails with
	// ErrNotOpen or ErrInsufficientCapacity without changing anything.
	ReserveUnits(ctx context.Context, id uuid.UUID, units int) (*Offering, error)

	// Close moves an open offering to closed
	Close(ctx context.Context, id uuid.UUID) (*Offering, error)
}

// Cache is an optional read-through cache for the catalog.
// Cache errors never fail a read; the repository is always authoritative.
type Cache interface {
	Get(ctx context.Context, id uuid.UUID) (*Offering, bool, error)
	Set(ctx context.Context, offering *Offering) error
	GetList(ctx context.Context, key string) ([]*Offering, bool, error)
	SetList(ctx context.Context, key string, offerings []*Offering) error
	// Invalidate drops the offering and every cached listing
	Invalidate(ctx context.Context, id uuid.UUID) error
}
