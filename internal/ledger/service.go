package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service is the ledger entry store used by the money-movement engine.
// It validates entries before they reach the repository and enforces the
// pending -> success|failed lifecycle.
type Service struct {
	repo Repository
}

// NewService creates a new ledger service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Append validates and stores a new entry, returning its id
func (s *Service) Append(ctx context.Context, entry *Entry) (uuid.UUID, error) {
	if err := entry.Validate(); err != nil {
		return uuid.Nil, err
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	if err := s.repo.Append(ctx, entry); err != nil {
		return uuid.Nil, fmt.Errorf("failed to append ledger entry: %w", err)
	}
	return entry.ID, nil
}

// Get retrieves an entry by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	return s.repo.Get(ctx, id)
}

// FindByReference retrieves an entry by its idempotency reference.
// Returns (nil, nil) when no entry carries the reference.
func (s *Service) FindByReference(ctx context.Context, reference string) (*Entry, error) {
	if reference == "" {
		return nil, ErrEmptyReference
	}
	entry, err := s.repo.GetByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up reference: %w", err)
	}
	return entry, nil
}

// Find lists entries newest-first
func (s *Service) Find(ctx context.Context, filter Filter) ([]*Entry, error) {
	if filter.Kind != nil && !filter.Kind.IsValid() {
		return nil, ErrInvalidKind
	}
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, ErrInvalidStatus
	}
	return s.repo.Find(ctx, filter.Normalize())
}

// History lists one user's entries newest-first
func (s *Service) History(ctx context.Context, userID uuid.UUID, filter Filter) ([]*Entry, error) {
	filter.UserID = &userID
	return s.Find(ctx, filter)
}

// SetStatus moves a pending entry to success or failed.
// Any other transition returns ErrInvalidTransition.
func (s *Service) SetStatus(ctx context.Context, id uuid.UUID, next Status) (*Entry, error) {
	if !StatusPending.CanTransition(next) {
		return nil, ErrInvalidTransition
	}

	entry, err := s.repo.UpdateStatus(ctx, id, StatusPending, next)
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// BalanceSum returns the reconciling ledger sum for a user
func (s *Service) BalanceSum(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	return s.repo.BalanceSum(ctx, userID)
}

// HasPending reports whether the user has any pending entry
func (s *Service) HasPending(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := s.repo.CountPending(ctx, userID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
