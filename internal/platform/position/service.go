package position

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service is the position store used by the engine and the API
type Service struct {
	repo Repository
}

// NewService creates a new position service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create stores a new active position
func (s *Service) Create(ctx context.Context, in CreateInput) (*Position, error) {
	p, err := New(in)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create position: %w", err)
	}
	return p, nil
}

// Get retrieves a position by id
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Position, error) {
	return s.repo.Get(ctx, id)
}

// GetOwned retrieves a position and checks it belongs to userID
func (s *Service) GetOwned(ctx context.Context, id, userID uuid.UUID) (*Position, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, ErrAccessDenied
	}
	return p, nil
}

// ListByUser returns a user's positions newest-first
func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*Position, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListActive pages through active positions
func (s *Service) ListActive(ctx context.Context, filter ActiveFilter) ([]*Position, error) {
	if filter.Limit <= 0 {
		filter.Limit = 100
	}
	return s.repo.ListActive(ctx, filter)
}

// HasActive reports whether the user holds any active position
func (s *Service) HasActive(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := s.repo.CountActiveByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// MarkCompleted transitions active -> completed exactly once
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID) (*Position, error) {
	return s.repo.MarkCompleted(ctx, id)
}

// MarkCancelled transitions active -> cancelled
func (s *Service) MarkCancelled(ctx context.Context, id uuid.UUID) (*Position, error) {
	return s.repo.MarkCancelled(ctx, id)
}
