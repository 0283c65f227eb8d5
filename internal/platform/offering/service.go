package offering

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service is the offering catalog
type Service struct {
	repo  Repository
	cache Cache
}

// NewService creates a new catalog service. cache may be nil.
func NewService(repo Repository, cache Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// Create validates and lists a new open offering
func (s *Service) Create(ctx context.Context, in CreateInput) (*Offering, error) {
	o, err := NewOffering(in)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, o); err != nil {
		return nil, fmt.Errorf("failed to create offering: %w", err)
	}

	s.Forget(ctx, o.ID)
	return o, nil
}

// Get retrieves an offering, reading through the cache
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Offering, error) {
	// Layer 1: cache
	if s.cache != nil {
		o, found, err := s.cache.Get(ctx, id)
		if err == nil && found {
			return o, nil
		}
	}

	// Layer 2: store
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Set(ctx, o)
	}
	return o, nil
}

// GetFresh reads straight from the store. Used inside money-movement
// transactions where a cached copy is not good enough.
func (s *Service) GetFresh(ctx context.Context, id uuid.UUID) (*Offering, error) {
	return s.repo.Get(ctx, id)
}

// List returns offerings newest-first, reading through the cache
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Offering, error) {
	if filter.Status != nil && !filter.Status.IsValid() {
		return nil, ErrInvalidStatus
	}

	key := filter.CacheKey()
	if s.cache != nil {
		list, found, err := s.cache.GetList(ctx, key)
		if err == nil && found {
			return list, nil
		}
	}

	list, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list offerings: %w", err)
	}

	if s.cache != nil {
		_ = s.cache.SetList(ctx, key, list)
	}
	return list, nil
}

// ReserveUnits takes units out of an open offering's remaining capacity.
// The cache is not touched here; callers running inside a transaction call
// Forget once it commits.
func (s *Service) ReserveUnits(ctx context.Context, id uuid.UUID, units int) (*Offering, error) {
	if units < 1 {
		return nil, ErrInvalidUnits
	}
	return s.repo.ReserveUnits(ctx, id, units)
}

// Close stops new investments in an offering. Existing positions are unaffected.
func (s *Service) Close(ctx context.Context, id uuid.UUID) (*Offering, error) {
	o, err := s.repo.Close(ctx, id)
	if err != nil {
		return nil, err
	}

	s.Forget(ctx, id)
	return o, nil
}

// Forget drops cached copies of the offering and all listings
func (s *Service) Forget(ctx context.Context, id uuid.UUID) {
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, id)
	}
}
