package wallet

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service provides the wallet store operations used by the engine
type Service struct {
	repo Repository
}

// NewService creates a new wallet service
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create initializes a zero balance for the user
func (s *Service) Create(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	if userID == uuid.Nil {
		return nil, ErrInvalidUserID
	}

	w := New(userID)
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Get retrieves the wallet of a user
func (s *Service) Get(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	return s.repo.GetByUserID(ctx, userID)
}

// Lock reads the wallet and keeps it locked for the rest of the transaction
func (s *Service) Lock(ctx context.Context, userID uuid.UUID) (*Wallet, error) {
	return s.repo.GetForUpdate(ctx, userID)
}

// GetBalance returns the current spendable balance
func (s *Service) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	w, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	return w.Balance, nil
}

// Adjust applies a signed delta and returns the new balance
func (s *Service) Adjust(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidateDelta(userID, delta); err != nil {
		return decimal.Zero, err
	}
	return s.repo.Adjust(ctx, userID, delta)
}

// List pages through all wallets
func (s *Service) List(ctx context.Context, limit, offset int) ([]*Wallet, error) {
	return s.repo.List(ctx, limit, offset)
}
