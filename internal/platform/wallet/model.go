package wallet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Wallet holds the spendable balance of exactly one user
type Wallet struct {
	UserID    uuid.UUID       `json:"user_id" db:"user_id"`
	Balance   decimal.Decimal `json:"balance" db:"balance"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt time.Time       `json:"updated_at" db:"updated_at"`
}

// New returns a zero-balance wallet for the user
func New(userID uuid.UUID) *Wallet {
	now := time.Now().UTC()
	return &Wallet{
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CanCover reports whether the balance can absorb a debit of amount
func (w *Wallet) CanCover(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}

// ValidateDelta checks a balance adjustment before it reaches the store
func ValidateDelta(userID uuid.UUID, delta decimal.Decimal) error {
	if userID == uuid.Nil {
		return ErrInvalidUserID
	}
	if delta.IsZero() {
		return ErrZeroDelta
	}
	if !delta.Equal(delta.Round(2)) {
		return ErrDeltaPrecision
	}
	return nil
}
