package position

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/agrovest/pkg/money"
)

// Status is the lifecycle status of a position
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// Position is a user's stake in one offering. CommittedAmount, YieldRate and
// ExpectedPayout are snapshots taken at purchase and never change.
type Position struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	OfferingID      uuid.UUID       `json:"offering_id"`
	Units           int             `json:"units"`
	CommittedAmount decimal.Decimal `json:"committed_amount"`
	YieldRate       decimal.Decimal `json:"yield_rate"`
	ExpectedPayout  decimal.Decimal `json:"expected_payout"`
	MaturityDate    time.Time       `json:"maturity_date"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
}

// ExpectedPayout returns committed + committed * rate / 100, rounded to cents
func ExpectedPayout(committed, yieldRate decimal.Decimal) decimal.Decimal {
	return money.Round(committed.Add(committed.Mul(yieldRate).Div(hundred)))
}

// MaturityDate returns the date a position bought at t matures
func MaturityDate(t time.Time, termMonths int) time.Time {
	return t.AddDate(0, termMonths, 0)
}

// CreateInput carries the purchase-time snapshot of a new position
type CreateInput struct {
	UserID          uuid.UUID
	OfferingID      uuid.UUID
	Units           int
	CommittedAmount decimal.Decimal
	YieldRate       decimal.Decimal
	MaturityDate    time.Time
}

// Validate checks the snapshot before a position is created
func (in *CreateInput) Validate() error {
	if in.UserID == uuid.Nil {
		return ErrInvalidUserID
	}
	if in.OfferingID == uuid.Nil {
		return ErrInvalidOfferingID
	}
	if in.Units < 1 {
		return ErrInvalidUnits
	}
	if !in.CommittedAmount.IsPositive() {
		return ErrInvalidCommittedAmount
	}
	if in.YieldRate.IsNegative() {
		return ErrInvalidYieldRate
	}
	if in.MaturityDate.IsZero() {
		return ErrMissingMaturity
	}
	return nil
}

// New builds an active position, computing the expected payout once
func New(in CreateInput) (*Position, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Position{
		ID:              uuid.New(),
		UserID:          in.UserID,
		OfferingID:      in.OfferingID,
		Units:           in.Units,
		CommittedAmount: in.CommittedAmount,
		YieldRate:       in.YieldRate,
		ExpectedPayout:  ExpectedPayout(in.CommittedAmount, in.YieldRate),
		MaturityDate:    in.MaturityDate.UTC(),
		Status:          StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// IsActive reports whether the position can still be paid out
func (p *Position) IsActive() bool {
	return p.Status == StatusActive
}

// IsMatured is informational only; maturity never triggers a payout
func (p *Position) IsMatured(now time.Time) bool {
	return !now.Before(p.MaturityDate)
}

// Yield returns the profit part of the expected payout
func (p *Position) Yield() decimal.Decimal {
	return p.ExpectedPayout.Sub(p.CommittedAmount)
}

// ActiveFilter narrows scans over active positions
type ActiveFilter struct {
	CreatedBefore *time.Time
	Limit         int
	Offset        int
}
