package offering

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle status of an offering
type Status string

const (
	StatusOpen    Status = "open"
	StatusSoldOut Status = "sold_out"
	StatusClosed  Status = "closed"
)

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusSoldOut, StatusClosed:
		return true
	}
	return false
}

// Offering is a unit-priced, capacity-limited investment product
type Offering struct {
	ID             uuid.UUID       `json:"id"`
	Title          string          `json:"title"`
	Description    string          `json:"description"`
	Location       string          `json:"location"`
	ImageURL       string          `json:"image_url"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
	YieldRate      decimal.Decimal `json:"yield_rate"` // percent over the full term
	TermMonths     int             `json:"term_months"`
	TotalUnits     int             `json:"total_units"`
	RemainingUnits int             `json:"remaining_units"`
	Investors      int             `json:"investors"`
	Status         Status          `json:"status"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsOpen reports whether new investments are accepted
func (o *Offering) IsOpen() bool {
	return o.Status == StatusOpen
}

// Cost returns the price of units at the current unit price
func (o *Offering) Cost(units int) decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(int64(units)))
}

// CheckReservable runs the same checks the store applies when reserving
func (o *Offering) CheckReservable(units int) error {
	if units < 1 {
		return ErrInvalidUnits
	}
	if !o.IsOpen() {
		return ErrNotOpen
	}
	if units > o.RemainingUnits {
		return ErrInsufficientCapacity
	}
	return nil
}

// CreateInput holds the fields required to list a new offering.
// Every business field is mandatory; nothing is defaulted.
type CreateInput struct {
	Title       string
	Description string
	Location    string
	ImageURL    string
	UnitPrice   decimal.Decimal
	YieldRate   decimal.Decimal
	TermMonths  int
	TotalUnits  int
}

// Validate checks that all required fields are present and positive
func (in *CreateInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrMissingTitle
	}
	if len(in.Title) > 200 {
		return ErrTitleTooLong
	}
	if !in.UnitPrice.IsPositive() {
		return ErrInvalidUnitPrice
	}
	if !in.UnitPrice.Equal(in.UnitPrice.Round(2)) {
		return ErrUnitPricePrecision
	}
	if !in.YieldRate.IsPositive() {
		return ErrInvalidYieldRate
	}
	if in.TermMonths <= 0 {
		return ErrInvalidTerm
	}
	if in.TotalUnits <= 0 {
		return ErrInvalidCapacity
	}
	return nil
}

// NewOffering builds an open offering with full remaining capacity
func NewOffering(in CreateInput) (*Offering, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Offering{
		ID:             uuid.New(),
		Title:          strings.TrimSpace(in.Title),
		Description:    in.Description,
		Location:       in.Location,
		ImageURL:       in.ImageURL,
		UnitPrice:      in.UnitPrice,
		YieldRate:      in.YieldRate,
		TermMonths:     in.TermMonths,
		TotalUnits:     in.TotalUnits,
		RemainingUnits: in.TotalUnits,
		Status:         StatusOpen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ListFilter narrows catalog listings
type ListFilter struct {
	Status *Status
}

// CacheKey identifies the listing in the read cache
func (f ListFilter) CacheKey() string {
	if f.Status == nil {
		return "all"
	}
	return string(*f.Status)
}
