package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind identifies what kind of money movement an entry records
type Kind string

const (
	KindDeposit     Kind = "deposit"
	KindWithdrawal  Kind = "withdrawal"
	KindInvestment  Kind = "investment"
	KindYieldPayout Kind = "yield_payout"
)

// IsValid checks if the kind is known
func (k Kind) IsValid() bool {
	switch k {
	case KindDeposit, KindWithdrawal, KindInvestment, KindYieldPayout:
		return true
	}
	return false
}

// Sign returns the sign every amount of this kind must carry:
// +1 for money entering the wallet, -1 for money leaving it.
func (k Kind) Sign() int {
	switch k {
	case KindDeposit, KindYieldPayout:
		return 1
	case KindWithdrawal, KindInvestment:
		return -1
	}
	return 0
}

// Label returns a human-readable label
func (k Kind) Label() string {
	switch k {
	case KindDeposit:
		return "Deposit"
	case KindWithdrawal:
		return "Withdrawal"
	case KindInvestment:
		return "Investment"
	case KindYieldPayout:
		return "Yield Payout"
	}
	return string(k)
}

// Status is the lifecycle status of an entry
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// IsValid checks if the status is known
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// CanTransition reports whether an entry may move from s to next.
// Only pending entries move, and only to a terminal status.
func (s Status) CanTransition(next Status) bool {
	return s == StatusPending && next.IsTerminal()
}

// Reference prefixes. Engine-generated references are deterministic per
// source record so that re-running a workflow tail can never write twice.
const (
	RefPrefixFunding    = "FND-"
	RefPrefixWithdrawal = "WDR-"
	RefPrefixInvestment = "INV-"
	RefPrefixYield      = "YLD-"
	RefPrefixRefund     = "REF-"
)

// InvestmentReference is the reference of the debit entry for a position
func InvestmentReference(positionID uuid.UUID) string {
	return RefPrefixInvestment + positionID.String()
}

// YieldReference is the reference of the payout entry for a position
func YieldReference(positionID uuid.UUID) string {
	return RefPrefixYield + positionID.String()
}

// RefundReference is the reference of the reversal entry for a rejected withdrawal
func RefundReference(withdrawalID uuid.UUID) string {
	return RefPrefixRefund + withdrawalID.String()
}

// Entry is one record in the append-only money log.
// Amount is signed: see Kind.Sign.
type Entry struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Amount      decimal.Decimal
	Kind        Kind
	Status      Status
	Reference   *string
	Description string
	Metadata    map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewEntry builds an entry with a fresh id. The sign of amount is taken from
// kind, so callers pass the absolute value.
func NewEntry(userID uuid.UUID, kind Kind, status Status, amount decimal.Decimal, reference, description string) *Entry {
	now := time.Now().UTC()
	e := &Entry{
		ID:          uuid.New(),
		UserID:      userID,
		Amount:      amount.Abs().Mul(decimal.NewFromInt(int64(kind.Sign()))),
		Kind:        kind,
		Status:      status,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if reference != "" {
		ref := reference
		e.Reference = &ref
	}
	return e
}

// Validate checks the entry before it is appended
func (e *Entry) Validate() error {
	if e.UserID == uuid.Nil {
		return ErrMissingUser
	}
	if !e.Kind.IsValid() {
		return ErrInvalidKind
	}
	if !e.Status.IsValid() {
		return ErrInvalidStatus
	}
	if e.Amount.IsZero() {
		return ErrZeroAmount
	}
	if e.Amount.Sign() != e.Kind.Sign() {
		return fmt.Errorf("%w: %s amount %s", ErrAmountSign, e.Kind, e.Amount)
	}
	if !e.Amount.Equal(e.Amount.Round(2)) {
		return ErrAmountPrecision
	}
	if e.Reference != nil && strings.TrimSpace(*e.Reference) == "" {
		return ErrEmptyReference
	}
	return nil
}

// ReferenceValue returns the reference or an empty string
func (e *Entry) ReferenceValue() string {
	if e.Reference == nil {
		return ""
	}
	return *e.Reference
}

// Magnitude returns the unsigned amount
func (e *Entry) Magnitude() decimal.Decimal {
	return e.Amount.Abs()
}

// CountsTowardBalance reports whether the entry contributes to the
// reconciling wallet sum. Withdrawals count in every status because their
// debit happens at request time and is reversed only by a refund entry.
func (e *Entry) CountsTowardBalance() bool {
	return e.Status == StatusSuccess || e.Kind == KindWithdrawal
}

// Filter narrows entry listings
type Filter struct {
	UserID *uuid.UUID
	Kind   *Kind
	Status *Status
	Limit  int
	Offset int
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// Normalize clamps paging values
func (f Filter) Normalize() Filter {
	if f.Limit <= 0 {
		f.Limit = DefaultPageSize
	}
	if f.Limit > MaxPageSize {
		f.Limit = MaxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}
