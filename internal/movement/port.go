package movement

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/agrovest/internal/ledger"
)

// ChargeStatus is the gateway's verdict on a charge
type ChargeStatus string

const (
	ChargeSucceeded ChargeStatus = "succeeded"
	ChargeFailed    ChargeStatus = "failed"
	ChargePending   ChargeStatus = "pending"
)

// ChargeRequest asks the gateway to start collecting a deposit
type ChargeRequest struct {
	Amount    decimal.Decimal
	Email     string
	UserID    uuid.UUID
	Reference string
}

// Checkout is the handle returned to the payer
type Checkout struct {
	CheckoutURL string `json:"checkout_url"`
	AccessCode  string `json:"access_code,omitempty"`
	Reference   string `json:"reference"`
}

// ChargeVerification is the typed result of verifying a charge. Nothing past
// the gateway adapter sees the provider's raw response.
type ChargeVerification struct {
	Status    ChargeStatus
	Amount    decimal.Decimal
	Reference string
	// UserID is the payer recorded when the charge was initiated, or
	// uuid.Nil when the provider did not echo it back
	UserID uuid.UUID
}

// Gateway talks to the external payment provider. VerifyCharge must be safe
// to call repeatedly with the same reference.
type Gateway interface {
	// InitiateCharge fails with ErrGatewayUnavailable
	InitiateCharge(ctx context.Context, req ChargeRequest) (*Checkout, error)
	// VerifyCharge fails with ErrVerificationUnavailable when the provider
	// cannot be reached; an unknown reference is a ChargeFailed result.
	VerifyCharge(ctx context.Context, reference string) (*ChargeVerification, error)
	// ResolveAccountName fails with ErrUnresolvedAccount
	ResolveAccountName(ctx context.Context, accountNumber, bankCode string) (string, error)
}

// Transactor runs fn inside one database transaction
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EntryCommitted is emitted for every ledger entry a committed workflow
// wrote or transitioned
type EntryCommitted struct {
	EntryID    uuid.UUID       `json:"entry_id"`
	UserID     uuid.UUID       `json:"user_id"`
	Kind       ledger.Kind     `json:"kind"`
	Status     ledger.Status   `json:"status"`
	Amount     decimal.Decimal `json:"amount"`
	Reference  string          `json:"reference,omitempty"`
	Workflow   string          `json:"workflow"`
	OccurredAt time.Time       `json:"occurred_at"`
}

// EventPublisher delivers committed-entry events. Delivery is best effort.
type EventPublisher interface {
	Publish(ctx context.Context, events ...EntryCommitted) error
}

// Metrics records workflow outcomes
type Metrics interface {
	ObserveWorkflow(workflow, outcome string, d time.Duration)
	AddAmount(workflow string, amount decimal.Decimal)
	ObserveReconcile(report *ReconcileReport)
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, ...EntryCommitted) error { return nil }

// NoopMetrics records nothing
type NoopMetrics struct{}

func (NoopMetrics) ObserveWorkflow(string, string, time.Duration) {}
func (NoopMetrics) AddAmount(string, decimal.Decimal)             {}
func (NoopMetrics) ObserveReconcile(*ReconcileReport)             {}
