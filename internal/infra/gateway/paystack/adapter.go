package paystack

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kislikjeka/agrovest/internal/movement"
	"github.com/kislikjeka/agrovest/pkg/money"
)

const metaUserID = "user_id"

// GatewayAdapter adapts the Paystack client to the movement.Gateway interface
type GatewayAdapter struct {
	client      *Client
	currency    string
	callbackURL string
}

// Compile-time check that GatewayAdapter implements movement.Gateway
var _ movement.Gateway = (*GatewayAdapter)(nil)

// NewGatewayAdapter creates a new Paystack gateway adapter
func NewGatewayAdapter(client *Client, currency, callbackURL string) *GatewayAdapter {
	return &GatewayAdapter{
		client:      client,
		currency:    strings.ToUpper(currency),
		callbackURL: callbackURL,
	}
}

// InitiateCharge initializes a Paystack transaction under the engine's reference
func (a *GatewayAdapter) InitiateCharge(ctx context.Context, req movement.ChargeRequest) (*movement.Checkout, error) {
	data, err := a.client.InitializeTransaction(ctx, InitializeRequest{
		Email:       req.Email,
		Amount:      money.ToMinorUnits(req.Amount),
		Reference:   req.Reference,
		Currency:    a.currency,
		CallbackURL: a.callbackURL,
		Metadata:    map[string]string{metaUserID: req.UserID.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", movement.ErrGatewayUnavailable, err)
	}

	reference := data.Reference
	if reference == "" {
		reference = req.Reference
	}
	return &movement.Checkout{
		CheckoutURL: data.AuthorizationURL,
		AccessCode:  data.AccessCode,
		Reference:   reference,
	}, nil
}

// VerifyCharge maps a Paystack verification onto the typed result. A
// reference Paystack does not know is a failed charge; transport errors
// and 5xx answers are ErrVerificationUnavailable.
func (a *GatewayAdapter) VerifyCharge(ctx context.Context, reference string) (*movement.ChargeVerification, error) {
	data, err := a.client.VerifyTransaction(ctx, reference)
	if err != nil {
		if isUnknownReference(err) {
			return &movement.ChargeVerification{Status: movement.ChargeFailed, Reference: reference}, nil
		}
		return nil, fmt.Errorf("%w: %v", movement.ErrVerificationUnavailable, err)
	}

	v := &movement.ChargeVerification{
		Status:    mapStatus(data.Status),
		Amount:    money.FromMinorUnits(data.Amount),
		Reference: data.Reference,
	}
	if v.Reference == "" {
		v.Reference = reference
	}
	if a.currency != "" && data.Currency != "" && !strings.EqualFold(data.Currency, a.currency) {
		v.Status = movement.ChargeFailed
	}
	if id, err := uuid.Parse(data.Metadata[metaUserID]); err == nil {
		v.UserID = id
	}
	return v, nil
}

// ResolveAccountName returns the account holder's name
func (a *GatewayAdapter) ResolveAccountName(ctx context.Context, accountNumber, bankCode string) (string, error) {
	data, err := a.client.ResolveAccount(ctx, accountNumber, bankCode)
	if err != nil {
		return "", fmt.Errorf("%w: %v", movement.ErrUnresolvedAccount, err)
	}
	if strings.TrimSpace(data.AccountName) == "" {
		return "", movement.ErrUnresolvedAccount
	}
	return data.AccountName, nil
}

// isUnknownReference reports whether Paystack answered that it has no
// transaction under the reference
func isUnknownReference(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusBadRequest || apiErr.StatusCode == http.StatusNotFound
}

func mapStatus(s string) movement.ChargeStatus {
	switch strings.ToLower(s) {
	case StatusSuccess:
		return movement.ChargeSucceeded
	case StatusOngoing, StatusPending, StatusProcessing, StatusQueued:
		return movement.ChargePending
	default:
		return movement.ChargeFailed
	}
}
