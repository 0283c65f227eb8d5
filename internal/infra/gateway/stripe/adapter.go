// Package stripe implements the payment gateway on Stripe Checkout.
// The Checkout Session id is the external reference of a deposit.
package stripe

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	stripeapi "github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/client"

	"github.com/kislikjeka/agrovest/internal/movement"
	"github.com/kislikjeka/agrovest/pkg/logger"
	"github.com/kislikjeka/agrovest/pkg/money"
)

const (
	metaUserID    = "user_id"
	metaReference = "reference"
	productName   = "Wallet funding"
)

// Config holds the Stripe settings
type Config struct {
	SecretKey  string
	Currency   string
	SuccessURL string
	CancelURL  string
	// BaseURL overrides the API endpoint (useful for testing)
	BaseURL string
}

// GatewayAdapter adapts Stripe Checkout to the movement.Gateway interface
type GatewayAdapter struct {
	api        *client.API
	currency   string
	successURL string
	cancelURL  string
	logger     *logger.Logger
}

// Compile-time check that GatewayAdapter implements movement.Gateway
var _ movement.Gateway = (*GatewayAdapter)(nil)

// NewGatewayAdapter creates a Stripe gateway with its own API client
func NewGatewayAdapter(cfg Config, log *logger.Logger) *GatewayAdapter {
	log = log.WithField("component", "stripe")

	backendCfg := &stripeapi.BackendConfig{
		MaxNetworkRetries: stripeapi.Int64(2),
		LeveledLogger:     leveledLogger{log},
	}
	if cfg.BaseURL != "" {
		backendCfg.URL = stripeapi.String(cfg.BaseURL)
		backendCfg.MaxNetworkRetries = stripeapi.Int64(0)
	}

	api := &client.API{}
	api.Init(cfg.SecretKey, &stripeapi.Backends{
		API:     stripeapi.GetBackendWithConfig(stripeapi.APIBackend, backendCfg),
		Connect: stripeapi.GetBackendWithConfig(stripeapi.ConnectBackend, backendCfg),
		Uploads: stripeapi.GetBackendWithConfig(stripeapi.UploadsBackend, backendCfg),
	})

	return &GatewayAdapter{
		api:        api,
		currency:   strings.ToLower(cfg.Currency),
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		logger:     log,
	}
}

// InitiateCharge opens a Checkout Session in payment mode
func (a *GatewayAdapter) InitiateCharge(ctx context.Context, req movement.ChargeRequest) (*movement.Checkout, error) {
	params := &stripeapi.CheckoutSessionParams{
		Mode:               stripeapi.String(string(stripeapi.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripeapi.StringSlice([]string{"card"}),
		SuccessURL:         stripeapi.String(a.successURL),
		CancelURL:          stripeapi.String(a.cancelURL),
		CustomerEmail:      stripeapi.String(req.Email),
		ClientReferenceID:  stripeapi.String(req.Reference),
		LineItems: []*stripeapi.CheckoutSessionLineItemParams{
			{
				PriceData: &stripeapi.CheckoutSessionLineItemPriceDataParams{
					Currency: stripeapi.String(a.currency),
					ProductData: &stripeapi.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripeapi.String(productName),
					},
					UnitAmount: stripeapi.Int64(money.ToMinorUnits(req.Amount)),
				},
				Quantity: stripeapi.Int64(1),
			},
		},
	}
	params.Context = ctx
	params.AddMetadata(metaUserID, req.UserID.String())
	params.AddMetadata(metaReference, req.Reference)

	session, err := a.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", movement.ErrGatewayUnavailable, err)
	}

	a.logger.Info("checkout session created", "session_id", session.ID, "reference", req.Reference)
	return &movement.Checkout{
		CheckoutURL: session.URL,
		Reference:   session.ID,
	}, nil
}

// VerifyCharge reads the Checkout Session. A session Stripe does not know
// is a failed charge; any other error is ErrVerificationUnavailable.
func (a *GatewayAdapter) VerifyCharge(ctx context.Context, reference string) (*movement.ChargeVerification, error) {
	params := &stripeapi.CheckoutSessionParams{}
	params.Context = ctx

	session, err := a.api.CheckoutSessions.Get(reference, params)
	if err != nil {
		if isMissing(err) {
			return &movement.ChargeVerification{Status: movement.ChargeFailed, Reference: reference}, nil
		}
		return nil, fmt.Errorf("%w: %v", movement.ErrVerificationUnavailable, err)
	}

	v := &movement.ChargeVerification{
		Status:    mapSession(session),
		Amount:    money.FromMinorUnits(session.AmountTotal),
		Reference: session.ID,
	}
	if a.currency != "" && session.Currency != "" && !strings.EqualFold(string(session.Currency), a.currency) {
		v.Status = movement.ChargeFailed
	}
	if id, err := uuid.Parse(session.Metadata[metaUserID]); err == nil {
		v.UserID = id
	}
	return v, nil
}

// ResolveAccountName is not offered by Stripe
func (a *GatewayAdapter) ResolveAccountName(context.Context, string, string) (string, error) {
	return "", fmt.Errorf("%w: bank account lookup is not supported by stripe", movement.ErrUnresolvedAccount)
}

func mapSession(s *stripeapi.CheckoutSession) movement.ChargeStatus {
	switch s.PaymentStatus {
	case stripeapi.CheckoutSessionPaymentStatusPaid:
		return movement.ChargeSucceeded
	case stripeapi.CheckoutSessionPaymentStatusUnpaid:
		if s.Status == stripeapi.CheckoutSessionStatusExpired {
			return movement.ChargeFailed
		}
		return movement.ChargePending
	default:
		return movement.ChargeFailed
	}
}

func isMissing(err error) bool {
	var stripeErr *stripeapi.Error
	if !errors.As(err, &stripeErr) {
		return false
	}
	return stripeErr.HTTPStatusCode == http.StatusNotFound || stripeErr.Code == stripeapi.ErrorCodeResourceMissing
}

// leveledLogger routes stripe-go's logging into our logger
type leveledLogger struct {
	log *logger.Logger
}

func (l leveledLogger) Debugf(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...))
}

func (l leveledLogger) Infof(format string, v ...interface{}) {
	l.log.Debug(fmt.Sprintf(format, v...))
}

func (l leveledLogger) Warnf(format string, v ...interface{}) {
	l.log.Warn(fmt.Sprintf(format, v...))
}

func (l leveledLogger) Errorf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...))
}
