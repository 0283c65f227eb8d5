package stripe_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/agrovest/internal/infra/gateway/stripe"
	"github.com/kislikjeka/agrovest/internal/movement"
	apperrors "github.com/kislikjeka/agrovest/internal/shared/errors"
	"github.com/kislikjeka/agrovest/pkg/logger"
)

func newAdapter(t *testing.T, handler http.HandlerFunc) *stripe.GatewayAdapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return stripe.NewGatewayAdapter(stripe.Config{
		SecretKey:  "sk_test_123",
		Currency:   "NGN",
		SuccessURL: "https://app.test/fund/success",
		CancelURL:  "https://app.test/fund/cancel",
		BaseURL:    server.URL,
	}, logger.New("development", io.Discard))
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func session(userID uuid.UUID, paymentStatus, status string) map[string]interface{} {
	return map[string]interface{}{
		"id":             "cs_test_1",
		"object":         "checkout.session",
		"url":            "https://checkout.stripe.com/c/pay/cs_test_1",
		"payment_status": paymentStatus,
		"status":         status,
		"amount_total":   500000,
		"currency":       "ngn",
		"metadata":       map[string]string{"user_id": userID.String(), "reference": "FND-1"},
	}
}

func TestAdapter_InitiateChargeCreatesSession(t *testing.T) {
	userID := uuid.New()
	var form url.Values
	var path, auth string

	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		auth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		form, _ = url.ParseQuery(string(body))
		writeJSON(w, http.StatusOK, session(userID, "unpaid", "open"))
	})

	checkout, err := adapter.InitiateCharge(context.Background(), movement.ChargeRequest{
		Amount:    decimal.NewFromInt(5000),
		Email:     "ada@example.com",
		UserID:    userID,
		Reference: "FND-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "/v1/checkout/sessions", path)
	assert.True(t, strings.HasPrefix(auth, "Bearer sk_test_123"))
	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "FND-1", form.Get("client_reference_id"))
	assert.Equal(t, "500000", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "ngn", form.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, userID.String(), form.Get("metadata[user_id]"))

	assert.Equal(t, "cs_test_1", checkout.Reference)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_1", checkout.CheckoutURL)
}

func TestAdapter_VerifyChargeStatuses(t *testing.T) {
	userID := uuid.New()
	tests := []struct {
		paymentStatus string
		status        string
		want          movement.ChargeStatus
	}{
		{"paid", "complete", movement.ChargeSucceeded},
		{"unpaid", "open", movement.ChargePending},
		{"unpaid", "expired", movement.ChargeFailed},
		{"no_payment_required", "complete", movement.ChargeFailed},
	}

	for _, tt := range tests {
		t.Run(tt.paymentStatus+"/"+tt.status, func(t *testing.T) {
			adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/v1/checkout/sessions/cs_test_1", r.URL.Path)
				writeJSON(w, http.StatusOK, session(userID, tt.paymentStatus, tt.status))
			})

			v, err := adapter.VerifyCharge(context.Background(), "cs_test_1")
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Status)
			assert.Equal(t, "5000.00", v.Amount.StringFixed(2))
			assert.Equal(t, userID, v.UserID)
		})
	}
}

func TestAdapter_VerifyChargeMissingSessionIsFailed(t *testing.T) {
	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": map[string]string{
				"type":    "invalid_request_error",
				"code":    "resource_missing",
				"message": "No such checkout.session: 'cs_nope'",
			},
		})
	})

	v, err := adapter.VerifyCharge(context.Background(), "cs_nope")
	require.NoError(t, err)
	assert.Equal(t, movement.ChargeFailed, v.Status)
}

func TestAdapter_VerifyChargeOutageIsUnavailable(t *testing.T) {
	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"error": map[string]string{"type": "api_error", "message": "boom"},
		})
	})

	_, err := adapter.VerifyCharge(context.Background(), "cs_test_1")
	assert.Equal(t, apperrors.ErrCodeVerificationUnavailable, apperrors.Kind(err))
}

func TestAdapter_ResolveAccountNameUnsupported(t *testing.T) {
	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no request expected")
	})

	_, err := adapter.ResolveAccountName(context.Background(), "0123456789", "058")
	assert.ErrorIs(t, err, movement.ErrUnresolvedAccount)
}
