package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kislikjeka/agrovest/internal/ledger"
	"github.com/kislikjeka/agrovest/internal/movement"
	"github.com/kislikjeka/agrovest/internal/platform/wallet"
	"github.com/kislikjeka/agrovest/internal/transport/httpapi/handler"
)

func amountOf(s string) interface{} {
	want := decimal.RequireFromString(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}

func decodeBody(t *testing.T, body []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &out))
	return out
}

func TestWalletHandler_GetBalance(t *testing.T) {
	engine := new(MockMovement)
	h := handler.NewWalletHandler(engine, "NGN")
	who := investor()

	engine.On("GetBalance", mock.Anything, who.id).Return(decimal.RequireFromString("11200"), nil)

	rec := serve(t, http.MethodGet, "/wallet", "/wallet", "", &who, h.GetBalance)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec.Body.Bytes())
	assert.Equal(t, "11200.00", body["balance"])
	assert.Equal(t, "NGN", body["currency"])
}

func TestWalletHandler_RequiresIdentity(t *testing.T) {
	h := handler.NewWalletHandler(new(MockMovement), "NGN")

	rec := serve(t, http.MethodGet, "/wallet", "/wallet", "", nil, h.GetBalance)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWalletHandler_InitiateFunding(t *testing.T) {
	engine := new(MockMovement)
	h := handler.NewWalletHandler(engine, "NGN")
	who := investor()

	engine.On("InitiateFunding", mock.Anything, who.id, who.email, amountOf("2500.50")).Return(&movement.Checkout{
		CheckoutURL: "https://checkout.paystack.com/abc",
		AccessCode:  "abc",
		Reference:   "FND-01J",
	}, nil)

	rec := serve(t, http.MethodPost, "/wallet/fund", "/wallet/fund", `{"amount":"2500.50"}`, &who, h.InitiateFunding)

	assert.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec.Body.Bytes())
	assert.Equal(t, "FND-01J", body["reference"])
	assert.Equal(t, "https://checkout.paystack.com/abc", body["checkout_url"])
	engine.AssertExpectations(t)
}

func TestWalletHandler_ConfirmFundingErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"replay", movement.ErrAlreadyProcessed, http.StatusConflict, "ALREADY_PROCESSED"},
		{"verification down", movement.ErrVerificationUnavailable, http.StatusServiceUnavailable, "VERIFICATION_UNAVAILABLE"},
		{"charge failed", movement.ErrPaymentNotSuccessful, http.StatusPaymentRequired, "PAYMENT_NOT_SUCCESSFUL"},
		{"charge pending", movement.ErrPaymentPending, http.StatusAccepted, "PAYMENT_PENDING"},
		{"missing reference", movement.ErrMissingReference, http.StatusBadRequest, "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := new(MockMovement)
			h := handler.NewWalletHandler(engine, "NGN")
			who := investor()

			engine.On("ConfirmFunding", mock.Anything, who.id, "FND-1").Return(nil, tt.err)

			rec := serve(t, http.MethodPost, "/wallet/fund/confirm", "/wallet/fund/confirm", `{"reference":"FND-1"}`, &who, h.ConfirmFunding)

			assert.Equal(t, tt.status, rec.Code)
			body := decodeBody(t, rec.Body.Bytes())
			assert.Equal(t, tt.code, body["code"])
			assert.NotContains(t, body, "detail")
		})
	}
}

func TestWalletHandler_ConfirmFundingSuccess(t *testing.T) {
	engine := new(MockMovement)
	h := handler.NewWalletHandler(engine, "NGN")
	who := investor()

	entry := ledger.NewEntry(who.id, ledger.KindDeposit, ledger.StatusSuccess, decimal.NewFromInt(10000), "FND-1", "Wallet funding")
	engine.On("ConfirmFunding", mock.Anything, who.id, "FND-1").Return(&movement.FundingResult{
		Entry:   entry,
		Balance: decimal.NewFromInt(10000),
	}, nil)

	rec := serve(t, http.MethodPost, "/wallet/fund/confirm", "/wallet/fund/confirm", `{"reference":"FND-1"}`, &who, h.ConfirmFunding)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec.Body.Bytes())
	assert.Equal(t, "10000.00", body["balance"])
	e := body["entry"].(map[string]interface{})
	assert.Equal(t, "deposit", e["kind"])
	assert.Equal(t, "10000.00", e["amount"])
	assert.Equal(t, "FND-1", e["reference"])
}

func TestWalletHandler_RequestWithdrawal(t *testing.T) {
	engine := new(MockMovement)
	h := handler.NewWalletHandler(engine, "NGN")
	who := investor()

	bank := movement.BankDetails{BankCode: "058", BankName: "GTBank", AccountNumber: "0123456789", AccountName: "Ada Obi"}
	entry := ledger.NewEntry(who.id, ledger.KindWithdrawal, ledger.StatusPending, decimal.NewFromInt(5000), "WDR-1", "Withdrawal to ******6789")
	engine.On("RequestWithdrawal", mock.Anything, who.id, amountOf("5000"), bank).Return(&movement.WithdrawalResult{
		Entry:   entry,
		Balance: decimal.NewFromInt(6200),
	}, nil)

	rec := serve(t, http.MethodPost, "/wallet/withdraw", "/wallet/withdraw",
		`{"amount":5000,"bank_code":"058","bank_name":"GTBank","account_number":"0123456789","account_name":"Ada Obi"}`,
		&who, h.RequestWithdrawal)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec.Body.Bytes())
	assert.Equal(t, "6200.00", body["balance"])
	e := body["entry"].(map[string]interface{})
	assert.Equal(t, "pending", e["status"])
	assert.Equal(t, "-5000.00", e["amount"])
}

func TestWalletHandler_RequestWithdrawalInsufficientFunds(t *testing.T) {
	engine := new(MockMovement)
	h := handler.NewWalletHandler(engine, "NGN")
	who := investor()

	engine.On("RequestWithdrawal", mock.Anything, who.id, mock.Anything, mock.Anything).Return(nil, wallet.ErrInsufficientFunds)

	rec := serve(t, http.MethodPost, "/wallet/withdraw", "/wallet/withdraw",
		`{"amount":"99999","bank_code":"058","account_number":"0123456789","account_name":"Ada Obi"}`,
		&who, h.RequestWithdrawal)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "INSUFFICIENT_FUNDS", decodeBody(t, rec.Body.Bytes())["code"])
}

func TestWalletHandler_RejectsMalformedBody(t *testing.T) {
	h := handler.NewWalletHandler(new(MockMovement), "NGN")
	who := investor()

	for _, body := range []string{``, `{"amount":`, `{"amount":"10","extra":true}`} {
		rec := serve(t, http.MethodPost, "/wallet/fund", "/wallet/fund", body, &who, h.InitiateFunding)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
}

func TestWalletHandler_GetHistoryFilters(t *testing.T) {
	engine := new(MockMovement)
	h := handler.NewWalletHandler(engine, "NGN")
	who := investor()

	kind := ledger.KindWithdrawal
	status := ledger.StatusPending
	engine.On("History", mock.Anything, who.id, ledger.Filter{Kind: &kind, Status: &status, Limit: 10, Offset: 20}).
		Return([]*ledger.Entry{}, nil)

	rec := serve(t, http.MethodGet, "/wallet/transactions", "/wallet/transactions?kind=withdrawal&status=pending&limit=10&offset=20", "", &who, h.GetHistory)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec.Body.Bytes())
	assert.Equal(t, float64(10), body["limit"])
	assert.Equal(t, []interface{}{}, body["entries"])

	rec = serve(t, http.MethodGet, "/wallet/transactions", "/wallet/transactions?limit=-1", "", &who, h.GetHistory)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWalletHandler_ResolveAccount(t *testing.T) {
	engine := new(MockMovement)
	h := handler.NewWalletHandler(engine, "NGN")
	who := investor()

	engine.On("ResolveBankAccount", mock.Anything, "0123456789", "058").Return("ADA OBI", nil)
	engine.On("ResolveBankAccount", mock.Anything, "0000000000", "058").Return("", movement.ErrUnresolvedAccount)

	rec := serve(t, http.MethodGet, "/banks/resolve", "/banks/resolve?account_number=0123456789&bank_code=058", "", &who, h.ResolveAccount)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ADA OBI", decodeBody(t, rec.Body.Bytes())["account_name"])

	rec = serve(t, http.MethodGet, "/banks/resolve", "/banks/resolve?account_number=0000000000&bank_code=058", "", &who, h.ResolveAccount)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestWalletHandler_RejectsInvalidAmounts(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"negative", `{"amount":"-500"}`, "cannot be negative"},
		{"negative number", `{"amount":-500}`, "cannot be negative"},
		{"sub-kobo", `{"amount":"10.005"}`, "more than 2 decimal places"},
		{"missing", `{}`, "amount is required"},
		{"blank", `{"amount":"  "}`, "amount is required"},
		{"not a number", `{"amount":"ten"}`, "invalid amount format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := new(MockMovement)
			h := handler.NewWalletHandler(engine, "NGN")
			who := investor()

			rec := serve(t, http.MethodPost, "/wallet/fund", "/wallet/fund", tt.body, &who, h.InitiateFunding)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			body := decodeBody(t, rec.Body.Bytes())
			assert.Equal(t, "VALIDATION_ERROR", body["code"])
			assert.Contains(t, body["error"], tt.want)
			engine.AssertNotCalled(t, "InitiateFunding", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestWalletHandler_WithdrawalAmountParsedBeforeEngine(t *testing.T) {
	engine := new(MockMovement)
	h := handler.NewWalletHandler(engine, "NGN")
	who := investor()

	rec := serve(t, http.MethodPost, "/wallet/withdraw", "/wallet/withdraw",
		`{"amount":"1500.999","bank_code":"058","account_number":"0123456789","account_name":"Ada Obi"}`,
		&who, h.RequestWithdrawal)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody(t, rec.Body.Bytes())["error"], "more than 2 decimal places")
	engine.AssertNotCalled(t, "RequestWithdrawal", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
