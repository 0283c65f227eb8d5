package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/agrovest/internal/ledger"
	"github.com/kislikjeka/agrovest/internal/movement"
	apperrors "github.com/kislikjeka/agrovest/internal/shared/errors"
	"github.com/kislikjeka/agrovest/internal/transport/httpapi/middleware"
	"github.com/kislikjeka/agrovest/pkg/money"
)

// MovementServiceInterface is the money-movement engine as used by the handlers
type MovementServiceInterface interface {
	InitiateFunding(ctx context.Context, userID uuid.UUID, email string, amount decimal.Decimal) (*movement.Checkout, error)
	ConfirmFunding(ctx context.Context, userID uuid.UUID, reference string) (*movement.FundingResult, error)
	Invest(ctx context.Context, userID, offeringID uuid.UUID, units int) (*movement.InvestmentResult, error)
	RequestWithdrawal(ctx context.Context, userID uuid.UUID, amount decimal.Decimal, bank movement.BankDetails) (*movement.WithdrawalResult, error)
	ResolveWithdrawal(ctx context.Context, entryID uuid.UUID, decision movement.Decision) (*movement.ResolutionResult, error)
	PayYield(ctx context.Context, positionID uuid.UUID) (*movement.PayoutResult, error)
	ResolveBankAccount(ctx context.Context, accountNumber, bankCode string) (string, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	History(ctx context.Context, userID uuid.UUID, filter ledger.Filter) ([]*ledger.Entry, error)
	ListWithdrawals(ctx context.Context, status *ledger.Status, limit, offset int) ([]*ledger.Entry, error)
}

// WalletHandler handles balance, history, funding and withdrawal requests
type WalletHandler struct {
	engine   MovementServiceInterface
	currency string
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(engine MovementServiceInterface, currency string) *WalletHandler {
	return &WalletHandler{
		engine:   engine,
		currency: currency,
	}
}

// BalanceResponse represents the wallet balance response
type BalanceResponse struct {
	Balance  string `json:"balance"`
	Currency string `json:"currency"`
}

// FundRequest represents the funding initiation request
type FundRequest struct {
	Amount AmountInput `json:"amount"`
}

// ConfirmFundingRequest represents the funding confirmation request
type ConfirmFundingRequest struct {
	Reference string `json:"reference"`
}

// WithdrawRequest represents the withdrawal request
type WithdrawRequest struct {
	Amount AmountInput `json:"amount"`
	movement.BankDetails
}

// MovementResponse carries the entries a workflow wrote and the new balance
type MovementResponse struct {
	Entry   *EntryResponse `json:"entry,omitempty"`
	Refund  *EntryResponse `json:"refund,omitempty"`
	Balance string         `json:"balance"`
}

// HistoryResponse represents a page of ledger entries
type HistoryResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// GetBalance handles GET /wallet
func (h *WalletHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	balance, err := h.engine.GetBalance(r.Context(), userID)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, BalanceResponse{Balance: money.Format(balance), Currency: h.currency}, http.StatusOK)
}

// GetHistory handles GET /wallet/transactions
func (h *WalletHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	filter, err := historyFilter(r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	entries, err := h.engine.History(r.Context(), userID, filter)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	filter = filter.Normalize()
	respondJSON(w, HistoryResponse{
		Entries: toEntryResponses(entries),
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, http.StatusOK)
}

// InitiateFunding handles POST /wallet/fund. Nothing is credited until the
// charge is confirmed.
func (h *WalletHandler) InitiateFunding(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	email, _ := middleware.GetUserEmailFromContext(r.Context())

	var req FundRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	checkout, err := h.engine.InitiateFunding(r.Context(), userID, email, amount)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, checkout, http.StatusOK)
}

// ConfirmFunding handles POST /wallet/fund/confirm
func (h *WalletHandler) ConfirmFunding(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req ConfirmFundingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.engine.ConfirmFunding(r.Context(), userID, req.Reference)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, MovementResponse{
		Entry:   toEntryResponse(result.Entry),
		Balance: money.Format(result.Balance),
	}, http.StatusOK)
}

// RequestWithdrawal handles POST /wallet/withdraw. The debit is immediate;
// the entry stays pending until an admin resolves it.
func (h *WalletHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	var req WithdrawRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	amount, ok := parseAmount(w, req.Amount)
	if !ok {
		return
	}

	result, err := h.engine.RequestWithdrawal(r.Context(), userID, amount, req.BankDetails)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, MovementResponse{
		Entry:   toEntryResponse(result.Entry),
		Balance: money.Format(result.Balance),
	}, http.StatusAccepted)
}

// ResolveAccount handles GET /banks/resolve?account_number=&bank_code=
func (h *WalletHandler) ResolveAccount(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	accountNumber := q.Get("account_number")
	bankCode := q.Get("bank_code")

	name, err := h.engine.ResolveBankAccount(r.Context(), accountNumber, bankCode)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, map[string]string{
		"account_number": accountNumber,
		"bank_code":      bankCode,
		"account_name":   name,
	}, http.StatusOK)
}

// parseAmount answers 400 VALIDATION_ERROR for amounts money.Parse rejects
func parseAmount(w http.ResponseWriter, raw AmountInput) (decimal.Decimal, bool) {
	amount, err := money.Parse(string(raw))
	if err != nil {
		respondJSON(w, ErrorResponse{Error: err.Error(), Code: apperrors.ErrCodeValidation}, http.StatusBadRequest)
		return decimal.Zero, false
	}
	return amount, true
}

func historyFilter(r *http.Request) (ledger.Filter, error) {
	limit, offset, err := paging(r)
	if err != nil {
		return ledger.Filter{}, err
	}

	filter := ledger.Filter{Limit: limit, Offset: offset}
	q := r.URL.Query()
	if v := q.Get("kind"); v != "" {
		kind := ledger.Kind(v)
		filter.Kind = &kind
	}
	if v := q.Get("status"); v != "" {
		status := ledger.Status(v)
		filter.Status = &status
	}
	return filter, nil
}
