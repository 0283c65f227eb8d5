package handler

import (
	"context"
	"net/http"

	"github.com/kislikjeka/agrovest/internal/ledger"
	"github.com/kislikjeka/agrovest/internal/movement"
	"github.com/kislikjeka/agrovest/pkg/money"
)

// ReconcilerInterface runs one reconciliation pass on demand
type ReconcilerInterface interface {
	RunOnce(ctx context.Context) (*movement.ReconcileReport, error)
}

// AdminHandler handles operator-only requests
type AdminHandler struct {
	engine     MovementServiceInterface
	users      UserServiceInterface
	reconciler ReconcilerInterface
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(engine MovementServiceInterface, users UserServiceInterface, reconciler ReconcilerInterface) *AdminHandler {
	return &AdminHandler{
		engine:     engine,
		users:      users,
		reconciler: reconciler,
	}
}

// ResolveWithdrawalRequest represents an admin's decision
type ResolveWithdrawalRequest struct {
	Decision movement.Decision `json:"decision"`
}

// PayoutResponse represents the result of a yield payout
type PayoutResponse struct {
	Position *PositionResponse `json:"position"`
	Entry    *EntryResponse    `json:"entry,omitempty"`
	Balance  string            `json:"balance"`
}

// ListWithdrawals handles GET /admin/withdrawals?status=pending
func (h *AdminHandler) ListWithdrawals(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := paging(r)
	if err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var status *ledger.Status
	if v := r.URL.Query().Get("status"); v != "" {
		s := ledger.Status(v)
		status = &s
	}

	entries, err := h.engine.ListWithdrawals(r.Context(), status, limit, offset)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, map[string]interface{}{"withdrawals": toEntryResponses(entries)}, http.StatusOK)
}

// ResolveWithdrawal handles POST /admin/withdrawals/{id}/resolve
func (h *AdminHandler) ResolveWithdrawal(w http.ResponseWriter, r *http.Request) {
	entryID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req ResolveWithdrawalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.engine.ResolveWithdrawal(r.Context(), entryID, req.Decision)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, MovementResponse{
		Entry:   toEntryResponse(result.Entry),
		Refund:  toEntryResponse(result.Refund),
		Balance: money.Format(result.Balance),
	}, http.StatusOK)
}

// PayYield handles POST /admin/positions/{id}/payout
func (h *AdminHandler) PayYield(w http.ResponseWriter, r *http.Request) {
	positionID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	result, err := h.engine.PayYield(r.Context(), positionID)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, PayoutResponse{
		Position: toPositionResponse(result.Position),
		Entry:    toEntryResponse(result.Entry),
		Balance:  money.Format(result.Balance),
	}, http.StatusOK)
}

// Reconcile handles POST /admin/reconcile
func (h *AdminHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconciler.RunOnce(r.Context())
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, report, http.StatusOK)
}

// DeleteUser handles DELETE /admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), userID); err != nil {
		respondAppError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
