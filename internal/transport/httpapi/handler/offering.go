package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kislikjeka/agrovest/internal/platform/offering"
	"github.com/kislikjeka/agrovest/pkg/money"
)

// OfferingServiceInterface defines the catalog operations needed by the handlers
type OfferingServiceInterface interface {
	Create(ctx context.Context, in offering.CreateInput) (*offering.Offering, error)
	Get(ctx context.Context, id uuid.UUID) (*offering.Offering, error)
	List(ctx context.Context, filter offering.ListFilter) ([]*offering.Offering, error)
	Close(ctx context.Context, id uuid.UUID) (*offering.Offering, error)
}

// OfferingHandler handles catalog browsing and investment requests
type OfferingHandler struct {
	catalog OfferingServiceInterface
	engine  MovementServiceInterface
}

// NewOfferingHandler creates a new offering handler
func NewOfferingHandler(catalog OfferingServiceInterface, engine MovementServiceInterface) *OfferingHandler {
	return &OfferingHandler{
		catalog: catalog,
		engine:  engine,
	}
}

// InvestRequest represents the investment request
type InvestRequest struct {
	Units int `json:"units"`
}

// InvestResponse represents the result of an investment
type InvestResponse struct {
	Position *PositionResponse `json:"position"`
	Offering *OfferingResponse `json:"offering"`
	Entry    *EntryResponse    `json:"entry"`
	Balance  string            `json:"balance"`
}

// ListOfferings handles GET /offerings?status=
func (h *OfferingHandler) ListOfferings(w http.ResponseWriter, r *http.Request) {
	var filter offering.ListFilter
	if v := r.URL.Query().Get("status"); v != "" {
		status := offering.Status(v)
		filter.Status = &status
	}

	list, err := h.catalog.List(r.Context(), filter)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	out := make([]*OfferingResponse, 0, len(list))
	for _, o := range list {
		out = append(out, toOfferingResponse(o))
	}
	respondJSON(w, map[string]interface{}{"offerings": out}, http.StatusOK)
}

// GetOffering handles GET /offerings/{id}
func (h *OfferingHandler) GetOffering(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	o, err := h.catalog.Get(r.Context(), id)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, toOfferingResponse(o), http.StatusOK)
}

// Invest handles POST /offerings/{id}/invest
func (h *OfferingHandler) Invest(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	offeringID, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	var req InvestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.engine.Invest(r.Context(), userID, offeringID, req.Units)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, InvestResponse{
		Position: toPositionResponse(result.Position),
		Offering: toOfferingResponse(result.Offering),
		Entry:    toEntryResponse(result.Entry),
		Balance:  money.Format(result.Balance),
	}, http.StatusCreated)
}

// CreateOfferingRequest represents an admin's new listing
type CreateOfferingRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Location    string          `json:"location"`
	ImageURL    string          `json:"image_url"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	YieldRate   decimal.Decimal `json:"yield_rate"`
	TermMonths  int             `json:"term_months"`
	TotalUnits  int             `json:"total_units"`
}

// CreateOffering handles POST /admin/offerings
func (h *OfferingHandler) CreateOffering(w http.ResponseWriter, r *http.Request) {
	var req CreateOfferingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return
	}

	o, err := h.catalog.Create(r.Context(), offering.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		Location:    req.Location,
		ImageURL:    req.ImageURL,
		UnitPrice:   req.UnitPrice,
		YieldRate:   req.YieldRate,
		TermMonths:  req.TermMonths,
		TotalUnits:  req.TotalUnits,
	})
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, toOfferingResponse(o), http.StatusCreated)
}

// CloseOffering handles POST /admin/offerings/{id}/close
func (h *OfferingHandler) CloseOffering(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	o, err := h.catalog.Close(r.Context(), id)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, toOfferingResponse(o), http.StatusOK)
}
