package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/kislikjeka/agrovest/internal/platform/position"
)

// PositionServiceInterface defines the position reads needed by the handlers
type PositionServiceInterface interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*position.Position, error)
	GetOwned(ctx context.Context, id, userID uuid.UUID) (*position.Position, error)
}

// PositionHandler serves a user's own positions
type PositionHandler struct {
	positions PositionServiceInterface
}

// NewPositionHandler creates a new position handler
func NewPositionHandler(positions PositionServiceInterface) *PositionHandler {
	return &PositionHandler{positions: positions}
}

// ListPositions handles GET /positions
func (h *PositionHandler) ListPositions(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	list, err := h.positions.ListByUser(r.Context(), userID)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	out := make([]*PositionResponse, 0, len(list))
	for _, p := range list {
		out = append(out, toPositionResponse(p))
	}
	respondJSON(w, map[string]interface{}{"positions": out}, http.StatusOK)
}

// GetPosition handles GET /positions/{id}
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}
	id, ok := uuidParam(w, r, "id")
	if !ok {
		return
	}

	p, err := h.positions.GetOwned(r.Context(), id, userID)
	if err != nil {
		respondAppError(w, r, err)
		return
	}

	respondJSON(w, toPositionResponse(p), http.StatusOK)
}
