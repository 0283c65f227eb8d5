package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	apperrors "github.com/kislikjeka/agrovest/internal/shared/errors"
	"github.com/kislikjeka/agrovest/internal/transport/httpapi/middleware"
)

const maxBodyBytes = 1 << 20

// ErrorResponse represents an error response. Detail is only filled for admins.
type ErrorResponse struct {
	Error  string `json:"error"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	respondJSON(w, ErrorResponse{Error: message}, statusCode)
}

// respondAppError maps err to its status by code. Wrapped causes are shown
// to admins only.
func respondAppError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.Kind(err)
	resp := ErrorResponse{
		Error: apperrors.PublicMessage(err),
		Code:  code,
	}
	if middleware.IsAdmin(r.Context()) {
		resp.Detail = err.Error()
	}
	respondJSON(w, resp, StatusForCode(code))
}

// StatusForCode returns the HTTP status for an error code
func StatusForCode(code string) int {
	switch code {
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest
	case apperrors.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case apperrors.ErrCodeForbidden:
		return http.StatusForbidden
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound
	case apperrors.ErrCodeConflict,
		apperrors.ErrCodeAlreadyExists,
		apperrors.ErrCodeAlreadyProcessed,
		apperrors.ErrCodeAlreadyCompleted,
		apperrors.ErrCodeNotPending,
		apperrors.ErrCodeNotOpen,
		apperrors.ErrCodeInvalidTransition,
		apperrors.ErrCodeInsufficientCapacity:
		return http.StatusConflict
	case apperrors.ErrCodeInsufficientFunds, apperrors.ErrCodeUnresolvedAccount:
		return http.StatusUnprocessableEntity
	case apperrors.ErrCodePaymentNotSuccessful:
		return http.StatusPaymentRequired
	case apperrors.ErrCodePaymentPending:
		return http.StatusAccepted
	case apperrors.ErrCodeGatewayUnavailable:
		return http.StatusBadGateway
	case apperrors.ErrCodeVerificationUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a bounded JSON body into dst
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// callerID returns the authenticated user, answering 401 when absent
func callerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		respondError(w, "unauthorized", http.StatusUnauthorized)
		return uuid.Nil, false
	}
	return userID, true
}

// uuidParam parses a chi URL parameter, answering 400 when malformed
func uuidParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		respondError(w, "invalid "+name, http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// paging reads limit and offset query parameters
func paging(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, errors.New("limit must be a non-negative integer")
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}
