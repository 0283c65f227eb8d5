package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kislikjeka/agrovest/internal/platform/user"
)

// UserServiceInterface is the account surface used by auth and admin routes
type UserServiceInterface interface {
	Register(ctx context.Context, email, fullName, password string) (*user.User, error)
	Login(ctx context.Context, email, password string) (*user.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type JWTServiceInterface interface {
	GenerateToken(userID uuid.UUID, email string, role user.Role) (string, error)
}

// AuthHandler opens sessions and closes accounts
type AuthHandler struct {
	users  UserServiceInterface
	tokens JWTServiceInterface
}

func NewAuthHandler(users UserServiceInterface, tokens JWTServiceInterface) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens}
}

// Register handles POST /auth/register. The wallet is opened in the same step.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	in, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	registered, err := h.users.Register(r.Context(), in.Email, strings.TrimSpace(in.FullName), in.Password)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	h.startSession(w, registered, http.StatusCreated)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	in, ok := h.readCredentials(w, r)
	if !ok {
		return
	}

	authenticated, err := h.users.Login(r.Context(), in.Email, in.Password)
	if err != nil {
		respondAppError(w, r, err)
		return
	}
	h.startSession(w, authenticated, http.StatusOK)
}

// DeleteAccount handles DELETE /account. The caller's own account is
// anonymized once nothing is held in it.
func (h *AuthHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := callerID(w, r)
	if !ok {
		return
	}

	if err := h.users.Delete(r.Context(), userID); err != nil {
		respondAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) readCredentials(w http.ResponseWriter, r *http.Request) (*credentials, bool) {
	var in credentials
	if err := decodeJSON(w, r, &in); err != nil {
		respondError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}

	switch {
	case strings.TrimSpace(in.Email) == "":
		respondError(w, "email is required", http.StatusBadRequest)
		return nil, false
	case in.Password == "":
		respondError(w, "password is required", http.StatusBadRequest)
		return nil, false
	}
	return &in, true
}

func (h *AuthHandler) startSession(w http.ResponseWriter, u *user.User, status int) {
	token, err := h.tokens.GenerateToken(u.ID, u.Email, u.Role)
	if err != nil {
		respondError(w, "failed to generate token", http.StatusInternalServerError)
		return
	}
	respondJSON(w, SessionResponse{Token: token, User: toUserResponse(u)}, status)
}
