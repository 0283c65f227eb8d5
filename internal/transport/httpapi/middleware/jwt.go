package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kislikjeka/agrovest/internal/platform/user"
	apperrors "github.com/kislikjeka/agrovest/internal/shared/errors"
	"github.com/kislikjeka/agrovest/pkg/logger"
)

const (
	tokenIssuer = "agrovest"
	tokenTTL    = 24 * time.Hour
)

var errNoIdentity = errors.New("token carries no identity")

// Identity is the authenticated caller as established by a bearer token
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   user.Role
}

type identityKey struct{}

// Claims is the signed payload of an access token
type Claims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   user.Role `json:"role"`
	jwt.RegisteredClaims
}

// JWTService issues and verifies HS256 access tokens
type JWTService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewJWTService(secret string) *JWTService {
	return &JWTService{secret: []byte(secret), ttl: tokenTTL, now: time.Now}
}

func (s *JWTService) GenerateToken(userID uuid.UUID, email string, role user.Role) (string, error) {
	issued := s.now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(issued),
			NotBefore: jwt.NewNumericDate(issued),
			ExpiresAt: jwt.NewNumericDate(issued.Add(s.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken accepts only HS256 tokens from this issuer that name a user
// and a known role.
func (s *JWTService) ValidateToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if claims.UserID == uuid.Nil || !claims.Role.IsValid() {
		return nil, errNoIdentity
	}
	return claims, nil
}

// UserLookup resolves the account a token was issued to
type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// JWTMiddleware rejects requests without a valid bearer token. The account is
// loaded on every request: tokens of deleted users stop working and the role
// comes from the store, not from the claims.
func JWTMiddleware(tokens *JWTService, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeError(w, http.StatusUnauthorized, "missing authorization header")
				return
			}

			scheme, raw, found := strings.Cut(header, " ")
			if !found || scheme != "Bearer" || raw == "" {
				writeError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			claims, err := tokens.ValidateToken(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			u, err := users.GetByID(r.Context(), claims.UserID)
			switch {
			case apperrors.Kind(err) == apperrors.ErrCodeNotFound:
				writeError(w, http.StatusUnauthorized, "account no longer active")
				return
			case err != nil:
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			case u.IsDeleted():
				writeError(w, http.StatusUnauthorized, "account no longer active")
				return
			}

			ctx := WithIdentity(r.Context(), u.ID, u.Email, u.Role)
			ctx = context.WithValue(ctx, logger.UserIDKey, u.ID.String())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin must run after JWTMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !IsAdmin(r.Context()) {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WithIdentity(ctx context.Context, userID uuid.UUID, email string, role user.Role) context.Context {
	return context.WithValue(ctx, identityKey{}, Identity{UserID: userID, Email: email, Role: role})
}

// IdentityFrom returns the caller established by JWTMiddleware
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := IdentityFrom(ctx)
	return id.UserID, ok
}

func GetUserEmailFromContext(ctx context.Context) (string, bool) {
	id, ok := IdentityFrom(ctx)
	return id.Email, ok
}

func IsAdmin(ctx context.Context) bool {
	id, ok := IdentityFrom(ctx)
	return ok && id.Role == user.RoleAdmin
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"error":%q}`, message)
}
