package user

import (
	apperrors "github.com/kislikjeka/agrovest/internal/shared/errors"
)

// User validation errors
var (
	ErrInvalidEmail        = apperrors.Validation("invalid email address")
	ErrInvalidPasswordHash = apperrors.Validation("invalid password hash")
	ErrPasswordTooShort    = apperrors.Validation("password must be at least 8 characters")
	ErrInvalidRole         = apperrors.Validation("invalid role")
	ErrInvalidCredentials  = apperrors.Unauthorized("invalid email or password")
	ErrUserNotFound        = apperrors.NotFound("user")
	ErrUserAlreadyExists   = apperrors.New(apperrors.ErrCodeAlreadyExists, "user with this email already exists")
	ErrUserDeleted         = apperrors.New(apperrors.ErrCodeConflict, "user account has been deleted")
	ErrUserHasHoldings     = apperrors.Conflict("user still holds funds, active positions or pending entries")
)
