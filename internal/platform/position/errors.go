package position

import (
	apperrors "github.com/kislikjeka/agrovest/internal/shared/errors"
)

// Validation errors
var (
	ErrInvalidUserID          = apperrors.Validation("invalid user ID")
	ErrInvalidOfferingID      = apperrors.Validation("invalid offering ID")
	ErrInvalidUnits           = apperrors.Validation("unit count must be at least 1")
	ErrInvalidCommittedAmount = apperrors.Validation("committed amount must be positive")
	ErrInvalidYieldRate       = apperrors.Validation("yield rate cannot be negative")
	ErrMissingMaturity        = apperrors.Validation("maturity date is required")
)

// State errors
var (
	ErrPositionNotFound = apperrors.NotFound("position")
	ErrAlreadyCompleted = apperrors.New(apperrors.ErrCodeAlreadyCompleted, "position is not active")
	ErrNotActive        = apperrors.New(apperrors.ErrCodeInvalidTransition, "position is not active")
	ErrAccessDenied     = apperrors.Forbidden("position belongs to another user")
)
