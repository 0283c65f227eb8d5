package offering

import (
	apperrors "github.com/kislikjeka/agrovest/internal/shared/errors"
)

// Validation errors
var (
	ErrMissingTitle       = apperrors.Validation("offering title is required")
	ErrTitleTooLong       = apperrors.Validation("offering title exceeds 200 characters")
	ErrInvalidUnitPrice   = apperrors.Validation("unit price must be positive")
	ErrUnitPricePrecision = apperrors.Validation("unit price has more than 2 decimal places")
	ErrInvalidYieldRate   = apperrors.Validation("yield rate must be positive")
	ErrInvalidTerm        = apperrors.Validation("term must be at least one month")
	ErrInvalidCapacity    = apperrors.Validation("total units must be positive")
	ErrInvalidUnits       = apperrors.Validation("unit count must be at least 1")
	ErrInvalidStatus      = apperrors.Validation("invalid offering status")
)

// State errors
var (
	ErrOfferingNotFound     = apperrors.NotFound("offering")
	ErrNotOpen              = apperrors.New(apperrors.ErrCodeNotOpen, "offering is not open for investment")
	ErrInsufficientCapacity = apperrors.New(apperrors.ErrCodeInsufficientCapacity, "not enough units remaining")
	ErrAlreadyClosed        = apperrors.New(apperrors.ErrCodeInvalidTransition, "offering is already closed")
	ErrCloseSoldOut         = apperrors.New(apperrors.ErrCodeInvalidTransition, "a sold-out offering stays sold out")
)
