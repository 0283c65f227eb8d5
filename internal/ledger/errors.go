package ledger

import (
	apperrors "github.com/kislikjeka/agrovest/internal/shared/errors"
)

// Entry validation errors
var (
	ErrMissingUser     = apperrors.Validation("ledger entry requires a user")
	ErrInvalidKind     = apperrors.Validation("invalid ledger entry kind")
	ErrInvalidStatus   = apperrors.Validation("invalid ledger entry status")
	ErrZeroAmount      = apperrors.Validation("ledger entry amount cannot be zero")
	ErrAmountSign      = apperrors.Validation("ledger entry amount has the wrong sign for its kind")
	ErrAmountPrecision = apperrors.Validation("ledger entry amount has more than 2 decimal places")
	ErrEmptyReference  = apperrors.Validation("ledger entry reference cannot be blank")
)

// Store errors
var (
	ErrEntryNotFound      = apperrors.NotFound("ledger entry")
	ErrDuplicateReference = apperrors.New(apperrors.ErrCodeAlreadyExists, "ledger entry with this reference already exists")
	ErrInvalidTransition  = apperrors.New(apperrors.ErrCodeInvalidTransition, "ledger entry status transition not allowed")
)
