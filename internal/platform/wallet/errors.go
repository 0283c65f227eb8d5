package wallet

import (
	apperrors "github.com/kislikjeka/agrovest/internal/shared/errors"
)

var (
	// Validation errors
	ErrInvalidUserID  = apperrors.Validation("invalid user ID")
	ErrZeroDelta      = apperrors.Validation("balance adjustment cannot be zero")
	ErrDeltaPrecision = apperrors.Validation("balance adjustment has more than 2 decimal places")

	// Repository errors
	ErrWalletNotFound    = apperrors.NotFound("wallet")
	ErrWalletExists      = apperrors.New(apperrors.ErrCodeAlreadyExists, "wallet already exists for this user")
	ErrInsufficientFunds = apperrors.New(apperrors.ErrCodeInsufficientFunds, "insufficient wallet balance")
)
