package movement

import (
	apperrors "github.com/kislikjeka/agrovest/internal/shared/errors"
)

// Input errors
var (
	ErrInvalidAmount       = apperrors.Validation("amount must be positive with at most 2 decimal places")
	ErrBelowMinimum        = apperrors.Validation("amount is below the minimum withdrawal")
	ErrMissingBankDetails  = apperrors.Validation("bank code, account number and account name are required")
	ErrInvalidAccountInput = apperrors.Validation("account number and bank code are required")
	ErrMissingReference    = apperrors.Validation("payment reference is required")
	ErrMissingEmail        = apperrors.Validation("payer email is required")
	ErrInvalidDecision     = apperrors.Validation("decision must be approve or reject")
	ErrNotWithdrawal       = apperrors.Validation("ledger entry is not a withdrawal")
)

// State errors
var (
	ErrAlreadyProcessed = apperrors.New(apperrors.ErrCodeAlreadyProcessed, "payment reference already processed")
	ErrNotPending       = apperrors.New(apperrors.ErrCodeNotPending, "withdrawal is not pending")
	ErrChargeOwner      = apperrors.Forbidden("payment belongs to another user")
)

// Gateway errors. Adapters return these; the engine never inspects raw
// provider responses.
var (
	ErrGatewayUnavailable      = apperrors.New(apperrors.ErrCodeGatewayUnavailable, "payment gateway unavailable")
	ErrVerificationUnavailable = apperrors.New(apperrors.ErrCodeVerificationUnavailable, "payment verification unavailable, retry later")
	ErrPaymentNotSuccessful    = apperrors.New(apperrors.ErrCodePaymentNotSuccessful, "payment was not successful")
	ErrPaymentPending          = apperrors.New(apperrors.ErrCodePaymentPending, "payment is still being processed, retry later")
	ErrUnresolvedAccount       = apperrors.New(apperrors.ErrCodeUnresolvedAccount, "bank account could not be resolved")
)
