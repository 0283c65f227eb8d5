// Package errors defines the stable error codes shared by every layer.
//
// Domain packages declare sentinel *AppError values and wrap them with
// fmt.Errorf("...: %w", err). Transport resolves the code with Kind and
// shows callers only PublicMessage.
package errors

import (
	"errors"
	"fmt"
)

// AppError carries a machine-readable code, a message safe for any caller
// and an optional cause that is never shown to them.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Code + ": " + e.Message
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches by code when target is a bare code, so
// errors.Is(err, New(ErrCodeNotFound, "")) works as a family check.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || t.Message != "" || t.Err != nil {
		return false
	}
	return t.Code == e.Code
}

const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"

	// Conflict family: the requested transition is illegal from the current state
	ErrCodeConflict          = "CONFLICT"
	ErrCodeAlreadyExists     = "ALREADY_EXISTS"
	ErrCodeAlreadyProcessed  = "ALREADY_PROCESSED"
	ErrCodeAlreadyCompleted  = "ALREADY_COMPLETED"
	ErrCodeNotPending        = "NOT_PENDING"
	ErrCodeNotOpen           = "NOT_OPEN"
	ErrCodeInvalidTransition = "INVALID_TRANSITION"

	ErrCodeInsufficientFunds    = "INSUFFICIENT_FUNDS"
	ErrCodeInsufficientCapacity = "INSUFFICIENT_CAPACITY"

	// External dependencies
	ErrCodeGatewayUnavailable      = "GATEWAY_UNAVAILABLE"
	ErrCodeVerificationUnavailable = "VERIFICATION_UNAVAILABLE"
	ErrCodePaymentNotSuccessful    = "PAYMENT_NOT_SUCCESSFUL"
	ErrCodePaymentPending          = "PAYMENT_PENDING"
	ErrCodeUnresolvedAccount       = "UNRESOLVED_ACCOUNT"

	ErrCodeStorage = "STORAGE_ERROR"
)

var conflictCodes = map[string]bool{
	ErrCodeConflict:          true,
	ErrCodeAlreadyExists:     true,
	ErrCodeAlreadyProcessed:  true,
	ErrCodeAlreadyCompleted:  true,
	ErrCodeNotPending:        true,
	ErrCodeNotOpen:           true,
	ErrCodeInvalidTransition: true,
}

func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches a code and public message to an internal cause
func Wrap(err error, code, message string) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func Validation(message string) *AppError   { return New(ErrCodeValidation, message) }
func Unauthorized(message string) *AppError { return New(ErrCodeUnauthorized, message) }
func Forbidden(message string) *AppError    { return New(ErrCodeForbidden, message) }
func Conflict(message string) *AppError     { return New(ErrCodeConflict, message) }

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, resource+" not found")
}

func Storage(message string, err error) *AppError {
	return Wrap(err, ErrCodeStorage, message)
}

// As returns the outermost AppError in err's chain
func As(err error) (*AppError, bool) {
	var appErr *AppError
	ok := errors.As(err, &appErr)
	return appErr, ok
}

// Kind returns the stable code for err. Anything without an AppError is a
// storage failure.
func Kind(err error) string {
	if err == nil {
		return ""
	}
	if appErr, ok := As(err); ok {
		return appErr.Code
	}
	return ErrCodeStorage
}

func IsConflict(err error) bool {
	return conflictCodes[Kind(err)]
}

// PublicMessage never includes wrapped causes.
func PublicMessage(err error) string {
	appErr, ok := As(err)
	if !ok || appErr.Code == ErrCodeStorage {
		return "internal error"
	}
	return appErr.Message
}
