package error

import (
	"errors"
	"fmt"
)

// Error codes for standardized provider responses
const (
	// 4xxx - Request errors
	CodeAuthenticationFailed = 4010
	CodeValidationFailed     = 4020
	CodeInvalidAmount        = 4021
	CodeInvalidReference     = 4022
	CodeInsufficientFunds    = 4030
	CodeDuplicateTransaction = 4040
	CodeUnknownTransaction   = 4041
	CodeUserNotFound         = 4042
	CodeWalletSuspended      = 4230

	// 5xxx - Server errors
	CodeStoreUnavailable = 5030
	CodeInternalServer   = 5000
)

// Base error types
var (
	// ErrAuthenticationFailed is returned when the request signature does not verify
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrMissingSignature is returned when the request carries no signature at all
	ErrMissingSignature = errors.New("missing request signature")

	// ErrValidationFailed is returned when a request field is malformed
	ErrValidationFailed = errors.New("validation failed")

	// ErrInvalidAmount is returned when the amount format is invalid
	ErrInvalidAmount = errors.New("invalid amount format")

	// ErrNegativeAmount is returned when the amount is negative
	ErrNegativeAmount = errors.New("amount cannot be negative")

	// ErrInvalidReference is returned when the provider transaction id is empty or too long
	ErrInvalidReference = errors.New("invalid transaction reference")

	// ErrInsufficientFunds is returned when a debit exceeds the available balance
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateTransaction signals an idempotent replay of an already settled reference
	ErrDuplicateTransaction = errors.New("transaction with this reference already exists")

	// ErrUnknownTransaction is returned when a rollback targets a reference that was never settled
	ErrUnknownTransaction = errors.New("unknown transaction reference")

	// ErrUserNotFound is returned when no wallet exists for the user and currency
	ErrUserNotFound = errors.New("user not found")

	// ErrWalletNotFound is returned when a wallet lookup by id fails
	ErrWalletNotFound = errors.New("wallet not found")

	// ErrWalletSuspended is returned when the wallet is not in an ACTIVE state
	ErrWalletSuspended = errors.New("wallet is suspended or blocked")

	// ErrRoundNotFound is returned when a round info lookup fails
	ErrRoundNotFound = errors.New("round not found")

	// ErrStoreUnavailable is returned for transient storage failures; no partial
	// effect has been committed, so the caller may retry
	ErrStoreUnavailable = errors.New("store unavailable")

	// ErrInternalServer is returned for unexpected server-side errors
	ErrInternalServer = errors.New("internal server error")
)

// ErrorCode returns standardized error codes for known errors
func ErrorCode(err error) int {
	switch {
	case errors.Is(err, ErrAuthenticationFailed), errors.Is(err, ErrMissingSignature):
		return CodeAuthenticationFailed
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrNegativeAmount):
		return CodeInvalidAmount
	case errors.Is(err, ErrInvalidReference):
		return CodeInvalidReference
	case errors.Is(err, ErrValidationFailed):
		return CodeValidationFailed
	case errors.Is(err, ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, ErrDuplicateTransaction):
		return CodeDuplicateTransaction
	case errors.Is(err, ErrUnknownTransaction):
		return CodeUnknownTransaction
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrWalletNotFound):
		return CodeUserNotFound
	case errors.Is(err, ErrWalletSuspended):
		return CodeWalletSuspended
	case errors.Is(err, ErrStoreUnavailable):
		return CodeStoreUnavailable
	default:
		return CodeInternalServer
	}
}

// InsufficientFundsError provides detailed error information for rejected debits
type InsufficientFundsError struct {
	UserID      uint64
	Currency    string
	Amount      string
	CurrBalance string
}

// Error implements the error interface
func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds for user %d (%s): required %s, available %s",
		e.UserID, e.Currency, e.Amount, e.CurrBalance)
}

// Is checks if the target error is an ErrInsufficientFunds
func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds
}

// LogFields returns a map of fields for structured logging
func (e *InsufficientFundsError) LogFields() map[string]any {
	return map[string]any{
		"error_type":      "insufficient_funds",
		"user_id":         e.UserID,
		"currency":        e.Currency,
		"amount":          e.Amount,
		"current_balance": e.CurrBalance,
		"error_code":      CodeInsufficientFunds,
	}
}

// NewInsufficientFundsError creates a new detailed insufficient funds error
func NewInsufficientFundsError(userID uint64, currency, amount, currentBalance string) error {
	return &InsufficientFundsError{
		UserID:      userID,
		Currency:    currency,
		Amount:      amount,
		CurrBalance: currentBalance,
	}
}

// GatewayError represents an error raised while processing a provider operation
type GatewayError struct {
	Operation string
	Reference string
	UserID    uint64
	Reason    string
	Err       error
}

// Error implements the error interface for GatewayError
func (e *GatewayError) Error() string {
	return fmt.Sprintf("%s failed for reference %s (user: %d): %s - %v",
		e.Operation, e.Reference, e.UserID, e.Reason, e.Err)
}

// Unwrap returns the underlying error
func (e *GatewayError) Unwrap() error {
	return e.Err
}

// LogFields returns a map of fields for structured logging
func (e *GatewayError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "gateway_error",
		"operation":  e.Operation,
		"reference":  e.Reference,
		"user_id":    e.UserID,
		"reason":     e.Reason,
		"error":      e.Err.Error(),
		"error_code": ErrorCode(e.Err),
	}
}

// NewGatewayError creates a detailed gateway processing error
func NewGatewayError(operation, reference string, userID uint64, reason string, err error) error {
	return &GatewayError{
		Operation: operation,
		Reference: reference,
		UserID:    userID,
		Reason:    reason,
		Err:       err,
	}
}

// ValidationError carries the offending field alongside the validation failure
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Reason)
}

// Is checks if the target error is an ErrValidationFailed
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// LogFields returns a map of fields for structured logging
func (e *ValidationError) LogFields() map[string]any {
	return map[string]any{
		"error_type": "validation_error",
		"field":      e.Field,
		"reason":     e.Reason,
		"error_code": CodeValidationFailed,
	}
}

// NewValidationError creates a field-level validation error
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsAuthenticationError checks if the error is an authentication failure
func IsAuthenticationError(err error) bool {
	return errors.Is(err, ErrAuthenticationFailed) || errors.Is(err, ErrMissingSignature)
}

// IsValidationError checks if the error is a field validation failure
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidationFailed) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrNegativeAmount) ||
		errors.Is(err, ErrInvalidReference)
}

// IsInsufficientFundsError checks if the error is related to insufficient funds
func IsInsufficientFundsError(err error) bool {
	return errors.Is(err, ErrInsufficientFunds)
}

// IsDuplicateTransactionError checks if the error is an idempotent replay marker
func IsDuplicateTransactionError(err error) bool {
	return errors.Is(err, ErrDuplicateTransaction)
}

// IsUnknownTransactionError checks if the error is a rollback against a missing reference
func IsUnknownTransactionError(err error) bool {
	return errors.Is(err, ErrUnknownTransaction)
}

// IsNotFoundError checks if the error is any "not found" type of error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrWalletNotFound) ||
		errors.Is(err, ErrRoundNotFound)
}

// IsStoreUnavailableError checks if the error is a transient storage failure
func IsStoreUnavailableError(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
