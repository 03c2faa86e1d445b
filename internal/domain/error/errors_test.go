package error

import (
	"errors"
	"fmt"
	"testing"
)

func TestBaseErrorTypes(t *testing.T) {
	// Test to ensure all base error types are defined properly
	if ErrInsufficientFunds.Error() != "insufficient funds" {
		t.Errorf("ErrInsufficientFunds has unexpected message: %s", ErrInsufficientFunds.Error())
	}
	if ErrInvalidAmount.Error() != "invalid amount format" {
		t.Errorf("ErrInvalidAmount has unexpected message: %s", ErrInvalidAmount.Error())
	}
	if ErrUnknownTransaction.Error() != "unknown transaction reference" {
		t.Errorf("ErrUnknownTransaction has unexpected message: %s", ErrUnknownTransaction.Error())
	}
}

func TestErrorCode(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{"AuthenticationFailed", ErrAuthenticationFailed, 4010},
		{"MissingSignature", ErrMissingSignature, 4010},
		{"ValidationFailed", ErrValidationFailed, 4020},
		{"InvalidAmount", ErrInvalidAmount, 4021},
		{"NegativeAmount", ErrNegativeAmount, 4021},
		{"InvalidReference", ErrInvalidReference, 4022},
		{"InsufficientFunds", ErrInsufficientFunds, 4030},
		{"DuplicateTransaction", ErrDuplicateTransaction, 4040},
		{"UnknownTransaction", ErrUnknownTransaction, 4041},
		{"UserNotFound", ErrUserNotFound, 4042},
		{"WalletNotFound", ErrWalletNotFound, 4042},
		{"WalletSuspended", ErrWalletSuspended, 4230},
		{"StoreUnavailable", ErrStoreUnavailable, 5030},
		{"UnknownError", errors.New("unknown error"), 5000},
		{"WrappedError", fmt.Errorf("wrapped: %w", ErrInsufficientFunds), 4030},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code := ErrorCode(tc.err)
			if code != tc.expected {
				t.Errorf("ErrorCode(%v) = %d, want %d", tc.err, code, tc.expected)
			}
		})
	}
}

func TestInsufficientFundsError(t *testing.T) {
	err := NewInsufficientFundsError(123, "EUR", "100.50", "50.25")

	expectedMsg := "insufficient funds for user 123 (EUR): required 100.50, available 50.25"
	if err.Error() != expectedMsg {
		t.Errorf("InsufficientFundsError.Error() = %s, want %s", err.Error(), expectedMsg)
	}

	if !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("errors.Is(err, ErrInsufficientFunds) = false, want true")
	}

	var detailed *InsufficientFundsError
	if !errors.As(err, &detailed) {
		t.Fatalf("errors.As(err, *InsufficientFundsError) = false, want true")
	}
	fields := detailed.LogFields()
	if fields["user_id"] != uint64(123) {
		t.Errorf("LogFields user_id = %v, want 123", fields["user_id"])
	}
	if fields["error_code"] != CodeInsufficientFunds {
		t.Errorf("LogFields error_code = %v, want %d", fields["error_code"], CodeInsufficientFunds)
	}
}

func TestGatewayError(t *testing.T) {
	baseErr := ErrUnknownTransaction
	err := NewGatewayError("rollback", "tx123", 456, "original transaction not found", baseErr)

	expectedMsg := "rollback failed for reference tx123 (user: 456): original transaction not found - unknown transaction reference"
	if err.Error() != expectedMsg {
		t.Errorf("GatewayError.Error() = %s, want %s", err.Error(), expectedMsg)
	}

	if !errors.Is(err, baseErr) {
		t.Errorf("errors.Is(err, baseErr) = false, want true")
	}
	if ErrorCode(err) != CodeUnknownTransaction {
		t.Errorf("ErrorCode(err) = %d, want %d", ErrorCode(err), CodeUnknownTransaction)
	}
}

func TestValidationError(t *testing.T) {
	err := NewValidationError("userid", "user ID must be positive")

	if !errors.Is(err, ErrValidationFailed) {
		t.Errorf("errors.Is(err, ErrValidationFailed) = false, want true")
	}

	expectedMsg := `validation failed for field "userid": user ID must be positive`
	if err.Error() != expectedMsg {
		t.Errorf("ValidationError.Error() = %s, want %s", err.Error(), expectedMsg)
	}
}
