package entity

import (
	"time"

	errs "github.com/amirhossein-jamali/wallet-gateway/internal/domain/error"
	tport "github.com/amirhossein-jamali/wallet-gateway/internal/domain/port/core"
)

// WalletStatus defines the lifecycle states of a wallet
type WalletStatus string

// Wallet statuses. Wallets are never hard-deleted; a blocked wallet keeps its
// balance and ledger but rejects all money movement.
const (
	WalletActive    WalletStatus = "ACTIVE"
	WalletSuspended WalletStatus = "SUSPENDED"
	WalletBlocked   WalletStatus = "BLOCKED"
)

// Wallet holds the authoritative balance for one user in one currency.
// BalanceCents is only ever mutated through the gateway's atomic storage
// operations and never goes negative.
type Wallet struct {
	ID                uint64
	UserID            uint64
	Currency          string
	BalanceCents      int64
	HoldCents         int64
	Status            WalletStatus
	LastTransactionAt *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewWallet creates an active zero-balance wallet for a user and currency
func NewWallet(userID uint64, currency string, timeProvider tport.TimeProvider) (*Wallet, error) {
	if userID == 0 {
		return nil, errs.NewValidationError("userid", "user ID must be positive")
	}
	if currency == "" {
		return nil, errs.NewValidationError("currency", "currency cannot be empty")
	}

	now := timeProvider.Now()
	return &Wallet{
		UserID:    userID,
		Currency:  currency,
		Status:    WalletActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CanTransact reports whether the wallet accepts money movement
func (w *Wallet) CanTransact() bool {
	return w.Status == WalletActive
}

// BalanceString returns the balance as a two-decimal string for provider responses
func (w *Wallet) BalanceString() string {
	return CentsToString(w.BalanceCents)
}
