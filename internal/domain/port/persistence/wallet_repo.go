package persistence

import (
	"context"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/entity"
)

// WalletRepository defines essential methods to interact with wallet data.
// Debit and Credit are the only balance mutation paths; both are implemented
// as single atomic conditional updates so that per-wallet serializability is
// enforced by the store itself rather than by application-level locking.
type WalletRepository interface {
	// GetByID retrieves a wallet by its internal id
	//
	// Possible errors:
	// - ErrWalletNotFound: if no wallet with the given id exists
	// - ErrStoreUnavailable: if the store cannot be reached
	GetByID(ctx context.Context, id uint64) (*entity.Wallet, error)

	// GetByUserAndCurrency retrieves the wallet owned by a user in a currency
	//
	// Possible errors:
	// - ErrUserNotFound: if the user has no wallet in that currency
	// - ErrStoreUnavailable: if the store cannot be reached
	GetByUserAndCurrency(ctx context.Context, userID uint64, currency string) (*entity.Wallet, error)

	// Create provisions a new wallet
	//
	// Possible errors:
	// - ErrDuplicateTransaction: if a wallet already exists for (user, currency)
	// - ErrStoreUnavailable: if the store cannot be reached
	Create(ctx context.Context, wallet *entity.Wallet) error

	// Debit atomically decrements the balance if the wallet is ACTIVE and the
	// balance covers the amount, and returns the resulting balance in cents.
	// The condition is checked by the write itself, never by a prior read.
	//
	// Possible errors:
	// - ErrInsufficientFunds: if the balance does not cover the amount
	// - ErrWalletSuspended: if the wallet is not ACTIVE
	// - ErrWalletNotFound: if no wallet with the given id exists
	// - ErrStoreUnavailable: if the store cannot be reached
	Debit(ctx context.Context, walletID uint64, amountCents int64) (int64, error)

	// Credit atomically increments the balance of an ACTIVE wallet and returns
	// the resulting balance in cents.
	//
	// Possible errors:
	// - ErrWalletSuspended: if the wallet is not ACTIVE
	// - ErrWalletNotFound: if no wallet with the given id exists
	// - ErrStoreUnavailable: if the store cannot be reached
	Credit(ctx context.Context, walletID uint64, amountCents int64) (int64, error)
}
