package persistence

import (
	"context"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/entity"
)

// LedgerRepository defines essential methods to interact with the append-only
// transaction ledger. The Reference column carries a unique constraint so a
// duplicate tid under concurrent delivery is rejected by the store itself and
// resolved as an idempotent replay, not a double effect.
type LedgerRepository interface {
	// Create appends a new ledger entry
	//
	// Possible errors:
	// - ErrDuplicateTransaction: if an entry with the same Reference exists
	// - ErrStoreUnavailable: if the store cannot be reached
	Create(ctx context.Context, entry *entity.LedgerEntry) error

	// GetByReference retrieves an entry by its provider transaction id
	//
	// Possible errors:
	// - ErrUnknownTransaction: if no entry with the given reference exists
	// - ErrStoreUnavailable: if the store cannot be reached
	GetByReference(ctx context.Context, reference string) (*entity.LedgerEntry, error)

	// MarkReversed transitions a COMPLETED entry to REVERSED. The transition is
	// conditional on the current status so a concurrent rollback of the same
	// entry is applied at most once.
	//
	// Possible errors:
	// - ErrUnknownTransaction: if the entry does not exist or is not COMPLETED
	// - ErrStoreUnavailable: if the store cannot be reached
	MarkReversed(ctx context.Context, entry *entity.LedgerEntry) error

	// SettledNetForRound returns the signed sum in cents of COMPLETED entries
	// recorded for a game round and wallet (credits positive, debits negative,
	// REVERSED entries excluded). Used by the round reconciler.
	//
	// Possible errors:
	// - ErrStoreUnavailable: if the store cannot be reached
	SettledNetForRound(ctx context.Context, roundID string, walletID uint64) (int64, error)
}
