package persistence

import (
	"context"

	"github.com/amirhossein-jamali/wallet-gateway/internal/domain/entity"
)

// RoundRepository defines methods to persist provider-reported round actions.
// The (GameRoundID, UserID) pair carries a unique compound constraint.
type RoundRepository interface {
	// GetByRoundAndUser retrieves the round record for a (round, user) pair
	//
	// Possible errors:
	// - ErrRoundNotFound: if no record exists for the pair
	// - ErrStoreUnavailable: if the store cannot be reached
	GetByRoundAndUser(ctx context.Context, gameRoundID string, userID uint64) (*entity.RoundInfo, error)

	// Create inserts a new round record
	//
	// Possible errors:
	// - ErrDuplicateTransaction: if a record already exists for the pair
	// - ErrStoreUnavailable: if the store cannot be reached
	Create(ctx context.Context, round *entity.RoundInfo) error

	// Update persists appended actions and reconciliation state
	//
	// Possible errors:
	// - ErrRoundNotFound: if the record disappeared
	// - ErrStoreUnavailable: if the store cannot be reached
	Update(ctx context.Context, round *entity.RoundInfo) error

	// RegisterRetry persists the retry bookkeeping of a failed reconciliation
	// attempt, conditional on the attempt count it was computed from, so
	// concurrent passes count one attempt exactly once.
	//
	// Possible errors:
	// - ErrRoundNotFound: if the record disappeared or a competing pass
	//   already counted this attempt
	// - ErrStoreUnavailable: if the store cannot be reached
	RegisterRetry(ctx context.Context, round *entity.RoundInfo, expectedRetryCount int) error

	// ListUnprocessed returns rounds that have not reconciled yet and are not
	// flagged for manual review, oldest first, for the periodic sweep.
	//
	// Possible errors:
	// - ErrStoreUnavailable: if the store cannot be reached
	ListUnprocessed(ctx context.Context, limit int) ([]*entity.RoundInfo, error)
}
